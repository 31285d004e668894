package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/projectstack/projectstack/internal/config"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/rs/zerolog/log"
)

type EmailService struct {
	config *config.Config
	tmpl   *template.Template
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config: cfg,
		tmpl:   template.Must(template.New("email").Parse(BaseEmailTemplate)),
	}
}

// EmailData contains common email template data
type EmailData struct {
	AppName     string
	AppURL      string
	UserName    string
	Subject     string
	Content     string
	ActionURL   string
	ActionLabel string
}

// BaseEmailTemplate is the base HTML email template
const BaseEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1f2937; color: white; padding: 24px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .button { display: inline-block; background: #2563eb; color: white; padding: 10px 24px; text-decoration: none; border-radius: 6px; margin: 16px 0; }
        .footer { text-align: center; color: #888; font-size: 12px; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{.AppName}}</h1></div>
        <div class="content">
            <p>Hi {{.UserName}},</p>
            <p>{{.Content}}</p>
            {{if .ActionURL}}
            <p style="text-align: center;"><a href="{{.ActionURL}}" class="button">{{.ActionLabel}}</a></p>
            {{end}}
        </div>
        <div class="footer">
            <p>You are receiving this because you have an account on {{.AppName}}.</p>
        </div>
    </div>
</body>
</html>
`

// Enabled reports whether an SMTP relay is configured.
func (s *EmailService) Enabled() bool {
	return s.config.SMTPHost != ""
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to, subject, body string) error {
	if !s.Enabled() {
		log.Debug().Str("to", to).Str("subject", subject).Msg("SMTP not configured, email skipped")
		return nil
	}

	from := s.config.FromEmail
	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		from, to, subject)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(headers+body))
}

func (s *EmailService) renderEmail(data EmailData) (string, error) {
	data.AppName = s.config.AppName
	data.AppURL = s.config.AppURL

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendNotificationEmail mirrors an in-app notification to the recipient's inbox.
func (s *EmailService) SendNotificationEmail(to, name string, n *models.Notification) error {
	data := EmailData{
		UserName:    name,
		Subject:     notificationSubject(n.Type),
		Content:     n.Message,
		ActionURL:   s.config.AppURL + "/notifications",
		ActionLabel: "Open ProjectStack",
	}
	if n.ProjectID != nil && n.Type != models.NotificationProjectDeleted {
		data.ActionURL = fmt.Sprintf("%s/projects/%s", s.config.AppURL, n.ProjectID)
		data.ActionLabel = "View Project"
	}

	body, err := s.renderEmail(data)
	if err != nil {
		return err
	}
	return s.sendEmail(to, data.Subject, body)
}

func notificationSubject(t models.NotificationType) string {
	switch t {
	case models.NotificationApplicationReceived:
		return "New application for your project"
	case models.NotificationApplicationAccepted:
		return "Your application was accepted"
	case models.NotificationApplicationRejected:
		return "Update on your application"
	case models.NotificationContributorRemoved:
		return "You were removed from a project"
	case models.NotificationProjectDeleted:
		return "A project you were part of was deleted"
	case models.NotificationComment:
		return "New comment on your project"
	default:
		return "New activity on ProjectStack"
	}
}

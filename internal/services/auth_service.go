package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/config"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"gorm.io/gorm"
)

const (
	ProviderGoogle    = "google"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

type AuthService struct {
	config      *config.Config
	db          *gorm.DB
	oauth       *oauth2.Config
	userInfoURL string
}

func NewAuthService(cfg *config.Config, db *gorm.DB) *AuthService {
	return &AuthService{
		config: cfg,
		db:     db,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// JWT Claims
type Claims struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token for an account
func (s *AuthService) GenerateToken(account *models.Account) (string, error) {
	expirationTime := time.Now().Add(time.Duration(s.config.JWTExpiration) * time.Hour)

	claims := &Claims{
		AccountID: account.ID,
		Email:     account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.config.AppName,
			Subject:   account.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// ValidateToken validates a JWT token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(s.config.AppName))

	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.AccountID == uuid.Nil {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// GenerateState returns a random value binding the login redirect to its callback.
func (s *AuthService) GenerateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// OAuthConfigured reports whether Google credentials are present.
func (s *AuthService) OAuthConfigured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != ""
}

// AuthCodeURL is where the browser is sent to sign in with Google.
func (s *AuthService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// OAuthIdentity is what the provider tells us about the signed in user.
type OAuthIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Login exchanges an authorization code, records the account and issues a token.
func (s *AuthService) Login(ctx context.Context, code string) (*models.Account, string, error) {
	if code == "" {
		return nil, "", apperr.Validation("Missing authorization code")
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth code exchange failed")
		return nil, "", apperr.Unauthorized("Sign in with Google failed")
	}

	identity, err := s.fetchIdentity(ctx, s.oauth.Client(ctx, tok))
	if err != nil {
		log.Warn().Err(err).Msg("Fetching Google user info failed")
		return nil, "", apperr.Unauthorized("Sign in with Google failed")
	}
	if !identity.EmailVerified {
		return nil, "", apperr.Unauthorized("Your Google email address is not verified")
	}

	account, err := s.UpsertAccount(ctx, ProviderGoogle, identity)
	if err != nil {
		return nil, "", err
	}

	token, err := s.GenerateToken(account)
	if err != nil {
		return nil, "", apperr.Internal("Failed to issue token", err)
	}
	return account, token, nil
}

func (s *AuthService) fetchIdentity(ctx context.Context, client *http.Client) (*OAuthIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var identity OAuthIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if identity.Subject == "" || identity.Email == "" {
		return nil, errors.New("userinfo is missing subject or email")
	}
	return &identity, nil
}

// UpsertAccount creates the account on first login and refreshes it afterwards.
func (s *AuthService) UpsertAccount(ctx context.Context, provider string, identity *OAuthIdentity) (*models.Account, error) {
	db := s.db.WithContext(ctx)
	now := time.Now()

	var account models.Account
	err := db.Where("provider = ? AND provider_subject = ?", provider, identity.Subject).First(&account).Error
	switch {
	case err == nil:
		account.Email = strings.ToLower(identity.Email)
		account.Name = identity.Name
		account.AvatarURL = identity.Picture
		account.LastLoginAt = now
		if err := db.Save(&account).Error; err != nil {
			return nil, apperr.FromStore(err, "Account not found")
		}
		return &account, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = models.Account{
			Email:           strings.ToLower(identity.Email),
			Name:            identity.Name,
			Provider:        provider,
			ProviderSubject: identity.Subject,
			AvatarURL:       identity.Picture,
			LastLoginAt:     now,
		}
		if err := db.Create(&account).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return nil, apperr.Conflict(apperr.ErrDuplicate, "An account with this email already exists")
			}
			return nil, apperr.FromStore(err, "Account not found")
		}
		log.Info().Str("account", account.ID.String()).Str("provider", provider).Msg("Account created")
		return &account, nil
	default:
		return nil, apperr.FromStore(err, "Account not found")
	}
}

// GetAccount retrieves an account by its ID
func (s *AuthService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "Account not found")
	}
	return &account, nil
}

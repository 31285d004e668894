package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/middleware"
	"github.com/projectstack/projectstack/internal/services"
)

const stateCookie = "oauth_state"

type AuthHandler struct {
	authService    *services.AuthService
	profileService *services.ProfileService
}

func NewAuthHandler(authService *services.AuthService, profileService *services.ProfileService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		profileService: profileService,
	}
}

// GoogleLogin redirects to the Google consent screen
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if !h.authService.OAuthConfigured() {
		respondError(c, apperr.New(apperr.KindInternal, "Google sign in is not configured"))
		return
	}

	state, err := h.authService.GenerateState()
	if err != nil {
		respondError(c, apperr.Internal("Failed to start sign in", err))
		return
	}

	secure := c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", secure, true)
	c.Redirect(http.StatusTemporaryRedirect, h.authService.AuthCodeURL(state))
}

// GoogleCallback finishes the code exchange and issues our own token
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		respondError(c, apperr.Unauthorized("Sign in was cancelled"))
		return
	}

	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		respondError(c, apperr.Unauthorized("Invalid OAuth state"))
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	account, token, err := h.authService.Login(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	_, profileErr := h.profileService.GetByAccount(c.Request.Context(), account.ID)
	respond(c, http.StatusOK, gin.H{
		"token":       token,
		"account":     account,
		"has_profile": profileErr == nil,
	})
}

// Me returns the signed in account and its profile, if onboarding is done
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		respondError(c, apperr.Unauthorized("Authentication required"))
		return
	}

	account, err := h.authService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{"account": account}
	profile, err := h.profileService.GetByAccount(c.Request.Context(), accountID)
	switch {
	case err == nil:
		body["profile"] = profile
	case apperr.KindOf(err) != apperr.KindNotFound:
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, body)
}

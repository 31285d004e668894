package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/middleware"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/projectstack/projectstack/internal/services"
)

type ProfileHandler struct {
	profileService    *services.ProfileService
	membershipService *services.MembershipService
	storageService    *services.StorageService
}

func NewProfileHandler(profileService *services.ProfileService, membershipService *services.MembershipService, storageService *services.StorageService) *ProfileHandler {
	return &ProfileHandler{
		profileService:    profileService,
		membershipService: membershipService,
		storageService:    storageService,
	}
}

// CreateProfile onboards the signed in account
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		respondError(c, apperr.Unauthorized("Authentication required"))
		return
	}

	var req services.ProfileInput
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profileService.Create(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"profile": profile})
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}
	profile, err := h.profileService.Get(c.Request.Context(), profileID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"profile": profile})
}

func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), profileID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"profile": profile})
}

// UploadAvatar stores the multipart "image" and makes it the profile picture
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, apperr.Validation("No image uploaded"))
		return
	}

	ctx := c.Request.Context()
	url, err := h.storageService.SaveUpload(ctx, services.FolderAvatars, profileID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	previous, err := h.profileService.SetAvatar(ctx, profileID, url)
	if err != nil {
		h.storageService.DeleteBestEffort(ctx, url)
		respondError(c, err)
		return
	}
	h.storageService.DeleteBestEffort(ctx, previous)

	respond(c, http.StatusOK, gin.H{"avatar_url": url})
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := parseID(c, "profile")
	if !ok {
		return
	}
	profile, err := h.profileService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"profile": profile})
}

// GetProfileApplications lists the caller's own applications
func (h *ProfileHandler) GetProfileApplications(c *gin.Context) {
	id, ok := parseID(c, "profile")
	if !ok {
		return
	}
	callerID, ok := callerProfile(c)
	if !ok {
		return
	}
	if id != callerID {
		respondError(c, apperr.Forbidden("You can only view your own applications"))
		return
	}

	applications, err := h.membershipService.UserApplications(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"applications": models.ApplicationsToResponse(applications),
		"total":        len(applications),
	})
}

func (h *ProfileHandler) GetProfileContributions(c *gin.Context) {
	id, ok := parseID(c, "profile")
	if !ok {
		return
	}
	if _, err := h.profileService.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	contributions, err := h.membershipService.UserContributions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"contributions": models.ContributorsToResponse(contributions),
		"total":         len(contributions),
	})
}

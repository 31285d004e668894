package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/projectstack/projectstack/internal/services"
)

type ApplicationHandler struct {
	membershipService *services.MembershipService
}

func NewApplicationHandler(membershipService *services.MembershipService) *ApplicationHandler {
	return &ApplicationHandler{membershipService: membershipService}
}

type ApplyRequest struct {
	Message string `json:"message" binding:"max=2000"`
}

// Apply submits the caller's application to a project
func (h *ApplicationHandler) Apply(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	var req ApplyRequest
	// The body is optional.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	application, err := h.membershipService.Apply(c.Request.Context(), profileID, projectID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"message":     "Application submitted",
		"application": application.ToResponse(),
	})
}

// CheckStatus tells the caller whether they can apply, are waiting or contribute
func (h *ApplicationHandler) CheckStatus(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	view, err := h.membershipService.CheckStatus(c.Request.Context(), profileID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"has_applied":        view.HasApplied,
		"application_status": view.ApplicationStatus,
		"is_contributor":     view.IsContributor,
	})
}

// GetProjectApplications lists applications for the author
func (h *ApplicationHandler) GetProjectApplications(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	applications, err := h.membershipService.ProjectApplications(c.Request.Context(), projectID, profileID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"applications": models.ApplicationsToResponse(applications),
		"total":        len(applications),
	})
}

func (h *ApplicationHandler) GetProjectContributors(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}

	contributors, err := h.membershipService.ProjectContributors(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"contributors": models.ContributorsToResponse(contributors),
		"total":        len(contributors),
	})
}

func (h *ApplicationHandler) Accept(c *gin.Context) {
	applicationID, ok := parseID(c, "application")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	application, contributor, err := h.membershipService.Accept(c.Request.Context(), applicationID, profileID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":     "Application accepted",
		"application": application.ToResponse(),
		"contributor": contributor.ToResponse(),
	})
}

func (h *ApplicationHandler) Reject(c *gin.Context) {
	applicationID, ok := parseID(c, "application")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	application, err := h.membershipService.Reject(c.Request.Context(), applicationID, profileID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":     "Application rejected",
		"application": application.ToResponse(),
	})
}

func (h *ApplicationHandler) RemoveContributor(c *gin.Context) {
	contributorID, ok := parseID(c, "contributor")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	if err := h.membershipService.RemoveContributor(c.Request.Context(), contributorID, profileID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Contributor removed"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/projectstack/projectstack/internal/services"
)

type EngagementHandler struct {
	engagementService *services.EngagementService
}

func NewEngagementHandler(engagementService *services.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagementService: engagementService}
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ToggleLike likes or unlikes the project for the caller
func (h *EngagementHandler) ToggleLike(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	liked, err := h.engagementService.ToggleLike(c.Request.Context(), profileID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"liked": liked})
}

func (h *EngagementHandler) ListComments(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}

	comments, err := h.engagementService.ListComments(c.Request.Context(), projectID, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"comments": models.CommentsToResponse(comments),
		"total":    len(comments),
	})
}

func (h *EngagementHandler) AddComment(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.engagementService.AddComment(c.Request.Context(), profileID, projectID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"comment": comment.ToResponse()})
}

func (h *EngagementHandler) DeleteComment(c *gin.Context) {
	commentID, ok := parseID(c, "comment")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	if err := h.engagementService.DeleteComment(c.Request.Context(), commentID, profileID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Comment deleted"})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/middleware"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/projectstack/projectstack/internal/services"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	storageService *services.StorageService
}

func NewProjectHandler(projectService *services.ProjectService, storageService *services.StorageService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		storageService: storageService,
	}
}

// ListProjects returns projects newest first, filtered by the query string
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	filter := services.ProjectFilter{
		Status: models.ProjectStatus(c.Query("status")),
		Skill:  c.Query("skill"),
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	if author := c.Query("author"); author != "" {
		authorID, err := uuid.Parse(author)
		if err != nil {
			respondError(c, apperr.Validation("Invalid author ID"))
			return
		}
		filter.AuthorID = &authorID
	}
	if active := c.Query("active"); active != "" {
		activeOnly, err := strconv.ParseBool(active)
		if err != nil {
			respondError(c, apperr.Validation("Invalid active flag"))
			return
		}
		filter.ActiveOnly = activeOnly
	}

	projects, err := h.projectService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"projects": models.ProjectsToResponse(projects),
		"total":    len(projects),
	})
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	var req services.ProjectInput
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), profileID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"project": project.ToResponse()})
}

// GetProject returns the project with its counters; signed in viewers also
// learn whether they liked it
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}

	var viewer *uuid.UUID
	if profileID, ok := middleware.GetProfileID(c); ok {
		viewer = &profileID
	}

	view, err := h.projectService.Get(c.Request.Context(), projectID, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"project": view.ToResponse()})
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	var req services.ProjectUpdate
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), projectID, profileID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"project": project.ToResponse()})
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), projectID, profileID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Project deleted"})
}

// UploadThumbnail stores the multipart "image" as the project thumbnail
func (h *ProjectHandler) UploadThumbnail(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.projectService.Owned(ctx, projectID, profileID); err != nil {
		respondError(c, err)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, apperr.Validation("No image uploaded"))
		return
	}

	url, err := h.storageService.SaveUpload(ctx, services.FolderThumbnails, projectID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	previous, err := h.projectService.SetThumbnail(ctx, projectID, profileID, url)
	if err != nil {
		h.storageService.DeleteBestEffort(ctx, url)
		respondError(c, err)
		return
	}
	h.storageService.DeleteBestEffort(ctx, previous)

	respond(c, http.StatusOK, gin.H{"thumbnail_url": url})
}

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/middleware"
	"github.com/rs/zerolog/log"
)

// respondError renders err as {"success": false, "message", "kind"}.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}
	_ = c.Error(err)
	c.JSON(apperr.HTTPStatus(kind), apperr.ResultOf(err))
}

// respond renders a success body, always tagged with "success": true.
func respond(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation("Invalid "+what+" ID"))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Validation("Invalid request: "+err.Error()))
		return false
	}
	return true
}

// callerProfile is the profile RequireProfile attached to the request.
func callerProfile(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetProfileID(c)
	if !ok {
		respondError(c, apperr.Unauthorized("Authentication required"))
	}
	return id, ok
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

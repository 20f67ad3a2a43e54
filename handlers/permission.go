package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/permgate/permgate/perms"
)

// PermissionHandler exposes the permission engine over HTTP: the decision
// endpoint for authorization gates and the rule CRUD for administration.
type PermissionHandler struct {
	engine *perms.Engine
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(engine *perms.Engine) *PermissionHandler {
	return &PermissionHandler{engine: engine}
}

// CheckInput is the decision request. Actor is optional; an empty actor
// is evaluated as anonymous.
type CheckInput struct {
	Actor     string      `json:"actor"`
	Component string      `json:"component" binding:"required"`
	Instance  string      `json:"instance" binding:"required"`
	Level     perms.Level `json:"level"`
}

// Check handles POST /api/permissions/check
func (h *PermissionHandler) Check(c *gin.Context) {
	var input CheckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.Level.Valid() || input.Level == perms.AccessInvalid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown access level"})
		return
	}

	allowed, err := h.engine.HasPermission(c.Request.Context(), input.Actor, input.Component, input.Instance, input.Level)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The projection is cached, so the second resolution is cheap.
	level, err := h.engine.SecurityLevelFor(c.Request.Context(), input.Actor, input.Component, input.Instance)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"allowed":    allowed,
		"level":      level,
		"level_name": level.Name(),
	})
}

// ListRules handles GET /api/permissions
func (h *PermissionHandler) ListRules(c *gin.Context) {
	realm := 0
	if raw := c.Query("realm"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "realm must be an integer"})
			return
		}
		realm = parsed
	}

	rules, err := h.engine.ListRules(c.Request.Context(), realm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rules == nil {
		rules = []perms.Rule{}
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// GetRule handles GET /api/permissions/:id
func (h *PermissionHandler) GetRule(c *gin.Context) {
	rule, err := h.engine.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// CreateRule handles POST /api/permissions
func (h *PermissionHandler) CreateRule(c *gin.Context) {
	var input perms.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.engine.AddRule(c.Request.Context(), input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// UpdateRule handles PUT /api/permissions/:id
func (h *PermissionHandler) UpdateRule(c *gin.Context) {
	var input perms.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.engine.UpdateRule(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule handles DELETE /api/permissions/:id
func (h *PermissionHandler) DeleteRule(c *gin.Context) {
	if err := h.engine.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// MoveInput is the reorder request body.
type MoveInput struct {
	Sequence int `json:"sequence" binding:"required"`
}

// MoveRule handles POST /api/permissions/:id/move
func (h *PermissionHandler) MoveRule(c *gin.Context) {
	var input MoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.MoveRule(c.Request.Context(), c.Param("id"), input.Sequence); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	rule, err := h.engine.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListLevels handles GET /api/permissions/levels
func (h *PermissionHandler) ListLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": perms.AccessLevels()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, perms.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, perms.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

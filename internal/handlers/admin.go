package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"startuppush/internal/models"
	"startuppush/internal/services"
)

type AdminHandler struct {
	moderation *services.Moderator
	users      *services.UserService
}

func NewAdminHandler(svc *services.Services) *AdminHandler {
	return &AdminHandler{moderation: svc.Moderation, users: svc.Users}
}

type moderationRequest struct {
	Action string `json:"action" binding:"required"`
}

// Moderate PATCH /api/admin/products/:id 与 /api/admin/comments/:id
func (h *AdminHandler) Moderate(resource models.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req moderationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "action is required")
			return
		}
		status, err := h.moderation.Apply(c.Request.Context(), currentUser(c), resource, id, services.ModerationAction(req.Action))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
	}
}

type punishRequest struct {
	Status string `json:"status" binding:"required"`
	Days   int    `json:"days"`
}

// SetUserStatus PATCH /api/admin/users/:id
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req punishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	user, err := h.users.SetStatus(c.Request.Context(), currentUser(c), id, req.Status, req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

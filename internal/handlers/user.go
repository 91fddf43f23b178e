package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"startuppush/internal/models"
	"startuppush/internal/services"
)

const pointHistoryLimit = 100

type UserHandler struct {
	points  *services.PointAccount
	reports *services.ReportService
}

func NewUserHandler(svc *services.Services) *UserHandler {
	return &UserHandler{points: svc.Points, reports: svc.Reports}
}

// Me GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

// Points GET /api/points
func (h *UserHandler) Points(c *gin.Context) {
	user := currentUser(c)
	balance, err := h.points.Balance(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.points.History(c.Request.Context(), user.ID, pointHistoryLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.PointLog{}
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance, "logs": logs})
}

type reportRequest struct {
	ResourceType string `json:"resourceType" binding:"required"`
	ID           uint   `json:"id" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

// Report POST /api/reports
func (h *UserHandler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "resourceType, id and reason are required")
		return
	}
	res, err := h.reports.Report(c.Request.Context(), currentUser(c), models.ResourceType(req.ResourceType), req.ID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

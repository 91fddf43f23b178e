package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"startuppush/internal/services"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(svc *services.Services) *CommentHandler {
	return &CommentHandler{comments: svc.Comments}
}

type commentRequest struct {
	ProductID uint   `json:"productId" binding:"required"`
	Content   string `json:"content" binding:"required"`
	ParentID  *uint  `json:"parentId"`
}

// Create POST /api/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId and content are required")
		return
	}
	res, err := h.comments.Create(c.Request.Context(), currentUser(c), req.ProductID, req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// List GET /api/products/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	comments, err := h.comments.List(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// Get GET /api/comments/:id
func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	comment, err := h.comments.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

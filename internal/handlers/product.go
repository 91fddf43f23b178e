package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"startuppush/internal/services"
)

type ProductHandler struct {
	products   *services.ProductService
	ranking    *services.RankingService
	engagement *services.EngagementService
}

func NewProductHandler(svc *services.Services) *ProductHandler {
	return &ProductHandler{products: svc.Products, ranking: svc.Ranking, engagement: svc.Engagement}
}

type productRequest struct {
	Name        string `json:"name" binding:"required"`
	Tagline     string `json:"tagline"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{Name: r.Name, Tagline: r.Tagline, Description: r.Description, URL: r.URL}
}

// List GET /api/products?sort=top|new&page=N
func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	listing, err := h.ranking.List(c.Request.Context(), c.DefaultQuery("sort", services.SortTop), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Detail GET /api/products/:id
func (h *ProductHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Create POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	product, err := h.products.Create(c.Request.Context(), currentUser(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// Update PATCH /api/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	product, err := h.products.Update(c.Request.Context(), currentUser(c), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Delete DELETE /api/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Follow POST /api/products/:id/follow
func (h *ProductHandler) Follow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	awarded, err := h.engagement.Follow(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true, "pointsAwarded": awarded})
}

// Unfollow DELETE /api/products/:id/follow
func (h *ProductHandler) Unfollow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.engagement.Unfollow(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

type shareRequest struct {
	Channel string `json:"channel"`
}

// Share POST /api/products/:id/share
func (h *ProductHandler) Share(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req shareRequest
	// body 可以为空
	_ = c.ShouldBindJSON(&req)
	awarded, err := h.engagement.Share(c.Request.Context(), currentUser(c), id, req.Channel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shared": true, "pointsAwarded": awarded})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"startuppush/internal/models"
	"startuppush/internal/services"
)

type PromotionHandler struct {
	promotions *services.PromotionScheduler
	boosts     *services.BoostSales
	products   *services.ProductService
}

func NewPromotionHandler(svc *services.Services) *PromotionHandler {
	return &PromotionHandler{promotions: svc.Promotions, boosts: svc.Boosts, products: svc.Products}
}

type promotionRequest struct {
	ProductID       uint   `json:"productId" binding:"required"`
	PlanType        string `json:"planType" binding:"required"`
	PurchaseMethod  string `json:"purchaseMethod" binding:"required"`
	AcceptFullPrice bool   `json:"acceptFullPrice"`
}

// Create POST /api/promotions
func (h *PromotionHandler) Create(c *gin.Context) {
	var req promotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId, planType and purchaseMethod are required")
		return
	}
	promo, err := h.promotions.CreatePromotion(c.Request.Context(), currentUser(c), services.PurchaseRequest{
		ProductID:       req.ProductID,
		PlanType:        models.PlanType(req.PlanType),
		PurchaseMethod:  models.PurchaseMethod(req.PurchaseMethod),
		AcceptFullPrice: req.AcceptFullPrice,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"promotion": promo})
}

// Active GET /api/promotions?productId=
func (h *PromotionHandler) Active(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("productId"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid productId")
		return
	}
	// 隐藏的产品对普通用户按不存在处理
	if _, err := h.products.Get(c.Request.Context(), currentUser(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	promo, err := h.promotions.GetActivePromotion(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotion": promo})
}

// Availability GET /api/boost-availability?planType=
func (h *PromotionHandler) Availability(c *gin.Context) {
	avail, err := h.boosts.GetAvailability(c.Request.Context(), models.PlanType(c.Query("planType")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

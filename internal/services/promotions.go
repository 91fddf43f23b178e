package services

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"startuppush/internal/config"
	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/metrics"
	"startuppush/internal/models"
)

type PurchaseRequest struct {
	ProductID      uint
	PlanType       models.PlanType
	PurchaseMethod models.PurchaseMethod
	// AcceptFullPrice 售罄后仍按原价购买
	AcceptFullPrice bool
}

// PromotionScheduler 创建限时推广记录
type PromotionScheduler struct {
	*env
	points     *PointAccount
	boosts     *BoostSales
	plans      map[models.PlanType]config.Plan
	pointsCost int
}

func (s *PromotionScheduler) CreatePromotion(ctx context.Context, buyer *models.User, req PurchaseRequest) (*models.Promotion, error) {
	ctx, span := tracer.Start(ctx, "PromotionScheduler.CreatePromotion")
	defer span.End()
	span.SetAttributes(
		attribute.Int("product.id", int(req.ProductID)),
		attribute.String("plan", string(req.PlanType)),
		attribute.String("method", string(req.PurchaseMethod)),
	)

	if buyer == nil {
		return nil, ErrUnauthorized
	}
	plan, ok := s.plans[req.PlanType]
	if !req.PlanType.Valid() || !ok {
		return nil, validation("unknown plan type")
	}
	switch req.PurchaseMethod {
	case models.PurchasePayment, models.PurchasePoints:
	default:
		return nil, validation("purchase method must be payment or points")
	}
	// 积分套餐只能用积分买，付费套餐只能付费
	if plan.PricedInPoints != (req.PurchaseMethod == models.PurchasePoints) {
		return nil, validation("purchase method does not match plan")
	}
	if buyer.IsBanned(s.now()) {
		return nil, ErrUserRestricted
	}

	product, err := s.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, notFound(err)
	}
	if !product.Visible() {
		return nil, ErrNotFound
	}
	if product.UserID != buyer.ID && !buyer.IsAdmin() {
		return nil, ErrForbidden
	}

	avail, err := s.boosts.GetAvailability(ctx, req.PlanType)
	if err != nil {
		return nil, err
	}
	if avail.IsSoldOut && !req.AcceptFullPrice {
		return nil, ErrSoldOut
	}

	now := s.now()
	promo := &models.Promotion{
		ProductID:      product.ID,
		UserID:         buyer.ID,
		Type:           models.TypeForPlan(req.PlanType),
		Plan:           req.PlanType,
		PurchaseMethod: req.PurchaseMethod,
		Price:          avail.Price,
		StartDate:      now,
		EndDate:        now.Add(plan.Duration),
		IsActive:       true,
		CreatedAt:      now,
	}
	if req.PurchaseMethod == models.PurchasePoints {
		promo.Price = decimal.Zero
		promo.PointsSpent = s.pointsCost
	}

	err = s.store.Transaction(ctx, func(tx db.Store) error {
		active, err := tx.ValidPromotions(ctx, []uint{product.ID}, now)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return ErrPromotionActive
		}
		// 扣分失败则不创建推广
		if req.PurchaseMethod == models.PurchasePoints {
			if err := s.points.Debit(ctx, tx, buyer.ID, s.pointsCost, models.CategoryBoosting, ActionBoostPurchase); err != nil {
				return err
			}
		}
		return tx.CreatePromotion(ctx, promo)
	})
	if err != nil {
		return nil, err
	}

	// 计数失败只记日志，名额少算一次可以接受
	if err := s.boosts.RecordSale(ctx, req.PlanType); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("plan", string(req.PlanType)).Msg("failed to record boost sale")
	}
	s.invalidate()
	metrics.BoostSalesTotal.WithLabelValues(string(req.PlanType), string(req.PurchaseMethod)).Inc()
	logger.Ctx(ctx).Info().
		Uint("product_id", product.ID).
		Str("plan", string(req.PlanType)).
		Str("price", promo.Price.String()).
		Msg("promotion created")
	return promo, nil
}

// GetActivePromotion 当前有效的推广，多条同时有效时取结束最晚的一条；没有返回 nil
func (s *PromotionScheduler) GetActivePromotion(ctx context.Context, productID uint) (*models.Promotion, error) {
	promos, err := s.store.ValidPromotions(ctx, []uint{productID}, s.now())
	if err != nil {
		return nil, err
	}
	if len(promos) == 0 {
		return nil, nil
	}
	return &promos[0], nil
}

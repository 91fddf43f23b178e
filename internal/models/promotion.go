package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanType 可购买的推广套餐
type PlanType string

const (
	PlanBoosted    PlanType = "boosted"     // 7 天
	PlanMaxBoosted PlanType = "max-boosted" // 30 天
	PlanPoints     PlanType = "points"      // 24 小时，用积分兑换
)

func (p PlanType) Valid() bool {
	switch p {
	case PlanBoosted, PlanMaxBoosted, PlanPoints:
		return true
	}
	return false
}

// PromotionType 推广记录在排序中的档位
type PromotionType string

const (
	PromotionBoosted    PromotionType = "boosted"
	PromotionMaxBoosted PromotionType = "max-boosted"
)

// TypeForPlan 积分套餐按普通 boosted 档位展示
func TypeForPlan(p PlanType) PromotionType {
	if p == PlanMaxBoosted {
		return PromotionMaxBoosted
	}
	return PromotionBoosted
}

type PurchaseMethod string

const (
	PurchasePayment PurchaseMethod = "payment"
	PurchasePoints  PurchaseMethod = "points"
)

type Promotion struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProductID      uint            `gorm:"not null;index" json:"product_id"`
	Product        Product         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID         uint            `gorm:"not null;index" json:"user_id"` // 购买者
	Type           PromotionType   `gorm:"size:20;not null" json:"type"`
	Plan           PlanType        `gorm:"size:20;not null" json:"plan"`
	PurchaseMethod PurchaseMethod  `gorm:"size:20;not null" json:"purchase_method"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	PointsSpent    int             `gorm:"default:0" json:"points_spent"`
	StartDate      time.Time       `gorm:"not null" json:"start_date"`
	EndDate        time.Time       `gorm:"not null;index;check:end_date > start_date" json:"end_date"`
	IsActive       bool            `gorm:"default:true;not null" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ValidAt 只有 is_active 且未过期的推广参与排序
func (p *Promotion) ValidAt(now time.Time) bool {
	return p.IsActive && p.EndDate.After(now)
}

// Remaining 倒计时展示用
func (p *Promotion) Remaining(now time.Time) time.Duration {
	if !p.EndDate.After(now) {
		return 0
	}
	return p.EndDate.Sub(now)
}

// BoostSaleCounter 每月每个套餐一行，跨月自动生成新行
type BoostSaleCounter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Month     string    `gorm:"size:7;not null;uniqueIndex:idx_boost_month_plan" json:"month"` // 2006-01
	PlanType  PlanType  `gorm:"size:20;not null;uniqueIndex:idx_boost_month_plan" json:"plan_type"`
	SoldCount int64     `gorm:"not null;default:0" json:"sold_count"`
	MaxSpots  int64     `gorm:"not null" json:"max_spots"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"` // 折扣资格，售出数达到阈值后置为 false
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

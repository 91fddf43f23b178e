package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"startuppush/internal/config"
	"startuppush/internal/db"
	"startuppush/internal/models"
	"startuppush/internal/utils"
)

// SaleCounter 按 (月份, 套餐) 计数，新月份从 0 开始
type SaleCounter interface {
	Sold(ctx context.Context, month string, plan models.PlanType) (int64, error)
	// Increment 原子 +1，返回新的计数
	Increment(ctx context.Context, month string, plan models.PlanType) (int64, error)
}

// StoreSaleCounter 使用 boost_sale_counters 表
type StoreSaleCounter struct {
	store db.Store
	plans map[models.PlanType]config.Plan
}

func NewStoreSaleCounter(store db.Store, plans map[models.PlanType]config.Plan) *StoreSaleCounter {
	return &StoreSaleCounter{store: store, plans: plans}
}

func (c *StoreSaleCounter) Sold(ctx context.Context, month string, plan models.PlanType) (int64, error) {
	row, err := c.store.GetBoostCounter(ctx, month, plan)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.SoldCount, nil
}

func (c *StoreSaleCounter) Increment(ctx context.Context, month string, plan models.PlanType) (int64, error) {
	p := c.plans[plan]
	row, err := c.store.IncrementBoostCounter(ctx, month, plan, p.MaxSpots, p.DiscountThreshold)
	if err != nil {
		return 0, err
	}
	return row.SoldCount, nil
}

// RedisSaleCounter 多实例部署时用 Redis INCR 计数
type RedisSaleCounter struct {
	client counterClient
	prefix string
}

// counterClient 是 RedisSaleCounter 用到的 redis 命令子集，*redis.Client 满足
type counterClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// 计数键保留到下个月之后，过期由 Redis 清理
const redisCounterTTL = 40 * 24 * time.Hour

func NewRedisSaleCounter(client counterClient) *RedisSaleCounter {
	return &RedisSaleCounter{client: client, prefix: "boost:sold"}
}

func (c *RedisSaleCounter) key(month string, plan models.PlanType) string {
	return fmt.Sprintf("%s:{%s}:%s", c.prefix, month, plan)
}

func (c *RedisSaleCounter) Sold(ctx context.Context, month string, plan models.PlanType) (int64, error) {
	v, err := c.client.Get(ctx, c.key(month, plan)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "redis get sold count")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse sold count")
	}
	return n, nil
}

func (c *RedisSaleCounter) Increment(ctx context.Context, month string, plan models.PlanType) (int64, error) {
	key := c.key(month, plan)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "redis incr sold count")
	}
	// INCR 本身是原子的，TTL 设置失败不影响计数
	if err := c.client.Expire(ctx, key, redisCounterTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to set sold counter ttl")
	}
	return n, nil
}

type Availability struct {
	PlanType       models.PlanType `json:"planType"`
	Month          string          `json:"month"`
	SoldCount      int64           `json:"soldCount"`
	MaxSpots       int64           `json:"maxSpots"`
	RemainingSpots int64           `json:"remainingSpots"`
	IsSoldOut      bool            `json:"isSoldOut"`
	HasDiscount    bool            `json:"hasDiscount"`
	Price          decimal.Decimal `json:"price"`
	FullPrice      decimal.Decimal `json:"fullPrice"`
	DiscountPrice  decimal.Decimal `json:"discountPrice"`
	PointsCost     int             `json:"pointsCost,omitempty"`
}

// BoostSales 月度名额与折扣资格
type BoostSales struct {
	*env
	counter    SaleCounter
	plans      map[models.PlanType]config.Plan
	pointsCost int
}

func (b *BoostSales) GetAvailability(ctx context.Context, plan models.PlanType) (*Availability, error) {
	cfg, ok := b.plans[plan]
	if !plan.Valid() || !ok {
		return nil, validation("unknown plan type")
	}
	month := utils.MonthKey(b.now(), b.loc)
	sold, err := b.counter.Sold(ctx, month, plan)
	if err != nil {
		return nil, err
	}

	remaining := cfg.MaxSpots - sold
	if remaining < 0 {
		remaining = 0
	}
	a := &Availability{
		PlanType:       plan,
		Month:          month,
		SoldCount:      sold,
		MaxSpots:       cfg.MaxSpots,
		RemainingSpots: remaining,
		IsSoldOut:      remaining == 0,
		HasDiscount:    sold < cfg.DiscountThreshold,
		FullPrice:      cfg.FullPrice,
		DiscountPrice:  cfg.DiscountPrice,
	}
	a.Price = cfg.FullPrice
	if a.HasDiscount {
		a.Price = cfg.DiscountPrice
	}
	if cfg.PricedInPoints {
		a.PointsCost = b.pointsCost
	}
	return a, nil
}

// RecordSale 每次成功购买调用一次
func (b *BoostSales) RecordSale(ctx context.Context, plan models.PlanType) error {
	if _, ok := b.plans[plan]; !ok {
		return validation("unknown plan type")
	}
	_, err := b.counter.Increment(ctx, utils.MonthKey(b.now(), b.loc), plan)
	return err
}

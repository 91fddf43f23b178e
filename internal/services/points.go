package services

import (
	"context"

	"github.com/pkg/errors"

	"startuppush/internal/db"
	"startuppush/internal/metrics"
	"startuppush/internal/models"
	"startuppush/internal/utils"
)

// 积分动作描述
const (
	ActionUpvoteOther   = "upvoted a product"
	ActionDownvoteOther = "downvoted a product"
	ActionCommentCreate = "commented on a product"
	ActionFollow        = "followed a product"
	ActionShare         = "shared a product"
	ActionProductCreate = "launched a product"
	ActionBoostPurchase = "bought a points boost"
)

// PointAccount 用户积分账户。余额只通过 Credit / Debit 变动，每次变动都写一条 PointLog
type PointAccount struct {
	*env
	caps map[models.PointCategory]int
}

// Credit 增加积分。类别有每日上限且今天已达上限时不加分，返回 false，不算错误。
// st 可以是事务内的 Store
func (a *PointAccount) Credit(ctx context.Context, st db.Store, userID uint, amount int, category models.PointCategory, action string) (bool, error) {
	if amount <= 0 {
		return false, validation("credit amount must be positive")
	}
	if limit, capped := a.caps[category]; capped {
		since := utils.StartOfDay(a.now(), a.loc)
		n, err := st.CountActivitySince(ctx, userID, category, since)
		if err != nil {
			return false, err
		}
		if n >= int64(limit) {
			return false, nil
		}
	}

	entry := &models.PointLog{
		UserID:    userID,
		Amount:    amount,
		Category:  category,
		Action:    action,
		CreatedAt: a.now(),
	}
	if err := st.ApplyPoints(ctx, entry); err != nil {
		return false, notFound(err)
	}
	metrics.PointsAwarded.WithLabelValues(string(category)).Inc()
	return true, nil
}

// Debit 扣减积分，余额检查与扣减是同一个原子条件更新
func (a *PointAccount) Debit(ctx context.Context, st db.Store, userID uint, amount int, category models.PointCategory, action string) error {
	if amount <= 0 {
		return validation("debit amount must be positive")
	}
	entry := &models.PointLog{
		UserID:    userID,
		Amount:    -amount,
		Category:  category,
		Action:    action,
		CreatedAt: a.now(),
	}
	err := st.ApplyPoints(ctx, entry)
	if errors.Is(err, db.ErrInsufficientBalance) {
		return ErrInsufficientPoints
	}
	return notFound(err)
}

func (a *PointAccount) Balance(ctx context.Context, userID uint) (int, error) {
	u, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return 0, notFound(err)
	}
	return u.Points, nil
}

func (a *PointAccount) History(ctx context.Context, userID uint, limit int) ([]models.PointLog, error) {
	return a.store.ListPointLogs(ctx, userID, limit)
}

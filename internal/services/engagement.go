package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"startuppush/internal/db"
	"startuppush/internal/models"
)

// EngagementService 关注与分享
type EngagementService struct {
	*env
	points *PointAccount
}

func (s *EngagementService) target(ctx context.Context, user *models.User, productID uint) (*models.Product, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	if user.IsBanned(s.now()) {
		return nil, ErrUserRestricted
	}
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	if !p.Visible() {
		return nil, ErrNotFound
	}
	return p, nil
}

// Follow 关注别人的产品 +1 分 (following 类每日上限)
func (s *EngagementService) Follow(ctx context.Context, user *models.User, productID uint) (bool, error) {
	p, err := s.target(ctx, user, productID)
	if err != nil {
		return false, err
	}
	var awarded bool
	err = s.store.Transaction(ctx, func(tx db.Store) error {
		err := tx.CreateFollow(ctx, &models.Follow{UserID: user.ID, ProductID: productID, CreatedAt: s.now()})
		if errors.Is(err, db.ErrDuplicate) {
			return validation("already following this product")
		}
		if err != nil {
			return notFound(err)
		}
		if p.UserID == user.ID {
			return nil
		}
		awarded, err = s.points.Credit(ctx, tx, user.ID, 1, models.CategoryFollowing, ActionFollow)
		return err
	})
	return awarded, err
}

// Unfollow 取消关注不扣分
func (s *EngagementService) Unfollow(ctx context.Context, user *models.User, productID uint) error {
	if user == nil {
		return ErrUnauthorized
	}
	return notFound(s.store.DeleteFollow(ctx, user.ID, productID))
}

// Share 记录一次分享，分享别人的产品 +1 分 (sharing 类每日上限)
func (s *EngagementService) Share(ctx context.Context, user *models.User, productID uint, channel string) (bool, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		channel = "link"
	}
	if len(channel) > 32 {
		return false, validation("channel is too long")
	}
	p, err := s.target(ctx, user, productID)
	if err != nil {
		return false, err
	}
	var awarded bool
	err = s.store.Transaction(ctx, func(tx db.Store) error {
		if err := tx.CreateShare(ctx, &models.Share{UserID: user.ID, ProductID: productID, Channel: channel, CreatedAt: s.now()}); err != nil {
			return notFound(err)
		}
		if p.UserID == user.ID {
			return nil
		}
		var err error
		awarded, err = s.points.Credit(ctx, tx, user.ID, 1, models.CategorySharing, ActionShare)
		return err
	})
	return awarded, err
}

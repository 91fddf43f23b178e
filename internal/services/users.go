package services

import (
	"context"
	"time"

	"startuppush/internal/logger"
	"startuppush/internal/models"
)

var userStatusByName = map[string]int{
	"normal": models.UserStatusNormal,
	"muted":  models.UserStatusMuted,
	"banned": models.UserStatusBanned,
}

type UserService struct {
	*env
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	return u, notFound(err)
}

// SetStatus 管理员禁言/封禁用户，days <= 0 表示永久
func (s *UserService) SetStatus(ctx context.Context, actor *models.User, userID uint, status string, days int) (*models.User, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	code, ok := userStatusByName[status]
	if !ok {
		return nil, validation("status must be normal, muted or banned")
	}
	if actor.ID == userID && code != models.UserStatusNormal {
		return nil, validation("you cannot punish yourself")
	}

	var expires *time.Time
	if code != models.UserStatusNormal && days > 0 {
		t := s.now().AddDate(0, 0, days)
		expires = &t
	}
	if err := s.store.UpdateUserStatus(ctx, userID, code, expires); err != nil {
		return nil, notFound(err)
	}
	logger.Ctx(ctx).Info().Uint("user_id", userID).Str("status", status).Int("days", days).Uint("actor", actor.ID).Msg("user status changed")
	return s.Get(ctx, userID)
}

package services

import (
	"context"

	"startuppush/internal/models"
)

const inboxLimit = 50

// InboxService 站内通知 (拉取模式)
type InboxService struct {
	*env
}

func (s *InboxService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, userID, inboxLimit)
}

func (s *InboxService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *InboxService) MarkRead(ctx context.Context, userID, id uint) error {
	return notFound(s.store.MarkNotificationRead(ctx, userID, id))
}

func (s *InboxService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *InboxService) Delete(ctx context.Context, userID, id uint) error {
	return notFound(s.store.DeleteNotification(ctx, userID, id))
}

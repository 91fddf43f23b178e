package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/models"
)

type ReportResult struct {
	Reports int64 `json:"reports"`
	Jailed  bool  `json:"jailed"`
}

// ReportService 用户举报。同一资源累计举报达到阈值后自动隐藏
type ReportService struct {
	*env
	moderation *Moderator
	threshold  int
}

func (s *ReportService) Report(ctx context.Context, reporter *models.User, resource models.ResourceType, id uint, reason string) (*ReportResult, error) {
	if reporter == nil {
		return nil, ErrUnauthorized
	}
	if reporter.IsBanned(s.now()) {
		return nil, ErrUserRestricted
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validation("reason is required")
	}
	if utf8.RuneCountInString(reason) > 200 {
		return nil, validation("reason must be at most 200 characters")
	}

	var ownerID, productID, commentID uint
	var status models.ModerationStatus
	switch resource {
	case models.ResourceProduct:
		p, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		if !p.Visible() {
			return nil, ErrNotFound
		}
		ownerID, productID, status = p.UserID, p.ID, p.Status
	case models.ResourceComment:
		c, err := s.store.GetComment(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		if c.Status != models.StatusActive {
			return nil, ErrNotFound
		}
		ownerID, productID, commentID, status = c.UserID, c.ProductID, c.ID, c.Status
	default:
		return nil, validation("resourceType must be product or comment")
	}
	if ownerID == reporter.ID {
		return nil, validation("you cannot report your own content")
	}

	err := s.store.CreateReport(ctx, &models.Report{
		UserID:       reporter.ID,
		ResourceType: resource,
		ResourceID:   id,
		Reason:       reason,
		CreatedAt:    s.now(),
	})
	if errors.Is(err, db.ErrDuplicate) {
		return nil, validation("you have already reported this")
	}
	if err != nil {
		return nil, err
	}

	admins, err := s.store.ListAdminIDs(ctx)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("list admins for report notification")
	}
	for _, adminID := range admins {
		s.emitter.Emit(ctx, Event{
			Type:        models.NotificationTypeReport,
			RecipientID: adminID,
			ActorID:     reporter.ID,
			ProductID:   productID,
			CommentID:   commentID,
			Title:       "New report",
			Message:     fmt.Sprintf("%s reported a %s: %s", reporter.Username, resource, reason),
			Payload:     map[string]interface{}{"resourceType": string(resource), "resourceId": id},
		})
	}

	count, err := s.store.CountReports(ctx, resource, id)
	if err != nil {
		return nil, err
	}
	res := &ReportResult{Reports: count}
	if s.threshold > 0 && count >= int64(s.threshold) && status == models.StatusActive {
		if _, err := s.moderation.apply(ctx, 0, resource, id, ActionJail); err != nil {
			return nil, err
		}
		res.Jailed = true
	}
	return res, nil
}

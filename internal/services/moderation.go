package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"startuppush/internal/logger"
	"startuppush/internal/metrics"
	"startuppush/internal/models"
)

type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionJail    ModerationAction = "jail"
	ActionDelete  ModerationAction = "delete"
)

func (a ModerationAction) Valid() bool {
	switch a {
	case ActionApprove, ActionJail, ActionDelete:
		return true
	}
	return false
}

// Transition 审核状态机唯一的迁移函数:
//
//	approve: pending | jailed -> active
//	jail:    pending | active -> jailed
//	delete:  任意状态 -> deleted
func Transition(from models.ModerationStatus, action ModerationAction) (models.ModerationStatus, error) {
	if from == models.StatusDeleted || !from.Valid() {
		return "", ErrInvalidTransition
	}
	switch action {
	case ActionApprove:
		if from == models.StatusPending || from == models.StatusJailed {
			return models.StatusActive, nil
		}
	case ActionJail:
		if from == models.StatusPending || from == models.StatusActive {
			return models.StatusJailed, nil
		}
	case ActionDelete:
		return models.StatusDeleted, nil
	default:
		return "", validation("unknown moderation action")
	}
	return "", ErrInvalidTransition
}

var moderationNotice = map[models.ResourceType]map[ModerationAction]models.NotificationType{
	models.ResourceProduct: {
		ActionApprove: models.NotificationProductApproved,
		ActionJail:    models.NotificationProductJailed,
		ActionDelete:  models.NotificationProductDeleted,
	},
	models.ResourceComment: {
		ActionApprove: models.NotificationCommentApproved,
		ActionJail:    models.NotificationCommentJailed,
		ActionDelete:  models.NotificationCommentDeleted,
	},
}

var actionPastTense = map[ModerationAction]string{
	ActionApprove: "approved",
	ActionJail:    "hidden by a moderator",
	ActionDelete:  "removed by a moderator",
}

type Moderator struct {
	*env
}

// Apply 管理员审核入口，非管理员在任何状态变化之前被拒绝
func (m *Moderator) Apply(ctx context.Context, actor *models.User, resource models.ResourceType, id uint, action ModerationAction) (models.ModerationStatus, error) {
	if actor == nil {
		return "", ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return "", ErrForbidden
	}
	return m.apply(ctx, actor.ID, resource, id, action)
}

// apply actorID 为 0 表示系统触发 (举报自动隐藏)
func (m *Moderator) apply(ctx context.Context, actorID uint, resource models.ResourceType, id uint, action ModerationAction) (models.ModerationStatus, error) {
	ctx, span := tracer.Start(ctx, "Moderator.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", string(resource)),
		attribute.Int("resource.id", int(id)),
		attribute.String("action", string(action)),
	)

	if !action.Valid() {
		return "", validation("action must be approve, jail or delete")
	}

	var (
		from      models.ModerationStatus
		ownerID   uint
		productID uint
		commentID uint
		label     string
	)
	switch resource {
	case models.ResourceProduct:
		p, err := m.store.GetProduct(ctx, id)
		if err != nil {
			return "", notFound(err)
		}
		from, ownerID, productID, label = p.Status, p.UserID, p.ID, fmt.Sprintf("product \"%s\"", p.Name)
	case models.ResourceComment:
		c, err := m.store.GetComment(ctx, id)
		if err != nil {
			return "", notFound(err)
		}
		from, ownerID, productID, commentID, label = c.Status, c.UserID, c.ProductID, c.ID, "comment"
	default:
		return "", validation("unknown resource type")
	}

	to, err := Transition(from, action)
	if err != nil {
		return "", err
	}

	ev := Event{
		Type:        moderationNotice[resource][action],
		RecipientID: ownerID,
		ActorID:     actorID,
		ProductID:   productID,
		CommentID:   commentID,
		Title:       "Moderation update",
		Message:     fmt.Sprintf("Your %s was %s.", label, actionPastTense[action]),
		Payload:     map[string]interface{}{"from": string(from), "to": string(to)},
	}

	if to == models.StatusDeleted {
		// 先发通知再删行，通知里的 id 只作为历史记录
		m.emitter.Emit(ctx, ev)
		if resource == models.ResourceProduct {
			err = m.store.DeleteProduct(ctx, id)
		} else {
			// 回复随父评论级联删除，各自作者也要收到通知
			replies, rerr := m.replies(ctx, productID, id)
			if rerr != nil {
				return "", rerr
			}
			for _, r := range replies {
				m.emitter.Emit(ctx, Event{
					Type:        models.NotificationCommentDeleted,
					RecipientID: r.UserID,
					ActorID:     actorID,
					ProductID:   productID,
					CommentID:   r.ID,
					Title:       "Moderation update",
					Message:     "Your reply was removed together with the comment it answered.",
					Payload:     map[string]interface{}{"from": string(r.Status), "to": string(models.StatusDeleted), "parent": id},
				})
			}
			err = m.store.DeleteComment(ctx, id)
		}
		if err != nil {
			return "", notFound(err)
		}
	} else {
		if resource == models.ResourceProduct {
			err = m.store.SetProductStatus(ctx, id, to)
		} else {
			err = m.store.SetCommentStatus(ctx, id, to)
		}
		if err != nil {
			return "", notFound(err)
		}
		m.emitter.Emit(ctx, ev)
	}

	m.invalidate()
	metrics.ModerationActions.WithLabelValues(string(resource), string(action)).Inc()
	logger.Ctx(ctx).Info().
		Str("resource", string(resource)).
		Uint("id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Uint("actor", actorID).
		Msg("moderation transition applied")
	return to, nil
}

// replies 返回 rootID 下所有层级的回复
func (m *Moderator) replies(ctx context.Context, productID, rootID uint) ([]models.Comment, error) {
	children := map[uint][]models.Comment{}
	for _, status := range []models.ModerationStatus{models.StatusPending, models.StatusActive, models.StatusJailed} {
		list, err := m.store.ListComments(ctx, productID, status)
		if err != nil {
			return nil, errors.Wrap(err, "list comments")
		}
		for _, c := range list {
			if c.ParentID != nil {
				children[*c.ParentID] = append(children[*c.ParentID], c)
			}
		}
	}
	var out []models.Comment
	queue := []uint{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			out = append(out, c)
			queue = append(queue, c.ID)
		}
	}
	return out, nil
}

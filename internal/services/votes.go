package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/metrics"
	"startuppush/internal/models"
	"startuppush/internal/utils"
)

type VoteResult struct {
	Upvotes       int64 `json:"upvotes"`
	Downvotes     int64 `json:"downvotes"`
	TotalVotes    int64 `json:"totalVotes"`
	Points        int64 `json:"points"`
	UserVote      int   `json:"userVote"`
	PointsAwarded bool  `json:"pointsAwarded"`
}

// VoteLedger 投票账本：每个 (用户, 产品) 只能投一次，投票不可修改、不可撤回
type VoteLedger struct {
	*env
	points *PointAccount
}

func (l *VoteLedger) CastVote(ctx context.Context, voter *models.User, productID uint, value int) (*VoteResult, error) {
	ctx, span := tracer.Start(ctx, "VoteLedger.CastVote")
	defer span.End()
	span.SetAttributes(attribute.Int("product.id", int(productID)), attribute.Int("vote.value", value))

	if value != models.VoteUp && value != models.VoteDown {
		return nil, validation("vote value must be 1 or -1")
	}
	if voter == nil {
		return nil, ErrUnauthorized
	}
	if voter.IsBanned(l.now()) {
		l.observe(value, "restricted")
		return nil, ErrUserRestricted
	}

	var product *models.Product
	var awarded bool
	err := l.store.Transaction(ctx, func(tx db.Store) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return notFound(err)
		}
		if !p.Visible() {
			return ErrNotFound
		}
		product = p

		if _, err := tx.GetVote(ctx, voter.ID, productID); err == nil {
			return ErrAlreadyVoted
		} else if !errors.Is(err, db.ErrNotFound) {
			return err
		}

		own := p.UserID == voter.ID
		if value == models.VoteDown && !own {
			// 至少要有 1 分才能踩别人
			u, err := tx.GetUser(ctx, voter.ID)
			if err != nil {
				return notFound(err)
			}
			if u.Points <= 0 {
				return ErrInsufficientPoints
			}
		}

		vote := &models.Vote{UserID: voter.ID, ProductID: productID, Value: value, CreatedAt: l.now()}
		if err := tx.CreateVote(ctx, vote); err != nil {
			// 并发重复投票由唯一索引兜底
			if errors.Is(err, db.ErrDuplicate) {
				return ErrAlreadyVoted
			}
			return err
		}

		// 给自己投票不影响个人积分
		if own {
			return nil
		}
		if value == models.VoteUp {
			awarded, err = l.points.Credit(ctx, tx, voter.ID, 1, models.CategoryVoting, ActionUpvoteOther)
			return err
		}
		return l.points.Debit(ctx, tx, voter.ID, 1, models.CategoryVoting, ActionDownvoteOther)
	})
	if err != nil {
		l.observe(value, outcomeOf(err))
		return nil, err
	}
	l.observe(value, "accepted")

	tally, err := l.Tally(ctx, productID)
	if err != nil {
		return nil, err
	}
	l.invalidate()

	kind := "upvoted"
	if value == models.VoteDown {
		kind = "downvoted"
	}
	l.emitter.Emit(ctx, Event{
		Type:        models.NotificationTypeVote,
		RecipientID: product.UserID,
		ActorID:     voter.ID,
		ProductID:   product.ID,
		Title:       "New vote",
		Message:     fmt.Sprintf("%s %s your product \"%s\"", voter.Username, kind, product.Name),
		Payload:     map[string]interface{}{"value": value},
	})

	logger.Ctx(ctx).Debug().Uint("product_id", productID).Int("value", value).Msg("vote recorded")
	return &VoteResult{
		Upvotes:       tally.Upvotes,
		Downvotes:     tally.Downvotes,
		TotalVotes:    tally.Total(),
		Points:        utils.ProductPoints(tally.Upvotes, tally.Downvotes),
		UserVote:      value,
		PointsAwarded: awarded,
	}, nil
}

// Tally 每次都从投票表重新统计
func (l *VoteLedger) Tally(ctx context.Context, productID uint) (db.Tally, error) {
	tallies, err := l.store.VoteTallies(ctx, []uint{productID})
	if err != nil {
		return db.Tally{}, err
	}
	return tallies[productID], nil
}

// UserVote 用户对产品的投票值，没投过返回 0
func (l *VoteLedger) UserVote(ctx context.Context, userID, productID uint) (int, error) {
	v, err := l.store.GetVote(ctx, userID, productID)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.Value, nil
}

func (l *VoteLedger) observe(value int, outcome string) {
	label := "up"
	if value == models.VoteDown {
		label = "down"
	}
	metrics.VotesTotal.WithLabelValues(label, outcome).Inc()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	}
	return "error"
}

package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/models"
	"startuppush/internal/utils"
)

const maxCommentLength = 5000

type CommentResult struct {
	Comment       *models.Comment `json:"comment"`
	Jailed        bool            `json:"jailed"`
	BadWordsFound []string        `json:"badWordsFound"`
	PointsAwarded bool            `json:"pointsAwarded"`
}

type CommentView struct {
	models.Comment
	ContentHTML template.HTML `json:"contentHtml"`
}

type CommentService struct {
	*env
	points *PointAccount
	filter *Filter
}

// Create 评论先过敏感词过滤，命中则直接 jailed，不加分也不通知
func (s *CommentService) Create(ctx context.Context, author *models.User, productID uint, content string, parentID *uint) (*CommentResult, error) {
	ctx, span := tracer.Start(ctx, "CommentService.Create")
	defer span.End()
	span.SetAttributes(attribute.Int("product.id", int(productID)))

	if author == nil {
		return nil, ErrUnauthorized
	}
	if author.IsMuted(s.now()) {
		return nil, ErrUserRestricted
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validation("content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, validation("comment is too long")
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	if !product.Visible() {
		return nil, ErrNotFound
	}

	var parent *models.Comment
	if parentID != nil {
		parent, err = s.store.GetComment(ctx, *parentID)
		if err != nil {
			return nil, notFound(err)
		}
		if parent.ProductID != productID {
			return nil, validation("parent comment belongs to another product")
		}
		if parent.Status != models.StatusActive {
			return nil, ErrNotFound
		}
	}

	scan := s.filter.Scan(content)
	status := models.StatusActive
	if scan.Flagged {
		status = models.StatusJailed
	}

	comment := &models.Comment{
		ProductID: productID,
		UserID:    author.ID,
		ParentID:  parentID,
		Content:   content,
		Status:    status,
		CreatedAt: s.now(),
	}
	var awarded bool
	err = s.store.Transaction(ctx, func(tx db.Store) error {
		// 先检查上限再写评论，计数里不包含这一条
		if !scan.Flagged && product.UserID != author.ID {
			var err error
			awarded, err = s.points.Credit(ctx, tx, author.ID, 1, models.CategoryCommenting, ActionCommentCreate)
			if err != nil {
				return err
			}
		}
		return notFound(tx.CreateComment(ctx, comment))
	})
	if err != nil {
		return nil, err
	}

	if scan.Flagged {
		logger.Ctx(ctx).Info().Uint("comment_id", comment.ID).Strs("matches", scan.Matches).Msg("comment jailed by filter")
	} else {
		s.notify(ctx, author, product, parent, comment)
	}

	return &CommentResult{
		Comment:       comment,
		Jailed:        scan.Flagged,
		BadWordsFound: scan.Matches,
		PointsAwarded: awarded,
	}, nil
}

// notify 回复通知父评论作者，产品所有者另收一条评论通知
func (s *CommentService) notify(ctx context.Context, author *models.User, product *models.Product, parent *models.Comment, c *models.Comment) {
	if parent != nil {
		s.emitter.Emit(ctx, Event{
			Type:        models.NotificationTypeReply,
			RecipientID: parent.UserID,
			ActorID:     author.ID,
			ProductID:   product.ID,
			CommentID:   c.ID,
			Title:       "New reply",
			Message:     fmt.Sprintf("%s replied to your comment on \"%s\"", author.Username, product.Name),
		})
		if parent.UserID == product.UserID {
			return
		}
	}
	s.emitter.Emit(ctx, Event{
		Type:        models.NotificationTypeComment,
		RecipientID: product.UserID,
		ActorID:     author.ID,
		ProductID:   product.ID,
		CommentID:   c.ID,
		Title:       "New comment",
		Message:     fmt.Sprintf("%s commented on \"%s\"", author.Username, product.Name),
	})
}

// List 只返回 active 评论，按时间正序平铺，前端按 parent_id 组装
func (s *CommentService) List(ctx context.Context, viewer *models.User, productID uint) ([]CommentView, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	if !product.Visible() && !viewer.IsAdmin() {
		return nil, ErrNotFound
	}
	comments, err := s.store.ListComments(ctx, productID, models.StatusActive)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, CommentView{Comment: c, ContentHTML: utils.RenderMarkdown(c.Content)})
	}
	return views, nil
}

// Get 被隐藏的评论对普通用户返回 not found
func (s *CommentService) Get(ctx context.Context, viewer *models.User, id uint) (*CommentView, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !viewer.IsAdmin() {
		if c.Status != models.StatusActive {
			return nil, ErrNotFound
		}
		p, err := s.store.GetProduct(ctx, c.ProductID)
		if err != nil {
			return nil, notFound(err)
		}
		if !p.Visible() {
			return nil, ErrNotFound
		}
	}
	return &CommentView{Comment: *c, ContentHTML: utils.RenderMarkdown(c.Content)}, nil
}

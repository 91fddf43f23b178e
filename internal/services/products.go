package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/models"
	"startuppush/internal/utils"
)

type ProductInput struct {
	Name        string
	Tagline     string
	Description string
	URL         string
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(utils.SanitizeText(in.Name))
	in.Tagline = strings.TrimSpace(utils.SanitizeText(in.Tagline))
	in.Description = strings.TrimSpace(utils.SanitizeHTML(in.Description))
	in.URL = strings.TrimSpace(in.URL)

	if in.Name == "" {
		return validation("name is required")
	}
	if utf8.RuneCountInString(in.Name) > 100 {
		return validation("name must be at most 100 characters")
	}
	if utf8.RuneCountInString(in.Tagline) > 200 {
		return validation("tagline must be at most 200 characters")
	}
	if utf8.RuneCountInString(in.Description) > 10000 {
		return validation("description is too long")
	}
	if in.URL != "" {
		u, err := url.Parse(in.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return validation("url must be an http(s) link")
		}
	}
	return nil
}

type ProductService struct {
	*env
	points *PointAccount
	filter *Filter
}

// Create 新产品直接 active，创建者自动投一票并获得一次性创建奖励
func (s *ProductService) Create(ctx context.Context, owner *models.User, in ProductInput) (*ProductView, error) {
	ctx, span := tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	if owner == nil {
		return nil, ErrUnauthorized
	}
	if owner.IsMuted(s.now()) {
		return nil, ErrUserRestricted
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	now := s.now()
	product := &models.Product{
		UserID:      owner.ID,
		Name:        in.Name,
		Tagline:     in.Tagline,
		Description: in.Description,
		URL:         in.URL,
		Status:      models.StatusActive,
		IsActive:    true,
		CreatedAt:   now,
	}
	err := s.store.Transaction(ctx, func(tx db.Store) error {
		if err := tx.CreateProduct(ctx, product); err != nil {
			return notFound(err)
		}
		if err := tx.CreateVote(ctx, &models.Vote{UserID: owner.ID, ProductID: product.ID, Value: models.VoteUp, CreatedAt: now}); err != nil {
			return err
		}
		_, err := s.points.Credit(ctx, tx, owner.ID, 1, models.CategoryCreation, ActionProductCreate)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.reviewDescription(ctx, owner.ID, product)

	product.Upvotes = 1
	product.Points = utils.ProductPoints(1, 0)
	return &ProductView{Product: *product, UserVote: models.VoteUp}, nil
}

// reviewDescription 描述命中敏感词时提醒管理员复查，不改变产品状态
func (s *ProductService) reviewDescription(ctx context.Context, actorID uint, p *models.Product) {
	res := s.filter.ScanHTML(p.Name + " " + p.Tagline + " " + p.Description)
	if !res.Flagged {
		return
	}
	admins, err := s.store.ListAdminIDs(ctx)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("list admins for product review")
		return
	}
	for _, adminID := range admins {
		s.emitter.Emit(ctx, Event{
			Type:        models.NotificationTypeReport,
			RecipientID: adminID,
			ActorID:     actorID,
			ProductID:   p.ID,
			Title:       "Product flagged by filter",
			Message:     fmt.Sprintf("Product \"%s\" matched: %s", p.Name, strings.Join(res.Matches, ", ")),
			Payload:     map[string]interface{}{"matches": res.Matches, "resourceType": string(models.ResourceProduct)},
		})
	}
}

// Get 普通用户看不到被隐藏或已下架的产品，管理员可以
func (s *ProductService) Get(ctx context.Context, viewer *models.User, id uint) (*ProductView, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !p.Visible() && !viewer.IsAdmin() {
		return nil, ErrNotFound
	}
	views, err := decorate(ctx, s.store, []models.Product{*p}, s.now())
	if err != nil {
		return nil, err
	}
	view := views[0]
	if viewer != nil {
		v, err := s.store.GetVote(ctx, viewer.ID, id)
		if err == nil {
			view.UserVote = v.Value
		} else if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}
	return &view, nil
}

// visible 写操作前的可见性检查
func (s *ProductService) visible(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !p.Visible() {
		return nil, ErrNotFound
	}
	return p, nil
}

// Update 只有产品所有者可以修改，修改后通知关注者
func (s *ProductService) Update(ctx context.Context, actor *models.User, id uint, in ProductInput) (*ProductView, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if actor.IsMuted(s.now()) {
		return nil, ErrUserRestricted
	}
	p, err := s.visible(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.ID {
		return nil, ErrForbidden
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p.Name, p.Tagline, p.Description, p.URL = in.Name, in.Tagline, in.Description, in.URL
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, notFound(err)
	}
	s.invalidate()
	s.reviewDescription(ctx, actor.ID, p)

	followers, err := s.store.ListFollowerIDs(ctx, id)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint("product_id", id).Msg("list followers for update notification")
	}
	for _, uid := range followers {
		s.emitter.Emit(ctx, Event{
			Type:        models.NotificationTypeUpdate,
			RecipientID: uid,
			ActorID:     actor.ID,
			ProductID:   id,
			Title:       "Product updated",
			Message:     fmt.Sprintf("\"%s\" has been updated", p.Name),
		})
	}
	return s.Get(ctx, actor, id)
}

// Delete 软删除：is_active=false，所有读取路径都不再返回
func (s *ProductService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if actor == nil {
		return ErrUnauthorized
	}
	p, err := s.visible(ctx, id)
	if err != nil {
		return err
	}
	if p.UserID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}
	p.IsActive = false
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return notFound(err)
	}
	s.invalidate()
	return nil
}

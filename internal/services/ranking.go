package services

import (
	"context"
	"sort"
	"time"

	"startuppush/internal/db"
	"startuppush/internal/models"
	"startuppush/internal/utils"
)

const (
	SortTop = "top"
	SortNew = "new"

	PageSize = 30
)

// ProductView 产品加上实时计算的票数、分数和当前推广
type ProductView struct {
	models.Product
	Promotion *models.Promotion `json:"promotion,omitempty"`
	UserVote  int               `json:"userVote"`
}

type Listing struct {
	Products []ProductView `json:"products"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	HasMore  bool          `json:"hasMore"`
}

// RankingService 产品排行。结果缓存 1 分钟，任何写操作都会清空缓存
type RankingService struct {
	*env
	cache *utils.Cache[[]ProductView]
}

func newRankingService(e *env) *RankingService {
	return &RankingService{env: e, cache: utils.NewCache[[]ProductView](16, time.Minute)}
}

func (r *RankingService) Purge() {
	r.cache.Purge()
}

func (r *RankingService) List(ctx context.Context, order string, page int) (*Listing, error) {
	if order == "" {
		order = SortTop
	}
	if order != SortTop && order != SortNew {
		return nil, validation("sort must be top or new")
	}
	if page < 1 {
		page = 1
	}

	all, ok := r.cache.Get(order)
	if !ok {
		var err error
		all, err = r.build(ctx, order)
		if err != nil {
			return nil, err
		}
		r.cache.Set(order, all)
	}

	out := &Listing{Page: page, PageSize: PageSize, Products: []ProductView{}}
	// 先比较页号再相乘，超大页号不会溢出
	if page-1 < (len(all)+PageSize-1)/PageSize {
		start := (page - 1) * PageSize
		end := start + PageSize
		if end > len(all) {
			end = len(all)
		}
		out.Products = append(out.Products, all[start:end]...)
		out.HasMore = end < len(all)
	}
	return out, nil
}

func (r *RankingService) build(ctx context.Context, order string) ([]ProductView, error) {
	ctx, span := tracer.Start(ctx, "RankingService.build")
	defer span.End()

	products, err := r.store.ListVisibleProducts(ctx)
	if err != nil {
		return nil, err
	}
	views, err := decorate(ctx, r.store, products, r.now())
	if err != nil {
		return nil, err
	}

	if order == SortTop {
		sort.SliceStable(views, func(i, j int) bool {
			a, b := views[i], views[j]
			if ta, tb := promotionTier(a.Promotion), promotionTier(b.Promotion); ta != tb {
				return ta > tb
			}
			if a.Points != b.Points {
				return a.Points > b.Points
			}
			return a.CreatedAt.After(b.CreatedAt)
		})
	} else {
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		})
	}
	return views, nil
}

// decorate 批量补齐票数、分数与当前推广
func decorate(ctx context.Context, st db.Store, products []models.Product, now time.Time) ([]ProductView, error) {
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	tallies, err := st.VoteTallies(ctx, ids)
	if err != nil {
		return nil, err
	}
	promos, err := st.ValidPromotions(ctx, ids, now)
	if err != nil {
		return nil, err
	}
	// 按 end_date 降序返回，第一条即结束最晚的一条
	current := make(map[uint]*models.Promotion, len(promos))
	for i := range promos {
		if _, seen := current[promos[i].ProductID]; !seen {
			current[promos[i].ProductID] = &promos[i]
		}
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		t := tallies[p.ID]
		p.Upvotes, p.Downvotes = t.Upvotes, t.Downvotes
		p.Points = utils.ProductPoints(t.Upvotes, t.Downvotes)
		views = append(views, ProductView{Product: p, Promotion: current[p.ID]})
	}
	return views, nil
}

func promotionTier(p *models.Promotion) int {
	switch {
	case p == nil:
		return 0
	case p.Type == models.PromotionMaxBoosted:
		return 2
	default:
		return 1
	}
}

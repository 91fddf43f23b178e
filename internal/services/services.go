package services

import (
	"time"

	"go.opentelemetry.io/otel"

	"startuppush/internal/config"
	"startuppush/internal/db"
)

var tracer = otel.Tracer("startuppush/services")

// env 各个服务共享的依赖
type env struct {
	store   db.Store
	emitter Emitter
	loc     *time.Location
	now     func() time.Time
	purge   func() // 写操作后清空排行缓存
}

func (e *env) invalidate() {
	if e.purge != nil {
		e.purge()
	}
}

type Deps struct {
	Store    db.Store
	Emitter  Emitter
	Counter  SaleCounter // nil 时使用数据库计数器
	Policy   config.Policy
	Location *time.Location
}

type Services struct {
	Filter     *Filter
	Points     *PointAccount
	Votes      *VoteLedger
	Moderation *Moderator
	Boosts     *BoostSales
	Promotions *PromotionScheduler
	Ranking    *RankingService
	Products   *ProductService
	Comments   *CommentService
	Engagement *EngagementService
	Reports    *ReportService
	Users      *UserService
	Inbox      *InboxService

	env *env
}

func New(d Deps) *Services {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	emitter := d.Emitter
	if emitter == nil {
		emitter = NopEmitter{}
	}
	e := &env{store: d.Store, emitter: emitter, loc: loc, now: time.Now}

	counter := d.Counter
	if counter == nil {
		counter = NewStoreSaleCounter(d.Store, d.Policy.Plans)
	}

	s := &Services{env: e}
	s.Filter = NewFilter(d.Policy.BannedWords)
	s.Ranking = newRankingService(e)
	e.purge = s.Ranking.Purge
	s.Points = &PointAccount{env: e, caps: d.Policy.DailyCaps}
	s.Votes = &VoteLedger{env: e, points: s.Points}
	s.Moderation = &Moderator{env: e}
	s.Boosts = &BoostSales{env: e, counter: counter, plans: d.Policy.Plans, pointsCost: d.Policy.PointsBoostCost}
	s.Promotions = &PromotionScheduler{env: e, points: s.Points, boosts: s.Boosts, plans: d.Policy.Plans, pointsCost: d.Policy.PointsBoostCost}
	s.Products = &ProductService{env: e, points: s.Points, filter: s.Filter}
	s.Comments = &CommentService{env: e, points: s.Points, filter: s.Filter}
	s.Engagement = &EngagementService{env: e, points: s.Points}
	s.Reports = &ReportService{env: e, moderation: s.Moderation, threshold: d.Policy.ReportJailThreshold}
	s.Users = &UserService{env: e}
	s.Inbox = &InboxService{env: e}
	return s
}

// SetClock 替换所有服务使用的时钟
func (s *Services) SetClock(now func() time.Time) {
	s.env.now = now
}

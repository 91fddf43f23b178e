package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"startuppush/internal/config"
	"startuppush/internal/db"
	"startuppush/internal/models"
)

// recorder 记录所有发出的通知事件，供断言使用
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t models.NotificationType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// 固定时钟：2026-03-15 12:00 UTC
var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Services
	store *db.Memory
	rec   *recorder
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPolicy(t, config.DefaultPolicy())
}

func newFixtureWithPolicy(t *testing.T, policy config.Policy) *fixture {
	t.Helper()
	f := &fixture{store: db.NewMemory(), rec: &recorder{}, now: testNow}
	f.svc = New(Deps{Store: f.store, Emitter: f.rec, Policy: policy, Location: time.UTC})
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) user(t *testing.T, name string, points int) *models.User {
	t.Helper()
	u := &models.User{Username: name, Points: points}
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

func (f *fixture) admin(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Role: models.RoleAdmin}
	if err := f.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

// product 直接写库，不经过 ProductService，因此没有创建者的自动投票
func (f *fixture) product(t *testing.T, owner *models.User, name string) *models.Product {
	t.Helper()
	p := &models.Product{
		UserID:    owner.ID,
		Name:      name,
		Status:    models.StatusActive,
		IsActive:  true,
		CreatedAt: f.now,
	}
	if err := f.store.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	return p
}

func (f *fixture) balance(t *testing.T, u *models.User) int {
	t.Helper()
	b, err := f.svc.Points.Balance(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	return b
}

func (f *fixture) tally(t *testing.T, p *models.Product) db.Tally {
	t.Helper()
	tally, err := f.svc.Votes.Tally(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	return tally
}

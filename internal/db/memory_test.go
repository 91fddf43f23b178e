package db

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"startuppush/internal/models"
)

func seedUser(t *testing.T, m *Memory, points int) *models.User {
	t.Helper()
	u := &models.User{Username: "u", Points: points}
	if err := m.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, 0)

	boom := errors.New("boom")
	err := m.Transaction(ctx, func(tx Store) error {
		p := &models.Product{UserID: u.ID, Name: "p", Status: models.StatusActive, IsActive: true}
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		if err := tx.ApplyPoints(ctx, &models.PointLog{UserID: u.ID, Amount: 5, Category: models.CategoryCreation, Action: "x"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	products, _ := m.ListVisibleProducts(ctx)
	if len(products) != 0 {
		t.Errorf("Expected product rolled back, got %d", len(products))
	}
	got, _ := m.GetUser(ctx, u.ID)
	if got.Points != 0 {
		t.Errorf("Expected points rolled back, got %d", got.Points)
	}
	logs, _ := m.ListPointLogs(ctx, u.ID, 10)
	if len(logs) != 0 {
		t.Errorf("Expected no point logs, got %d", len(logs))
	}
}

func TestApplyPointsConditionalDebit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, 2)

	err := m.ApplyPoints(ctx, &models.PointLog{UserID: u.ID, Amount: -3, Category: models.CategoryBoosting, Action: "x"})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if err := m.ApplyPoints(ctx, &models.PointLog{UserID: u.ID, Amount: -2, Category: models.CategoryBoosting, Action: "x"}); err != nil {
		t.Fatal(err)
	}
	got, _ := m.GetUser(ctx, u.ID)
	if got.Points != 0 {
		t.Errorf("Expected 0, got %d", got.Points)
	}
	if err := m.ApplyPoints(ctx, &models.PointLog{UserID: 999, Amount: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCountActivitySince(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := seedUser(t, m, 5)
	midnight := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	entries := []models.PointLog{
		{UserID: u.ID, Amount: 1, Category: models.CategoryVoting, CreatedAt: midnight.Add(-time.Minute)},
		{UserID: u.ID, Amount: 1, Category: models.CategoryVoting, CreatedAt: midnight},
		{UserID: u.ID, Amount: 1, Category: models.CategoryVoting, CreatedAt: midnight.Add(time.Hour)},
		{UserID: u.ID, Amount: -1, Category: models.CategoryVoting, CreatedAt: midnight.Add(time.Hour)},
		{UserID: u.ID, Amount: 1, Category: models.CategorySharing, CreatedAt: midnight.Add(time.Hour)},
	}
	for i := range entries {
		if err := m.ApplyPoints(ctx, &entries[i]); err != nil {
			t.Fatal(err)
		}
	}
	n, err := m.CountActivitySince(ctx, u.ID, models.CategoryVoting, midnight)
	if err != nil {
		t.Fatal(err)
	}
	// 只统计零点之后的加分记录，扣分不算
	if n != 2 {
		t.Errorf("Expected 2, got %d", n)
	}
}

func TestDuplicatesAndCascade(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	owner := seedUser(t, m, 0)
	voter := seedUser(t, m, 0)
	p := &models.Product{UserID: owner.ID, Name: "p", Status: models.StatusActive, IsActive: true}
	if err := m.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}

	if err := m.CreateVote(ctx, &models.Vote{UserID: voter.ID, ProductID: p.ID, Value: 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateVote(ctx, &models.Vote{UserID: voter.ID, ProductID: p.ID, Value: -1}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
	if err := m.CreateFollow(ctx, &models.Follow{UserID: voter.ID, ProductID: p.ID}); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateFollow(ctx, &models.Follow{UserID: voter.ID, ProductID: p.ID}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
	c := &models.Comment{ProductID: p.ID, UserID: voter.ID, Content: "hi"}
	if err := m.CreateComment(ctx, c); err != nil {
		t.Fatal(err)
	}

	if err := m.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetVote(ctx, voter.ID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected vote cascaded, got %v", err)
	}
	if _, err := m.GetComment(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected comment cascaded, got %v", err)
	}
	if ids, _ := m.ListFollowerIDs(ctx, p.ID); len(ids) != 0 {
		t.Errorf("Expected follows cascaded, got %v", ids)
	}
}

func TestBoostCounter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.GetBoostCounter(ctx, "2026-05", models.PlanBoosted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for new month, got %v", err)
	}
	var last *models.BoostSaleCounter
	for i := 0; i < 3; i++ {
		c, err := m.IncrementBoostCounter(ctx, "2026-05", models.PlanBoosted, 150, 2)
		if err != nil {
			t.Fatal(err)
		}
		last = c
	}
	if last.SoldCount != 3 || last.IsActive || last.MaxSpots != 150 {
		t.Errorf("unexpected counter %+v", last)
	}
	other, err := m.IncrementBoostCounter(ctx, "2026-06", models.PlanBoosted, 150, 2)
	if err != nil {
		t.Fatal(err)
	}
	if other.SoldCount != 1 || !other.IsActive {
		t.Errorf("new month must start fresh, got %+v", other)
	}
}

func TestValidPromotionsOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	owner := seedUser(t, m, 0)
	p := &models.Product{UserID: owner.ID, Name: "p", Status: models.StatusActive, IsActive: true}
	if err := m.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	promos := []models.Promotion{
		{ProductID: p.ID, StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-time.Hour), IsActive: true},
		{ProductID: p.ID, StartDate: now, EndDate: now.Add(24 * time.Hour), IsActive: true},
		{ProductID: p.ID, StartDate: now, EndDate: now.Add(72 * time.Hour), IsActive: true},
		{ProductID: p.ID, StartDate: now, EndDate: now.Add(96 * time.Hour), IsActive: false},
	}
	for i := range promos {
		if err := m.CreatePromotion(ctx, &promos[i]); err != nil {
			t.Fatal(err)
		}
	}
	got, err := m.ValidPromotions(ctx, []uint{p.ID}, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != promos[2].ID {
		t.Errorf("Expected 2 valid promotions latest first, got %+v", got)
	}
}

package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"startuppush/internal/models"
)

func (f *fixture) promote(t *testing.T, p *models.Product, typ models.PromotionType, d time.Duration) {
	t.Helper()
	plan := models.PlanBoosted
	if typ == models.PromotionMaxBoosted {
		plan = models.PlanMaxBoosted
	}
	err := f.store.CreatePromotion(context.Background(), &models.Promotion{
		ProductID:      p.ID,
		UserID:         p.UserID,
		Type:           typ,
		Plan:           plan,
		PurchaseMethod: models.PurchasePayment,
		Price:          decimal.RequireFromString("1"),
		StartDate:      f.now,
		EndDate:        f.now.Add(d),
		IsActive:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTopListingOrdersByPromotionThenPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", 0)

	popular := f.product(t, owner, "popular")
	boosted := f.product(t, owner, "boosted")
	maxed := f.product(t, owner, "maxed")
	expired := f.product(t, owner, "expired")
	for i := 0; i < 3; i++ {
		u := f.user(t, "fan", 0)
		if _, err := f.svc.Votes.CastVote(ctx, u, popular.ID, models.VoteUp); err != nil {
			t.Fatal(err)
		}
	}
	f.promote(t, boosted, models.PromotionBoosted, 7*24*time.Hour)
	f.promote(t, maxed, models.PromotionMaxBoosted, 30*24*time.Hour)
	f.promote(t, expired, models.PromotionMaxBoosted, time.Hour)

	f.now = f.now.Add(2 * time.Hour)
	f.svc.Ranking.Purge()
	listing, err := f.svc.Ranking.List(ctx, SortTop, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint{maxed.ID, boosted.ID, popular.ID, expired.ID}
	if len(listing.Products) != len(want) {
		t.Fatalf("Expected %d products, got %d", len(want), len(listing.Products))
	}
	for i, id := range want {
		if listing.Products[i].ID != id {
			t.Errorf("position %d: Expected %d, got %d (%s)", i, id, listing.Products[i].ID, listing.Products[i].Name)
		}
	}
	if listing.Products[2].Points != 30 {
		t.Errorf("Expected 30 points, got %d", listing.Products[2].Points)
	}
	if listing.Products[3].Promotion != nil {
		t.Error("expired promotion must not be attached")
	}
}

func TestListingCacheInvalidatedOnVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", 0)
	a := f.product(t, owner, "a")
	b := f.product(t, owner, "b")

	first, err := f.svc.Ranking.List(ctx, SortTop, 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.Products[0].Points != 0 {
		t.Fatalf("unexpected listing %+v", first.Products)
	}

	voter := f.user(t, "voter", 0)
	target := b
	if first.Products[0].ID == b.ID {
		target = a
	}
	if _, err := f.svc.Votes.CastVote(ctx, voter, target.ID, models.VoteUp); err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Ranking.List(ctx, SortTop, 1)
	if err != nil {
		t.Fatal(err)
	}
	if second.Products[0].ID != target.ID || second.Products[0].Points != 10 {
		t.Errorf("Expected voted product first after invalidation, got %+v", second.Products[0].Product)
	}
}

func TestListingPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", 0)
	var last *models.Product
	for i := 0; i < PageSize+1; i++ {
		f.now = f.now.Add(time.Minute)
		last = f.product(t, owner, "p")
	}

	page1, err := f.svc.Ranking.List(ctx, SortNew, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1.Products) != PageSize || !page1.HasMore {
		t.Errorf("unexpected first page: %d products, hasMore=%v", len(page1.Products), page1.HasMore)
	}
	if page1.Products[0].ID != last.ID {
		t.Errorf("Expected newest product first")
	}
	page2, err := f.svc.Ranking.List(ctx, SortNew, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2.Products) != 1 || page2.HasMore {
		t.Errorf("unexpected second page: %+v", page2)
	}
	if _, err := f.svc.Ranking.List(ctx, "hot", 1); err == nil {
		t.Error("Expected error for unknown sort")
	}
}

func TestListingHugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", 0)
	f.product(t, owner, "only")

	for _, page := range []int{307445734561825862, math.MaxInt} {
		listing, err := f.svc.Ranking.List(context.Background(), SortTop, page)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(listing.Products) != 0 || listing.HasMore {
			t.Errorf("page %d: Expected empty page, got %+v", page, listing)
		}
	}
}

package services

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"startuppush/internal/config"
	"startuppush/internal/models"
)

func TestReportsAutoJailAtThreshold(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.ReportJailThreshold = 3
	f := newFixtureWithPolicy(t, policy)
	ctx := context.Background()
	admin := f.admin(t, "admin")
	owner := f.user(t, "owner", 0)
	p := f.product(t, owner, "Dubious")

	for i := 0; i < 3; i++ {
		reporter := f.user(t, "reporter", 0)
		res, err := f.svc.Reports.Report(ctx, reporter, models.ResourceProduct, p.ID, "looks like spam")
		if err != nil {
			t.Fatalf("report %d failed: %v", i, err)
		}
		if res.Reports != int64(i+1) {
			t.Errorf("Expected %d reports, got %d", i+1, res.Reports)
		}
		if want := i == 2; res.Jailed != want {
			t.Errorf("report %d: Expected Jailed=%v", i, want)
		}
	}

	got, err := f.store.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusJailed {
		t.Errorf("Expected jailed product, got %s", got.Status)
	}
	reports := f.rec.ofType(models.NotificationTypeReport)
	if len(reports) != 3 {
		t.Errorf("Expected 3 report events, got %d", len(reports))
	}
	for _, ev := range reports {
		if ev.RecipientID != admin.ID {
			t.Errorf("report event sent to %d", ev.RecipientID)
		}
	}
	jailed := f.rec.ofType(models.NotificationProductJailed)
	if len(jailed) != 1 || jailed[0].ActorID != 0 || jailed[0].RecipientID != owner.ID {
		t.Errorf("Expected system jail event for owner, got %+v", jailed)
	}
}

func TestReportRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", 0)
	reporter := f.user(t, "reporter", 0)
	p := f.product(t, owner, "Fine")

	if _, err := f.svc.Reports.Report(ctx, owner, models.ResourceProduct, p.ID, "mine"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for own content, got %v", err)
	}
	if _, err := f.svc.Reports.Report(ctx, reporter, models.ResourceProduct, p.ID, " "); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty reason, got %v", err)
	}
	if _, err := f.svc.Reports.Report(ctx, reporter, "user", p.ID, "bad"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for resource type, got %v", err)
	}
	if _, err := f.svc.Reports.Report(ctx, reporter, models.ResourceProduct, p.ID, "bad"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Reports.Report(ctx, reporter, models.ResourceProduct, p.ID, "again"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for duplicate report, got %v", err)
	}
	if _, err := f.svc.Reports.Report(ctx, reporter, models.ResourceComment, 12345, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

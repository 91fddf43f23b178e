package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"startuppush/internal/models"
)

func TestSetStatusBanAndExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t, "admin")
	troll := f.user(t, "troll", 10)
	owner := f.user(t, "owner", 0)
	p := f.product(t, owner, "p")

	if _, err := f.svc.Users.SetStatus(ctx, troll, owner.ID, "banned", 1); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.Users.SetStatus(ctx, admin, troll.ID, "exiled", 1); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.Users.SetStatus(ctx, admin, admin.ID, "banned", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for self punishment, got %v", err)
	}

	banned, err := f.svc.Users.SetStatus(ctx, admin, troll.ID, "banned", 1)
	if err != nil {
		t.Fatal(err)
	}
	if banned.Status != models.UserStatusBanned || banned.PunishExpires == nil {
		t.Fatalf("unexpected user %+v", banned)
	}
	if _, err := f.svc.Votes.CastVote(ctx, banned, p.ID, models.VoteUp); !errors.Is(err, ErrUserRestricted) {
		t.Errorf("Expected ErrUserRestricted, got %v", err)
	}
	if _, err := f.svc.Comments.Create(ctx, banned, p.ID, "hello", nil); !errors.Is(err, ErrUserRestricted) {
		t.Errorf("banned users are also muted, got %v", err)
	}

	f.now = f.now.Add(25 * time.Hour)
	if _, err := f.svc.Votes.CastVote(ctx, banned, p.ID, models.VoteUp); err != nil {
		t.Errorf("Expected ban to expire: %v", err)
	}

	forever, err := f.svc.Users.SetStatus(ctx, admin, troll.ID, "muted", 0)
	if err != nil {
		t.Fatal(err)
	}
	if forever.PunishExpires != nil {
		t.Errorf("Expected permanent mute, got %v", forever.PunishExpires)
	}
}

func TestInbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", 0)
	other := f.user(t, "other", 0)
	err := f.store.CreateNotifications(ctx, []models.Notification{
		{UserID: u.ID, Type: models.NotificationTypeVote, Title: "a"},
		{UserID: u.ID, Type: models.NotificationTypeComment, Title: "b"},
		{UserID: other.ID, Type: models.NotificationTypeVote, Title: "c"},
	})
	if err != nil {
		t.Fatal(err)
	}

	list, err := f.svc.Inbox.List(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(list))
	}
	if n, _ := f.svc.Inbox.UnreadCount(ctx, u.ID); n != 2 {
		t.Errorf("Expected 2 unread, got %d", n)
	}
	// 不能操作别人的通知
	otherList, _ := f.svc.Inbox.List(ctx, other.ID)
	if err := f.svc.Inbox.MarkRead(ctx, u.ID, otherList[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := f.svc.Inbox.MarkRead(ctx, u.ID, list[0].ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := f.svc.Inbox.UnreadCount(ctx, u.ID); n != 1 {
		t.Errorf("Expected 1 unread, got %d", n)
	}
	if err := f.svc.Inbox.MarkAllRead(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := f.svc.Inbox.UnreadCount(ctx, u.ID); n != 0 {
		t.Errorf("Expected 0 unread, got %d", n)
	}
	if err := f.svc.Inbox.Delete(ctx, u.ID, list[1].ID); err != nil {
		t.Fatal(err)
	}
	if list, _ = f.svc.Inbox.List(ctx, u.ID); len(list) != 1 {
		t.Errorf("Expected 1 notification after delete, got %d", len(list))
	}
	if n, _ := f.svc.Inbox.UnreadCount(ctx, other.ID); n != 1 {
		t.Errorf("other user's inbox must be untouched, got %d unread", n)
	}
}

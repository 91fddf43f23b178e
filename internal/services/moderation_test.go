package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"startuppush/internal/config"
	"startuppush/internal/db"
	"startuppush/internal/models"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   models.ModerationStatus
		action ModerationAction
		want   models.ModerationStatus
		err    error
	}{
		{models.StatusPending, ActionApprove, models.StatusActive, nil},
		{models.StatusJailed, ActionApprove, models.StatusActive, nil},
		{models.StatusActive, ActionApprove, "", ErrInvalidTransition},
		{models.StatusPending, ActionJail, models.StatusJailed, nil},
		{models.StatusActive, ActionJail, models.StatusJailed, nil},
		{models.StatusJailed, ActionJail, "", ErrInvalidTransition},
		{models.StatusPending, ActionDelete, models.StatusDeleted, nil},
		{models.StatusActive, ActionDelete, models.StatusDeleted, nil},
		{models.StatusJailed, ActionDelete, models.StatusDeleted, nil},
		{models.StatusDeleted, ActionApprove, "", ErrInvalidTransition},
		{models.StatusDeleted, ActionDelete, "", ErrInvalidTransition},
		{models.StatusActive, "bury", "", ErrValidation},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.action)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Errorf("%s --%s--> Expected %v, got %v", tc.from, tc.action, tc.err, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%s --%s--> Expected %s, got %s (%v)", tc.from, tc.action, tc.want, got, err)
		}
	}
}

func TestJailCommentHidesItAndNotifiesAuthor(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory()
	dispatcher := NewDispatcher(NewStoreSink(store))
	svc := New(Deps{Store: store, Emitter: dispatcher, Policy: config.DefaultPolicy(), Location: time.UTC})

	admin := &models.User{Username: "admin", Role: models.RoleAdmin}
	owner := &models.User{Username: "owner"}
	author := &models.User{Username: "author"}
	reader := &models.User{Username: "reader"}
	for _, u := range []*models.User{admin, owner, author, reader} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	p := &models.Product{UserID: owner.ID, Name: "Target", Status: models.StatusActive, IsActive: true}
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Comments.Create(ctx, author, p.ID, "great product", nil)
	if err != nil {
		t.Fatal(err)
	}
	c := res.Comment

	to, err := svc.Moderation.Apply(ctx, admin, models.ResourceComment, c.ID, ActionJail)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if to != models.StatusJailed {
		t.Errorf("Expected jailed, got %s", to)
	}

	list, err := svc.Comments.List(ctx, reader, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("Expected jailed comment to be hidden, got %d comments", len(list))
	}
	if _, err := svc.Comments.Get(ctx, reader, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for non-admin, got %v", err)
	}
	if _, err := svc.Comments.Get(ctx, admin, c.ID); err != nil {
		t.Errorf("admin should still see the comment: %v", err)
	}

	// 关闭后队列已排空，通知已落库
	dispatcher.Close()
	ns, err := store.ListNotifications(ctx, author.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range ns {
		if n.Type == models.NotificationCommentJailed && n.CommentID != nil && *n.CommentID == c.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected COMMENT_JAILED notification for author, got %+v", ns)
	}
	// 产品所有者收到评论通知
	ownerNs, _ := store.ListNotifications(ctx, owner.ID, 10)
	if len(ownerNs) != 1 || ownerNs[0].Type != models.NotificationTypeComment {
		t.Errorf("Expected one comment notification for owner, got %+v", ownerNs)
	}
}

func TestJailedProductHiddenFromPublicReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t, "admin")
	owner := f.user(t, "owner", 0)
	viewer := f.user(t, "viewer", 0)
	p := f.product(t, owner, "Shady")
	visible := f.product(t, owner, "Fine")

	if _, err := f.svc.Moderation.Apply(ctx, admin, models.ResourceProduct, p.ID, ActionJail); err != nil {
		t.Fatal(err)
	}

	listing, err := f.svc.Ranking.List(ctx, SortNew, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Products) != 1 || listing.Products[0].ID != visible.ID {
		t.Errorf("Expected only the visible product, got %+v", listing.Products)
	}
	if _, err := f.svc.Products.Get(ctx, viewer, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Products.Get(ctx, admin, p.ID); err != nil {
		t.Errorf("admin should still see jailed product: %v", err)
	}
	if _, err := f.svc.Comments.List(ctx, viewer, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for comments of jailed product, got %v", err)
	}
	if got := f.rec.ofType(models.NotificationProductJailed); len(got) != 1 || got[0].RecipientID != owner.ID {
		t.Errorf("Expected PROJECT_JAILED event for owner, got %+v", got)
	}

	// 恢复后重新可见
	if _, err := f.svc.Moderation.Apply(ctx, admin, models.ResourceProduct, p.ID, ActionApprove); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Products.Get(ctx, viewer, p.ID); err != nil {
		t.Errorf("Expected approved product to be visible: %v", err)
	}
}

func TestModerationRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", 0)
	p := f.product(t, owner, "Mine")

	if _, err := f.svc.Moderation.Apply(ctx, owner, models.ResourceProduct, p.ID, ActionDelete); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.Moderation.Apply(ctx, nil, models.ResourceProduct, p.ID, ActionDelete); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	got, err := f.store.GetProduct(ctx, p.ID)
	if err != nil || got.Status != models.StatusActive {
		t.Errorf("product must be untouched, got %+v (%v)", got, err)
	}
}

func newDispatchedServices(t *testing.T) (*db.Memory, *Dispatcher, *Services) {
	t.Helper()
	store := db.NewMemory()
	dispatcher := NewDispatcher(NewStoreSink(store))
	t.Cleanup(dispatcher.Close)
	svc := New(Deps{Store: store, Emitter: dispatcher, Policy: config.DefaultPolicy(), Location: time.UTC})
	return store, dispatcher, svc
}

func findNotification(ns []models.Notification, typ models.NotificationType, commentID uint) *models.Notification {
	for i := range ns {
		n := &ns[i]
		if n.Type != typ {
			continue
		}
		if commentID == 0 || (n.CommentID != nil && *n.CommentID == commentID) {
			return n
		}
	}
	return nil
}

func TestDeleteProductPersistsNotificationAfterRowIsGone(t *testing.T) {
	ctx := context.Background()
	store, dispatcher, svc := newDispatchedServices(t)
	admin := &models.User{Username: "admin", Role: models.RoleAdmin}
	owner := &models.User{Username: "owner"}
	for _, u := range []*models.User{admin, owner} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	p := &models.Product{UserID: owner.ID, Name: "Gone", Status: models.StatusActive, IsActive: true}
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}

	to, err := svc.Moderation.Apply(ctx, admin, models.ResourceProduct, p.ID, ActionDelete)
	if err != nil {
		t.Fatal(err)
	}
	if to != models.StatusDeleted {
		t.Errorf("Expected deleted, got %s", to)
	}
	if _, err := store.GetProduct(ctx, p.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Expected product row removed, got %v", err)
	}

	// 通知异步落库，此时产品行已不存在
	dispatcher.Close()
	ns, err := store.ListNotifications(ctx, owner.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	n := findNotification(ns, models.NotificationProductDeleted, 0)
	if n == nil || n.ProductID == nil || *n.ProductID != p.ID {
		t.Fatalf("Expected persisted PROJECT_DELETED for product %d, got %+v", p.ID, ns)
	}
	if _, err := svc.Moderation.Apply(ctx, admin, models.ResourceProduct, p.ID, ActionApprove); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteCommentNotifiesReplyAuthors(t *testing.T) {
	ctx := context.Background()
	store, dispatcher, svc := newDispatchedServices(t)
	admin := &models.User{Username: "admin", Role: models.RoleAdmin}
	owner := &models.User{Username: "owner"}
	author := &models.User{Username: "author"}
	replier := &models.User{Username: "replier"}
	nested := &models.User{Username: "nested"}
	for _, u := range []*models.User{admin, owner, author, replier, nested} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	p := &models.Product{UserID: owner.ID, Name: "Thread", Status: models.StatusActive, IsActive: true}
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	root, err := svc.Comments.Create(ctx, author, p.ID, "first", nil)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := svc.Comments.Create(ctx, replier, p.ID, "agreed", &root.Comment.ID)
	if err != nil {
		t.Fatal(err)
	}
	deep, err := svc.Comments.Create(ctx, nested, p.ID, "me too", &reply.Comment.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Moderation.Apply(ctx, admin, models.ResourceComment, root.Comment.ID, ActionDelete); err != nil {
		t.Fatal(err)
	}
	for _, id := range []uint{root.Comment.ID, reply.Comment.ID, deep.Comment.ID} {
		if _, err := store.GetComment(ctx, id); !errors.Is(err, db.ErrNotFound) {
			t.Errorf("comment %d: Expected removed, got %v", id, err)
		}
	}

	dispatcher.Close()
	cases := []struct {
		user      *models.User
		commentID uint
	}{
		{author, root.Comment.ID},
		{replier, reply.Comment.ID},
		{nested, deep.Comment.ID},
	}
	for _, tc := range cases {
		ns, err := store.ListNotifications(ctx, tc.user.ID, 10)
		if err != nil {
			t.Fatal(err)
		}
		if findNotification(ns, models.NotificationCommentDeleted, tc.commentID) == nil {
			t.Errorf("%s: Expected COMMENT_DELETED for comment %d, got %+v", tc.user.Username, tc.commentID, ns)
		}
	}
}

package db

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"startuppush/internal/models"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicate           = errors.New("duplicate record")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Tally 某个产品的投票统计
type Tally struct {
	Upvotes   int64
	Downvotes int64
}

func (t Tally) Total() int64 { return t.Upvotes + t.Downvotes }

// Store 业务层使用的存储接口，postgres 与内存实现都满足它
type Store interface {
	// Transaction 中 fn 收到的 tx 上的所有操作同成同败
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UpdateUserStatus(ctx context.Context, id uint, status int, expires *time.Time) error
	ListAdminIDs(ctx context.Context) ([]uint, error)

	// ApplyPoints 写一条积分明细并调整余额；amount < 0 时余额不足返回 ErrInsufficientBalance
	ApplyPoints(ctx context.Context, log *models.PointLog) error
	// CountActivitySince 统计某类行为在 since 之后的次数，用于每日上限
	CountActivitySince(ctx context.Context, userID uint, category models.PointCategory, since time.Time) (int64, error)
	ListPointLogs(ctx context.Context, userID uint, limit int) ([]models.PointLog, error)

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	SetProductStatus(ctx context.Context, id uint, status models.ModerationStatus) error
	DeleteProduct(ctx context.Context, id uint) error
	ListVisibleProducts(ctx context.Context) ([]models.Product, error)

	// CreateVote 同一 (user, product) 第二次写入返回 ErrDuplicate
	CreateVote(ctx context.Context, v *models.Vote) error
	GetVote(ctx context.Context, userID, productID uint) (*models.Vote, error)
	VoteTallies(ctx context.Context, productIDs []uint) (map[uint]Tally, error)

	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id uint) (*models.Comment, error)
	ListComments(ctx context.Context, productID uint, status models.ModerationStatus) ([]models.Comment, error)
	SetCommentStatus(ctx context.Context, id uint, status models.ModerationStatus) error
	DeleteComment(ctx context.Context, id uint) error

	CreatePromotion(ctx context.Context, p *models.Promotion) error
	// ValidPromotions 返回 is_active 且 end_date > now 的推广，按 end_date 降序
	ValidPromotions(ctx context.Context, productIDs []uint, now time.Time) ([]models.Promotion, error)

	GetBoostCounter(ctx context.Context, month string, plan models.PlanType) (*models.BoostSaleCounter, error)
	// IncrementBoostCounter 原子 +1，不存在则以 1 创建
	IncrementBoostCounter(ctx context.Context, month string, plan models.PlanType, maxSpots, discountThreshold int64) (*models.BoostSaleCounter, error)

	CreateNotifications(ctx context.Context, ns []models.Notification) error
	ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id uint) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) error
	DeleteNotification(ctx context.Context, userID, id uint) error

	CreateFollow(ctx context.Context, f *models.Follow) error
	DeleteFollow(ctx context.Context, userID, productID uint) error
	ListFollowerIDs(ctx context.Context, productID uint) ([]uint, error)
	CreateShare(ctx context.Context, s *models.Share) error

	CreateReport(ctx context.Context, r *models.Report) error
	CountReports(ctx context.Context, resource models.ResourceType, resourceID uint) (int64, error)
}

var (
	_ Store = (*Gorm)(nil)
	_ Store = (*Memory)(nil)
)

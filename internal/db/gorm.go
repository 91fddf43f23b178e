package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"startuppush/internal/models"
)

// Gorm postgres 存储实现
type Gorm struct {
	db *gorm.DB
}

// zerologWriter 把 gorm 的日志转到 zerolog
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// newGormLogger 只记录慢查询和真正的错误，查不到记录是正常分支
func newGormLogger(w gormlogger.Writer) gormlogger.Interface {
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open 连接数据库并执行迁移
func Open(dsn string) (*Gorm, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newGormLogger(zerologWriter{}),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	log.Info().Msg("Database connection established")

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	log.Info().Msg("Database migration completed")
	return &Gorm{db: conn}, nil
}

func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Vote{},
		&models.Comment{},
		&models.PointLog{},
		&models.Promotion{},
		&models.BoostSaleCounter{},
		&models.Notification{},
		&models.Follow{},
		&models.Share{},
		&models.Report{},
	)
	return errors.Wrap(err, "migrate database")
}

func (s *Gorm) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Gorm) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// isDuplicate 唯一索引冲突 (postgres 23505)
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func wrap(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return ErrDuplicate
	}
	return errors.Wrap(err, msg)
}

func affected(res *gorm.DB, msg string) error {
	if res.Error != nil {
		return wrap(res.Error, msg)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func (s *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ---- users ----

func (s *Gorm) CreateUser(ctx context.Context, u *models.User) error {
	return wrap(s.conn(ctx).Create(u).Error, "create user")
}

func (s *Gorm) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, wrap(err, "get user")
	}
	return &u, nil
}

func (s *Gorm) UpdateUserStatus(ctx context.Context, id uint, status int, expires *time.Time) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":         status,
		"punish_expires": expires,
	})
	return affected(res, "update user status")
}

func (s *Gorm) ListAdminIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Order("id").Pluck("id", &ids).Error
	return ids, wrap(err, "list admins")
}

// ---- points ----

func (s *Gorm) ApplyPoints(ctx context.Context, entry *models.PointLog) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.User{}).Where("id = ?", entry.UserID)
		if entry.Amount < 0 {
			// 条件更新：余额检查与扣减在同一条语句里完成
			q = q.Where("points >= ?", -entry.Amount)
		}
		res := q.UpdateColumn("points", gorm.Expr("points + ?", entry.Amount))
		if res.Error != nil {
			return wrap(res.Error, "update balance")
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.User{}).Where("id = ?", entry.UserID).Count(&n).Error; err != nil {
				return wrap(err, "check user")
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrInsufficientBalance
		}
		return wrap(tx.Create(entry).Error, "create point log")
	})
}

func (s *Gorm) CountActivitySince(ctx context.Context, userID uint, category models.PointCategory, since time.Time) (int64, error) {
	var n int64
	var err error
	if category == models.CategoryCommenting {
		err = s.conn(ctx).Model(&models.Comment{}).
			Where("user_id = ? AND created_at >= ?", userID, since).
			Count(&n).Error
	} else {
		err = s.conn(ctx).Model(&models.PointLog{}).
			Where("user_id = ? AND category = ? AND amount > 0 AND created_at >= ?", userID, category, since).
			Count(&n).Error
	}
	return n, wrap(err, "count activity")
}

func (s *Gorm) ListPointLogs(ctx context.Context, userID uint, limit int) ([]models.PointLog, error) {
	var logs []models.PointLog
	err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, wrap(err, "list point logs")
}

// ---- products ----

func (s *Gorm) CreateProduct(ctx context.Context, p *models.Product) error {
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(p).Error, "create product")
}

func (s *Gorm) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, wrap(err, "get product")
	}
	return &p, nil
}

func (s *Gorm) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := s.conn(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":        p.Name,
		"tagline":     p.Tagline,
		"description": p.Description,
		"url":         p.URL,
		"is_active":   p.IsActive,
		"updated_at":  time.Now(),
	})
	return affected(res, "update product")
}

func (s *Gorm) SetProductStatus(ctx context.Context, id uint, status models.ModerationStatus) error {
	res := s.conn(ctx).Model(&models.Product{}).Where("id = ?", id).Update("status", status)
	return affected(res, "set product status")
}

func (s *Gorm) DeleteProduct(ctx context.Context, id uint) error {
	return affected(s.conn(ctx).Delete(&models.Product{}, id), "delete product")
}

func (s *Gorm) ListVisibleProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.conn(ctx).
		Where("status = ? AND is_active = ?", models.StatusActive, true).
		Order("created_at DESC, id DESC").
		Find(&products).Error
	return products, wrap(err, "list products")
}

// ---- votes ----

func (s *Gorm) CreateVote(ctx context.Context, v *models.Vote) error {
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(v).Error, "create vote")
}

func (s *Gorm) GetVote(ctx context.Context, userID, productID uint) (*models.Vote, error) {
	var v models.Vote
	err := s.conn(ctx).Where("user_id = ? AND product_id = ?", userID, productID).First(&v).Error
	if err != nil {
		return nil, wrap(err, "get vote")
	}
	return &v, nil
}

func (s *Gorm) VoteTallies(ctx context.Context, productIDs []uint) (map[uint]Tally, error) {
	tallies := make(map[uint]Tally, len(productIDs))
	if len(productIDs) == 0 {
		return tallies, nil
	}
	var rows []struct {
		ProductID uint
		Value     int
		N         int64
	}
	err := s.conn(ctx).Model(&models.Vote{}).
		Select("product_id, value, count(*) AS n").
		Where("product_id IN ?", productIDs).
		Group("product_id, value").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "vote tallies")
	}
	for _, r := range rows {
		t := tallies[r.ProductID]
		if r.Value == models.VoteUp {
			t.Upvotes = r.N
		} else {
			t.Downvotes = r.N
		}
		tallies[r.ProductID] = t
	}
	return tallies, nil
}

// ---- comments ----

func (s *Gorm) CreateComment(ctx context.Context, c *models.Comment) error {
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(c).Error, "create comment")
}

func (s *Gorm) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, wrap(err, "get comment")
	}
	return &c, nil
}

func (s *Gorm) ListComments(ctx context.Context, productID uint, status models.ModerationStatus) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.conn(ctx).
		Where("product_id = ? AND status = ?", productID, status).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, wrap(err, "list comments")
}

func (s *Gorm) SetCommentStatus(ctx context.Context, id uint, status models.ModerationStatus) error {
	res := s.conn(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("status", status)
	return affected(res, "set comment status")
}

func (s *Gorm) DeleteComment(ctx context.Context, id uint) error {
	return affected(s.conn(ctx).Delete(&models.Comment{}, id), "delete comment")
}

// ---- promotions ----

func (s *Gorm) CreatePromotion(ctx context.Context, p *models.Promotion) error {
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(p).Error, "create promotion")
}

func (s *Gorm) ValidPromotions(ctx context.Context, productIDs []uint, now time.Time) ([]models.Promotion, error) {
	var promotions []models.Promotion
	q := s.conn(ctx).Where("is_active = ? AND end_date > ?", true, now)
	if productIDs != nil {
		q = q.Where("product_id IN ?", productIDs)
	}
	err := q.Order("end_date DESC, id DESC").Find(&promotions).Error
	return promotions, wrap(err, "list promotions")
}

// ---- boost counters ----

func (s *Gorm) GetBoostCounter(ctx context.Context, month string, plan models.PlanType) (*models.BoostSaleCounter, error) {
	var c models.BoostSaleCounter
	err := s.conn(ctx).Where("month = ? AND plan_type = ?", month, plan).First(&c).Error
	if err != nil {
		return nil, wrap(err, "get boost counter")
	}
	return &c, nil
}

func (s *Gorm) IncrementBoostCounter(ctx context.Context, month string, plan models.PlanType, maxSpots, discountThreshold int64) (*models.BoostSaleCounter, error) {
	row := models.BoostSaleCounter{
		Month:     month,
		PlanType:  plan,
		SoldCount: 1,
		MaxSpots:  maxSpots,
		IsActive:  1 < discountThreshold,
	}
	// INSERT ... ON CONFLICT DO UPDATE，并发 recordSale 不会丢失计数
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "month"}, {Name: "plan_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"sold_count": gorm.Expr("boost_sale_counters.sold_count + 1"),
			"is_active":  gorm.Expr("boost_sale_counters.sold_count + 1 < ?", discountThreshold),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, wrap(err, "increment boost counter")
	}
	return s.GetBoostCounter(ctx, month, plan)
}

// ---- notifications ----

func (s *Gorm) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(&ns).Error, "create notifications")
}

func (s *Gorm) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var ns []models.Notification
	err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Find(&ns).Error
	return ns, wrap(err, "list notifications")
}

func (s *Gorm) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, wrap(err, "count unread")
}

func (s *Gorm) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	res := s.conn(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Update("is_read", true)
	return affected(res, "mark notification read")
}

func (s *Gorm) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	err := s.conn(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true).Error
	return wrap(err, "mark all read")
}

func (s *Gorm) DeleteNotification(ctx context.Context, userID, id uint) error {
	res := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	return affected(res, "delete notification")
}

// ---- follows / shares ----

func (s *Gorm) CreateFollow(ctx context.Context, f *models.Follow) error {
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(f).Error, "create follow")
}

func (s *Gorm) DeleteFollow(ctx context.Context, userID, productID uint) error {
	res := s.conn(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.Follow{})
	return affected(res, "delete follow")
}

func (s *Gorm) ListFollowerIDs(ctx context.Context, productID uint) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&models.Follow{}).Where("product_id = ?", productID).Order("user_id").Pluck("user_id", &ids).Error
	return ids, wrap(err, "list followers")
}

func (s *Gorm) CreateShare(ctx context.Context, sh *models.Share) error {
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(sh).Error, "create share")
}

// ---- reports ----

func (s *Gorm) CreateReport(ctx context.Context, r *models.Report) error {
	return wrap(s.conn(ctx).Omit(clause.Associations).Create(r).Error, "create report")
}

func (s *Gorm) CountReports(ctx context.Context, resource models.ResourceType, resourceID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Report{}).
		Where("resource_type = ? AND resource_id = ?", resource, resourceID).
		Count(&n).Error
	return n, wrap(err, "count reports")
}

package models

import (
	"time"
)

// Follow 用户关注产品，(user_id, product_id) 唯一
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_follow_user_product;index:idx_follow_user_created,priority:1" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_follow_user_product;index" json:"product_id"`
	Product   Product   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `gorm:"index:idx_follow_user_created,priority:2" json:"created_at"`
}

// Share 分享记录，仅用于活动统计
type Share struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_share_user_created,priority:1" json:"user_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Product   Product   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Channel   string    `gorm:"size:32" json:"channel"`
	CreatedAt time.Time `gorm:"index:idx_share_user_created,priority:2" json:"created_at"`
}

package models

import (
	"time"
)

const (
	VoteUp   = 1
	VoteDown = -1
)

// Vote 投票一经创建不可修改，(user_id, product_id) 唯一
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_vote_user_product;index:idx_vote_user_created,priority:1" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_vote_user_product;index" json:"product_id"`
	Product   Product   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Value     int       `gorm:"not null;check:value IN (1,-1)" json:"value"` // 1 or -1
	CreatedAt time.Time `gorm:"index:idx_vote_user_created,priority:2" json:"created_at"`
}

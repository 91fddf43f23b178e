package models

import (
	"time"
)

type Comment struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	ProductID uint             `gorm:"not null;index" json:"product_id"`
	Product   Product          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint             `gorm:"not null;index:idx_comment_user_created,priority:1" json:"user_id"`
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID  *uint            `gorm:"index" json:"parent_id"` // Nullable for top-level comments
	Parent    *Comment         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	Status    ModerationStatus `gorm:"size:20;default:'active';not null;index" json:"status"`
	CreatedAt time.Time        `gorm:"index:idx_comment_user_created,priority:2" json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

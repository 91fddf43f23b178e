package models

import (
	"time"
)

type Product struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	User        User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name        string           `gorm:"not null" json:"name"`
	Tagline     string           `gorm:"size:200" json:"tagline"`
	Description string           `gorm:"type:text" json:"description"`
	URL         string           `json:"url"`
	Status      ModerationStatus `gorm:"size:20;default:'active';not null;index" json:"status"`
	IsActive    bool             `gorm:"default:true;not null;index" json:"is_active"` // 软删除标记
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// 非数据库字段，读取时由投票表实时计算
	Upvotes   int64 `gorm:"-" json:"upvotes"`
	Downvotes int64 `gorm:"-" json:"downvotes"`
	Points    int64 `gorm:"-" json:"points"`
}

// Visible 公开读取路径只能看到 active 且未软删除的产品
func (p *Product) Visible() bool {
	return p.Status == StatusActive && p.IsActive
}

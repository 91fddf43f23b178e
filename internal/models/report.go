package models

import (
	"time"
)

type Report struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;uniqueIndex:idx_report_once" json:"user_id"` // Reporter
	User         User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ResourceType ResourceType `gorm:"size:20;not null;uniqueIndex:idx_report_once;index:idx_report_resource" json:"resource_type"` // "product", "comment"
	ResourceID   uint         `gorm:"not null;uniqueIndex:idx_report_once;index:idx_report_resource" json:"resource_id"`
	Reason       string       `gorm:"size:200;not null" json:"reason"`
	CreatedAt    time.Time    `json:"created_at"`
}

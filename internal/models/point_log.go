package models

import (
	"time"
)

// PointCategory 积分类别，每类独立计算每日上限
type PointCategory string

const (
	CategoryVoting     PointCategory = "voting"
	CategoryCommenting PointCategory = "commenting"
	CategoryFollowing  PointCategory = "following"
	CategorySharing    PointCategory = "sharing"
	CategoryBoosting   PointCategory = "boosting"
	CategoryCreation   PointCategory = "creation"
)

type PointLog struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	UserID    uint          `gorm:"not null;index:idx_point_user_created,priority:1" json:"user_id"`
	User      User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Amount    int           `gorm:"not null" json:"amount"` // 正数为增加，负数为扣除
	Category  PointCategory `gorm:"size:20;not null;index" json:"category"`
	Action    string        `gorm:"size:100;not null" json:"action"` // 动作描述
	CreatedAt time.Time     `gorm:"index:idx_point_user_created,priority:2" json:"created_at"`
}

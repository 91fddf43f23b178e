package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationTypeComment NotificationType = "comment"
	NotificationTypeReply   NotificationType = "reply"
	NotificationTypeVote    NotificationType = "vote"
	NotificationTypeUpdate  NotificationType = "update"
	NotificationTypeReport  NotificationType = "report" // 举报通知 (发给管理员)

	NotificationProductApproved NotificationType = "PROJECT_APPROVED"
	NotificationProductJailed   NotificationType = "PROJECT_JAILED"
	NotificationProductDeleted  NotificationType = "PROJECT_DELETED"
	NotificationCommentApproved NotificationType = "COMMENT_APPROVED"
	NotificationCommentJailed   NotificationType = "COMMENT_JAILED"
	NotificationCommentDeleted  NotificationType = "COMMENT_DELETED"
)

// Notification 除 is_read 外创建后不再修改。
// ProductID / CommentID 不建外键：资源被删除后通知仍保留作为历史记录
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"` // Receiver
	User      User              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID   *uint             `gorm:"index" json:"actor_id"` // Sender, nil 表示系统
	Type      NotificationType  `gorm:"type:varchar(32);not null" json:"type"`
	ProductID *uint             `gorm:"index" json:"product_id"`
	CommentID *uint             `json:"comment_id"`
	Title     string            `gorm:"size:200" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Payload   datatypes.JSONMap `json:"payload,omitempty"`
	IsRead    bool              `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}

package models

import (
	"time"
)

const (
	UserStatusNormal = 0 // 正常
	UserStatusMuted  = 1 // 禁言
	UserStatusBanned = 2 // 封禁
)

const RoleAdmin = "admin"

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"not null" json:"username"`
	Points        int        `gorm:"default:0;not null;check:points >= 0" json:"points"` // 只能通过积分账户变动
	Role          string     `gorm:"size:20;default:'user';not null" json:"role"`        // user, admin
	Status        int        `gorm:"default:0" json:"status"`                            // 0:正常, 1:禁言, 2:封禁
	PunishExpires *time.Time `json:"punish_expires"`                                     // 惩罚到期时间，nil 表示永久
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// punishActive 惩罚是否仍在有效期内
func (u *User) punishActive(now time.Time) bool {
	return u.PunishExpires == nil || now.Before(*u.PunishExpires)
}

func (u *User) IsBanned(now time.Time) bool {
	return u.Status == UserStatusBanned && u.punishActive(now)
}

// IsMuted 封禁用户同样视为禁言
func (u *User) IsMuted(now time.Time) bool {
	return (u.Status == UserStatusMuted || u.Status == UserStatusBanned) && u.punishActive(now)
}

package models

// ModerationStatus 产品与评论共用的审核状态
type ModerationStatus string

const (
	StatusPending ModerationStatus = "pending"
	StatusActive  ModerationStatus = "active"
	StatusJailed  ModerationStatus = "jailed"
	// StatusDeleted 只作为状态机的终态出现，数据库中不会存储 (行被直接删除)
	StatusDeleted ModerationStatus = "deleted"
)

func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusJailed, StatusDeleted:
		return true
	}
	return false
}

// ResourceType 可被审核的资源
type ResourceType string

const (
	ResourceProduct ResourceType = "product"
	ResourceComment ResourceType = "comment"
)

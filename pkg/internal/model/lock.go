package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LockType 锁类型.
type LockType string

const (
	LockTypeEdit   LockType = "edit"
	LockTypeReview LockType = "review"
	LockTypeAdmin  LockType = "admin"
)

// Lock 文件的协作编辑锁（advisory）.
// 任一时刻每个文件至多一把"有效"锁：is_active 且未过期.
// 过期锁惰性判定，不做后台清扫；行保留用于追溯.
type Lock struct {
	ID       string   `gorm:"type:uuid;primaryKey" json:"id"`
	FileID   string   `gorm:"type:uuid;index"      json:"file_id"`
	LockedBy string   `gorm:"size:255;index"       json:"locked_by"`
	LockType LockType `gorm:"size:32"              json:"lock_type"`
	Reason   string   `gorm:"type:text"            json:"reason,omitempty"`
	// ExpiresAt 为空表示不过期
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `gorm:"index" json:"is_active"`
	ReleasedBy string     `gorm:"size:255" json:"released_by,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BeforeCreate 填充 UUID 主键.
func (l *Lock) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	return nil
}

// IsEffective 锁此刻是否有效：激活且未过期.
func (l *Lock) IsEffective(now time.Time) bool {
	if !l.IsActive {
		return false
	}

	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}

// CanBeReleasedBy 非 force 情况下，仅持有者可释放.
func (l *Lock) CanBeReleasedBy(user string) bool {
	return user != "" && user == l.LockedBy
}

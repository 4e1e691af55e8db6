package types

import (
	"time"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// AcquireLockRequest 获取锁.
type AcquireLockRequest struct {
	LockType string `json:"lock_type" binding:"required,oneof=edit review admin"`
	Reason   string `json:"reason,omitempty"`
	// TTLSeconds 为 0 表示不过期
	TTLSeconds int `json:"ttl_seconds,omitempty"`
}

// ReleaseLockRequest 释放锁.
type ReleaseLockRequest struct {
	Force bool `json:"force,omitempty"`
}

// ListLocksRequest 列举有效锁，支持按文件或按桶过滤.
type ListLocksRequest struct {
	FileID     string `form:"file_id"     json:"file_id"`
	BucketKind string `form:"bucket_kind" json:"bucket_kind"`
	BucketID   string `form:"bucket_id"   json:"bucket_id"`
	Page
}

// LockResponse 锁对外表示.
type LockResponse struct {
	ID         string     `json:"id"`
	FileID     string     `json:"file_id"`
	LockedBy   string     `json:"locked_by"`
	LockType   string     `json:"lock_type"`
	Reason     string     `json:"reason,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	ReleasedBy string     `json:"released_by,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LockListResponse 分页列举结果.
type LockListResponse struct {
	Items []LockResponse `json:"items"`
	Total int64          `json:"total"`
}

// NewLockResponse 由模型构造响应.
func NewLockResponse(l *model.Lock) LockResponse {
	return LockResponse{
		ID:         l.ID,
		FileID:     l.FileID,
		LockedBy:   l.LockedBy,
		LockType:   string(l.LockType),
		Reason:     l.Reason,
		ExpiresAt:  l.ExpiresAt,
		IsActive:   l.IsActive,
		ReleasedBy: l.ReleasedBy,
		ReleasedAt: l.ReleasedAt,
		CreatedAt:  l.CreatedAt,
	}
}

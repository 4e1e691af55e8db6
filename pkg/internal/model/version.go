package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VersionStatus 版本校验状态机：
// draft -> pending_validation -> {validated | rejected}，终态不可再迁移.
// corrupted 为维护性终态，仅由存储对账任务写入（对象存储中的字节已丢失）.
type VersionStatus string

const (
	VersionStatusDraft             VersionStatus = "draft"
	VersionStatusPendingValidation VersionStatus = "pending_validation"
	VersionStatusValidated         VersionStatus = "validated"
	VersionStatusRejected          VersionStatus = "rejected"
	VersionStatusCorrupted         VersionStatus = "corrupted"
)

// Version 文件版本，提交后不可变；approve/reject 是唯一的后续变更.
// (file_id, version_number) 唯一约束兜底并发编号竞争.
type Version struct {
	ID     string `gorm:"type:uuid;primaryKey"                      json:"id"`
	FileID string `gorm:"type:uuid;index:idx_file_version,unique"   json:"file_id"`
	// VersionNumber 从 1 起单调递增，提交事务内取 max+1
	VersionNumber int `gorm:"index:idx_file_version,unique" json:"version_number"`
	// ObjectKey 对象存储中的不透明键：{bucket_kind}/{bucket_id}/{logical_path}/{version_number}
	ObjectKey string        `gorm:"size:1024;index" json:"object_key"`
	Size      int64         `json:"size"`
	MimeType  string        `gorm:"size:255"        json:"mime_type"`
	Checksum  string        `gorm:"size:128"        json:"checksum,omitempty"`
	Changelog string        `gorm:"type:text"       json:"changelog,omitempty"`
	Status    VersionStatus `gorm:"size:32;index"   json:"status"`
	// 校验结果，approve/reject 时写入
	ValidatedBy       string     `gorm:"size:255"  json:"validated_by,omitempty"`
	ValidatedAt       *time.Time `json:"validated_at,omitempty"`
	ValidationComment string     `gorm:"type:text" json:"validation_comment,omitempty"`
	CreatedBy         string     `gorm:"size:255"  json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
}

// BeforeCreate 填充 UUID 主键.
func (v *Version) BeforeCreate(_ *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	return nil
}

// IsTerminal 是否处于终态（validated/rejected/corrupted）.
func (v *Version) IsTerminal() bool {
	switch v.Status {
	case VersionStatusValidated, VersionStatusRejected, VersionStatusCorrupted:
		return true
	default:
		return false
	}
}

// CanBeValidatedBy 纯判定：user 能否对该版本执行 approve/reject.
// 创建者不能审批自己的版本；非 pending_validation 状态不可审批.
func (v *Version) CanBeValidatedBy(user string) bool {
	if user == "" || user == v.CreatedBy {
		return false
	}

	return v.Status == VersionStatusPendingValidation
}

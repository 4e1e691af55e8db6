package model

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"
)

// AuditAction 审计动作枚举.
type AuditAction string

const (
	ActionUpload   AuditAction = "upload"
	ActionDownload AuditAction = "download"
	ActionCopy     AuditAction = "copy"
	ActionMove     AuditAction = "move"
	ActionDelete   AuditAction = "delete"
	ActionLock     AuditAction = "lock"
	ActionUnlock   AuditAction = "unlock"
	ActionValidate AuditAction = "validate"
	ActionApprove  AuditAction = "approve"
	ActionReject   AuditAction = "reject"
	ActionRestore  AuditAction = "restore"
)

// 单调熵源不是并发安全的，所有读取都要持锁.
var (
	auditEntropyMu sync.Mutex
	auditEntropy   = ulid.Monotonic(crand.Reader, 0)
)

// newAuditID 生成按时间字典序排列的 ULID.
func newAuditID() string {
	auditEntropyMu.Lock()
	defer auditEntropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), auditEntropy).String()
}

// AuditLogEntry 审计日志条目，追加写入后不可变：没有更新/删除接口，
// 仅随文件 purge 级联移除. 条目与其记录的变更在同一事务内落库.
// 主键使用 ULID，按时间字典序排列，便于顺序扫描.
type AuditLogEntry struct {
	ID        string      `gorm:"size:26;primaryKey" json:"id"`
	FileID    string      `gorm:"type:uuid;index"    json:"file_id"`
	VersionID *string     `gorm:"type:uuid"          json:"version_id,omitempty"`
	Action    AuditAction `gorm:"size:32;index"      json:"action"`
	UserID    string      `gorm:"size:255;index"     json:"user_id"`
	// Details 以 JSON 文本存储，记录动作相关的补充信息
	DetailsJSON string    `gorm:"type:text" json:"details_json,omitempty"`
	IPAddress   string    `gorm:"size:64"   json:"ip_address,omitempty"`
	UserAgent   string    `gorm:"size:512"  json:"user_agent,omitempty"`
	CreatedAt   time.Time `gorm:"index"     json:"created_at"`
}

// BeforeCreate 填充 ULID 主键.
func (a *AuditLogEntry) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = newAuditID()
	}

	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BucketKind 逻辑桶类型：个人、企业或项目空间.
type BucketKind string

const (
	BucketUser    BucketKind = "user"
	BucketCompany BucketKind = "company"
	BucketProject BucketKind = "project"
)

// FileStatus 文件生命周期状态.
type FileStatus string

const (
	FileStatusDraft             FileStatus = "draft"
	FileStatusUploadPending     FileStatus = "upload_pending"
	FileStatusPendingValidation FileStatus = "pending_validation"
	FileStatusApproved          FileStatus = "approved"
	FileStatusRejected          FileStatus = "rejected"
	FileStatusRequiresRevision  FileStatus = "requires_revision"
	FileStatusArchived          FileStatus = "archived"
)

// File 文件模型：对象存储之上的逻辑文件身份.
// (bucket_kind, bucket_id, logical_path) 在未归档文件中唯一，归档即释放路径，
// 之后同一路径可以建立新的文件身份；唯一性经由 PathSlot 参与唯一索引实现：
// 活跃行的 PathSlot 恒为空串，归档时写入文件自身 ID，使归档行退出路径竞争，
// 这样在 PostgreSQL/MySQL/SQLite 上都能靠普通唯一索引捕获并发创建.
// CurrentVersionID 只会由审批通过（approve）写入，指向本文件下状态为 validated 的版本.
type File struct {
	ID         string     `gorm:"type:uuid;primaryKey"                        json:"id"`
	BucketKind BucketKind `gorm:"size:32;index:idx_bucket_path,unique"        json:"bucket_kind"`
	BucketID   string     `gorm:"size:255;index:idx_bucket_path,unique;index" json:"bucket_id"`
	// 桶内逻辑路径，已规范化（无前导分隔符、无 .. 段）
	LogicalPath string `gorm:"size:1024;index:idx_bucket_path,unique;index" json:"logical_path"`
	// PathSlot 活跃为空串，归档后等于 ID；只用于唯一索引，不对外暴露
	PathSlot string `gorm:"size:36;index:idx_bucket_path,unique" json:"-"`
	Filename string `gorm:"size:512"                             json:"filename"`
	OwnerID     string `gorm:"size:255;index"                               json:"owner_id"`
	// CurrentVersionID 当前对外生效版本，仅 approve 事务内更新
	CurrentVersionID *string    `gorm:"type:uuid"     json:"current_version_id,omitempty"`
	Status           FileStatus `gorm:"size:32;index" json:"status"`
	// Tags 以 JSON 字符串形式存储，便于模糊搜索；未来可替换为 JSONB
	TagsJSON string `gorm:"type:text" json:"tags_json,omitempty"`
	// Size/MimeType 镜像自当前版本，approve 时同步
	Size        int64  `gorm:"index"    json:"size"`
	MimeType    string `gorm:"size:255" json:"mime_type"`
	IsDirectory bool   `json:"is_directory"`
	// 生命周期显式二态：active（非 archived 状态）/ archived，
	// 物理删除只走 purge，不用 ORM 软删除
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate 填充 UUID 主键.
func (f *File) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return nil
}

// IsArchived 文件是否已归档（逻辑删除）.
func (f *File) IsArchived() bool {
	return f.Status == FileStatusArchived
}

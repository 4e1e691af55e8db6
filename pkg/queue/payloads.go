package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 标识一个逻辑文件.
type FileRef struct {
	FileID      string `json:"file_id"`
	BucketKind  string `json:"bucket_kind"`
	BucketID    string `json:"bucket_id"`
	LogicalPath string `json:"logical_path"`
}

// VersionRef 标识文件下的一个版本.
type VersionRef struct {
	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
	ObjectKey     string `json:"object_key,omitempty"`
	Status        string `json:"status,omitempty"`
}

// -------------------------- 文件生命周期领域 --------------------------

// FileCreatedPayload 文件身份建立.
type FileCreatedPayload struct {
	File  FileRef `json:"file"`
	Actor string  `json:"actor"`
}

// FileCopiedPayload 文件复制完成.
type FileCopiedPayload struct {
	Source       FileRef `json:"source"`
	Destination  FileRef `json:"destination"`
	Actor        string  `json:"actor"`
	WithVersions bool    `json:"with_versions,omitempty"`
}

// FileMovedPayload 文件路径变更.
type FileMovedPayload struct {
	File     FileRef `json:"file"`
	FromPath string  `json:"from_path"`
	Actor    string  `json:"actor"`
}

// FileArchivedPayload 文件归档.
type FileArchivedPayload struct {
	File  FileRef `json:"file"`
	Actor string  `json:"actor"`
}

// FilePurgedPayload 文件物理删除，版本/锁/审计已级联移除.
type FilePurgedPayload struct {
	File         FileRef `json:"file"`
	Actor        string  `json:"actor"`
	VersionCount int     `json:"version_count,omitempty"`
}

// -------------------------- 版本与审批领域 --------------------------

// VersionCommittedPayload 新版本提交.
type VersionCommittedPayload struct {
	File    FileRef    `json:"file"`
	Version VersionRef `json:"version"`
	Actor   string     `json:"actor"`
}

// VersionSubmittedPayload 版本送审.
type VersionSubmittedPayload struct {
	File    FileRef    `json:"file"`
	Version VersionRef `json:"version"`
	Actor   string     `json:"actor"`
}

// VersionValidatedPayload 审批结论（approved/rejected 共用）.
type VersionValidatedPayload struct {
	File        FileRef    `json:"file"`
	Version     VersionRef `json:"version"`
	ValidatedBy string     `json:"validated_by"`
	Comment     string     `json:"comment,omitempty"`
}

// VersionCorruptedPayload 对账发现对象缺失.
type VersionCorruptedPayload struct {
	File    FileRef    `json:"file"`
	Version VersionRef `json:"version"`
}

// -------------------------- 协作锁领域 --------------------------

// LockEventPayload 锁获取/释放共用负载.
type LockEventPayload struct {
	File     FileRef    `json:"file"`
	LockID   string     `json:"lock_id"`
	LockType string     `json:"lock_type"`
	Holder   string     `json:"holder"`
	Actor    string     `json:"actor"`
	Forced   bool       `json:"forced,omitempty"`
	ExpireAt *time.Time `json:"expire_at,omitempty"`
}

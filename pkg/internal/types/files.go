package types

import (
	"time"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// CreateFileRequest 显式创建文件（目录占位或预登记）.
type CreateFileRequest struct {
	LogicalPath string            `json:"logical_path" binding:"required"`
	Filename    string            `json:"filename"`
	Tags        map[string]string `json:"tags,omitempty"`
	IsDirectory bool              `json:"is_directory,omitempty"`
}

// ListFilesRequest 按前缀分页列举.
type ListFilesRequest struct {
	PathPrefix string `form:"prefix" json:"prefix"`
	Page
}

// FileResponse 文件对外表示.
type FileResponse struct {
	ID               string            `json:"id"`
	BucketKind       string            `json:"bucket_kind"`
	BucketID         string            `json:"bucket_id"`
	LogicalPath      string            `json:"logical_path"`
	Filename         string            `json:"filename"`
	OwnerID          string            `json:"owner_id"`
	CurrentVersionID *string           `json:"current_version_id,omitempty"`
	Status           string            `json:"status"`
	Tags             map[string]string `json:"tags,omitempty"`
	Size             int64             `json:"size"`
	MimeType         string            `json:"mime_type,omitempty"`
	IsDirectory      bool              `json:"is_directory"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// FileListResponse 分页列举结果.
type FileListResponse struct {
	Items []FileResponse `json:"items"`
	Total int64          `json:"total"`
}

// CopyFileRequest 复制文件.
type CopyFileRequest struct {
	DstBucketKind  string `json:"dst_bucket_kind" binding:"required"`
	DstBucketID    string `json:"dst_bucket_id"   binding:"required"`
	DstLogicalPath string `json:"dst_logical_path" binding:"required"`
	// CopyVersions 为 true 时复制全部版本并保留版本号，否则仅复制当前版本为 v1
	CopyVersions bool `json:"copy_versions,omitempty"`
}

// MoveFileRequest 移动（路径变更）.
type MoveFileRequest struct {
	DstLogicalPath string `json:"dst_logical_path" binding:"required"`
}

// UpdateMetaRequest 标签与文件名更新.
type UpdateMetaRequest struct {
	Filename string            `json:"filename,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// FileInfoRequest 聚合读取的 include 开关.
type FileInfoRequest struct {
	IncludeVersions bool `form:"include_versions" json:"include_versions"`
	IncludeLocks    bool `form:"include_locks"    json:"include_locks"`
	IncludeAudit    bool `form:"include_audit"    json:"include_audit"`
}

// FileInfoResponse 文件聚合信息.
type FileInfoResponse struct {
	File     FileResponse      `json:"file"`
	Versions []VersionResponse `json:"versions,omitempty"`
	Locks    []LockResponse    `json:"locks,omitempty"`
	Audit    []AuditResponse   `json:"audit,omitempty"`
}

// PresignResponse 预签名 URL.
type PresignResponse struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFileResponse 由模型构造响应.
func NewFileResponse(f *model.File) FileResponse {
	return FileResponse{
		ID:               f.ID,
		BucketKind:       string(f.BucketKind),
		BucketID:         f.BucketID,
		LogicalPath:      f.LogicalPath,
		Filename:         f.Filename,
		OwnerID:          f.OwnerID,
		CurrentVersionID: f.CurrentVersionID,
		Status:           string(f.Status),
		Tags:             DecodeTags(f.TagsJSON),
		Size:             f.Size,
		MimeType:         f.MimeType,
		IsDirectory:      f.IsDirectory,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

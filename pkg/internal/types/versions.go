package types

import (
	"time"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// CommitVersionRequest 提交新版本.
// ObjectKey 留空时由服务按既定格式生成.
type CommitVersionRequest struct {
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	Checksum  string `json:"checksum,omitempty"`
	Changelog string `json:"changelog,omitempty"`
	// Submit 为 true 时直接进入 pending_validation
	Submit bool `json:"submit,omitempty"`
}

// CommitByPathRequest 按路径提交版本；文件身份不存在时隐式创建.
type CommitByPathRequest struct {
	LogicalPath string            `json:"logical_path" binding:"required"`
	Filename    string            `json:"filename"`
	Tags        map[string]string `json:"tags,omitempty"`
	CommitVersionRequest
}

// CommitByPathResponse 隐式提交结果：文件身份与新版本.
type CommitByPathResponse struct {
	File    FileResponse    `json:"file"`
	Version VersionResponse `json:"version"`
}

// ListVersionsRequest 版本列举.
type ListVersionsRequest struct {
	Status string `form:"status" json:"status"`
	Page
}

// ValidateRequest 审批（approve/reject 共用）.
type ValidateRequest struct {
	Comment string `json:"comment,omitempty"`
}

// VersionResponse 版本对外表示.
type VersionResponse struct {
	ID                string     `json:"id"`
	FileID            string     `json:"file_id"`
	VersionNumber     int        `json:"version_number"`
	ObjectKey         string     `json:"object_key"`
	Size              int64      `json:"size"`
	MimeType          string     `json:"mime_type,omitempty"`
	Checksum          string     `json:"checksum,omitempty"`
	Changelog         string     `json:"changelog,omitempty"`
	Status            string     `json:"status"`
	ValidatedBy       string     `json:"validated_by,omitempty"`
	ValidatedAt       *time.Time `json:"validated_at,omitempty"`
	ValidationComment string     `json:"validation_comment,omitempty"`
	CreatedBy         string     `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
}

// VersionListResponse 分页列举结果.
type VersionListResponse struct {
	Items []VersionResponse `json:"items"`
	Total int64             `json:"total"`
}

// NewVersionResponse 由模型构造响应.
func NewVersionResponse(v *model.Version) VersionResponse {
	return VersionResponse{
		ID:                v.ID,
		FileID:            v.FileID,
		VersionNumber:     v.VersionNumber,
		ObjectKey:         v.ObjectKey,
		Size:              v.Size,
		MimeType:          v.MimeType,
		Checksum:          v.Checksum,
		Changelog:         v.Changelog,
		Status:            string(v.Status),
		ValidatedBy:       v.ValidatedBy,
		ValidatedAt:       v.ValidatedAt,
		ValidationComment: v.ValidationComment,
		CreatedBy:         v.CreatedBy,
		CreatedAt:         v.CreatedAt,
	}
}

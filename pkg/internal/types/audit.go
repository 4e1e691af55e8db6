package types

import (
	"time"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// AuditResponse 审计条目对外表示.
type AuditResponse struct {
	ID        string         `json:"id"`
	FileID    string         `json:"file_id"`
	VersionID *string        `json:"version_id,omitempty"`
	Action    string         `json:"action"`
	UserID    string         `json:"user_id"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditListResponse 分页列举结果.
type AuditListResponse struct {
	Items []AuditResponse `json:"items"`
	Total int64           `json:"total"`
}

// NewAuditResponse 由模型构造响应.
func NewAuditResponse(e *model.AuditLogEntry) AuditResponse {
	return AuditResponse{
		ID:        e.ID,
		FileID:    e.FileID,
		VersionID: e.VersionID,
		Action:    string(e.Action),
		UserID:    e.UserID,
		Details:   DecodeDetails(e.DetailsJSON),
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	}
}

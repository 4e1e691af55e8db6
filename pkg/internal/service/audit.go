package service

import (
	"context"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
)

// AuditService 审计追踪的读取面.
// 写入只发生在各变更操作的事务内部（recordAudit），这里不暴露写入口.
type AuditService struct {
	base
}

// NewAuditService 从 context 获取依赖实例.
func NewAuditService(c context.Context) *AuditService {
	return &AuditService{base: newBase(c)}
}

// History 文件维度的审计记录，新者在前.
// 读取审计不产生新的审计条目.
func (s *AuditService) History(ctx context.Context, fileID string, page types.Page) ([]model.AuditLogEntry, int64, error) {
	page.Clamp()

	entries, total, err := s.repos.Audit.History(ctx, fileID, page.Offset, page.Limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindUnavailable, "read audit history", err)
	}

	return entries, total, nil
}

// Activity 操作者维度的审计记录，新者在前.
func (s *AuditService) Activity(ctx context.Context, userID string, page types.Page) ([]model.AuditLogEntry, int64, error) {
	page.Clamp()

	entries, total, err := s.repos.Audit.Activity(ctx, userID, page.Offset, page.Limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindUnavailable, "read actor activity", err)
	}

	return entries, total, nil
}

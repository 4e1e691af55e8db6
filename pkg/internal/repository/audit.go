package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// gormAuditRepository AuditRepository 的 GORM 实现.
// 仅提供追加与读取；没有任何更新入口.
type gormAuditRepository struct {
	db *gorm.DB
}

func (r *gormAuditRepository) Append(ctx context.Context, e *model.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *gormAuditRepository) History(ctx context.Context, fileID string, offset, limit int) ([]model.AuditLogEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLogEntry{}).Where("file_id = ?", fileID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.AuditLogEntry
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *gormAuditRepository) Activity(ctx context.Context, userID string, offset, limit int) ([]model.AuditLogEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLogEntry{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.AuditLogEntry
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *gormAuditRepository) DeleteByFile(ctx context.Context, fileID string) error {
	return r.db.WithContext(ctx).Delete(&model.AuditLogEntry{}, "file_id = ?", fileID).Error
}

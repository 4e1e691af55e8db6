package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// gormLockRepository LockRepository 的 GORM 实现.
// 过期惰性判定在查询条件里完成，不清扫过期行.
type gormLockRepository struct {
	db *gorm.DB
}

func (r *gormLockRepository) Create(ctx context.Context, l *model.Lock) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *gormLockRepository) GetByID(ctx context.Context, id string) (*model.Lock, error) {
	var l model.Lock
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &l, nil
}

func (r *gormLockRepository) Effective(ctx context.Context, fileID string, now time.Time) (*model.Lock, error) {
	var l model.Lock

	err := r.db.WithContext(ctx).
		Where("file_id = ? AND is_active = ?", fileID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (r *gormLockRepository) List(ctx context.Context, f LockListFilter, now time.Time, offset, limit int) ([]model.Lock, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Lock{}).
		Where("locks.is_active = ?", true).
		Where("locks.expires_at IS NULL OR locks.expires_at > ?", now)

	if f.FileID != "" {
		q = q.Where("locks.file_id = ?", f.FileID)
	}

	if f.BucketKind != "" {
		q = q.Joins("JOIN files ON files.id = locks.file_id").
			Where("files.bucket_kind = ? AND files.bucket_id = ?", f.BucketKind, f.BucketID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var locks []model.Lock
	if err := q.Order("locks.created_at DESC").Offset(offset).Limit(limit).Find(&locks).Error; err != nil {
		return nil, 0, err
	}

	return locks, total, nil
}

func (r *gormLockRepository) Update(ctx context.Context, l *model.Lock) error {
	res := r.db.WithContext(ctx).Save(l)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *gormLockRepository) DeleteByFile(ctx context.Context, fileID string) error {
	return r.db.WithContext(ctx).Delete(&model.Lock{}, "file_id = ?", fileID).Error
}

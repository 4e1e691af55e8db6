package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// gormVersionRepository VersionRepository 的 GORM 实现.
type gormVersionRepository struct {
	db *gorm.DB
}

func (r *gormVersionRepository) Create(ctx context.Context, v *model.Version) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *gormVersionRepository) GetByID(ctx context.Context, id string) (*model.Version, error) {
	var v model.Version
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &v, nil
}

func (r *gormVersionRepository) GetByNumber(ctx context.Context, fileID string, number int) (*model.Version, error) {
	var v model.Version

	err := r.db.WithContext(ctx).
		Where("file_id = ? AND version_number = ?", fileID, number).
		First(&v).Error
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func (r *gormVersionRepository) MaxNumber(ctx context.Context, fileID string) (int, error) {
	var maxNum int

	err := r.db.WithContext(ctx).Model(&model.Version{}).
		Where("file_id = ?", fileID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&maxNum).Error
	if err != nil {
		return 0, err
	}

	return maxNum, nil
}

func (r *gormVersionRepository) List(ctx context.Context, fileID string, status model.VersionStatus, offset, limit int) ([]model.Version, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Version{}).Where("file_id = ?", fileID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var versions []model.Version
	if err := q.Order("version_number DESC").Offset(offset).Limit(limit).Find(&versions).Error; err != nil {
		return nil, 0, err
	}

	return versions, total, nil
}

func (r *gormVersionRepository) Latest(ctx context.Context, fileID string) (*model.Version, error) {
	var v model.Version

	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("version_number DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &v, nil
}

func (r *gormVersionRepository) Update(ctx context.Context, v *model.Version) error {
	res := r.db.WithContext(ctx).Save(v)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *gormVersionRepository) DeleteByFile(ctx context.Context, fileID string) error {
	return r.db.WithContext(ctx).Delete(&model.Version{}, "file_id = ?", fileID).Error
}

func (r *gormVersionRepository) ObjectKeysByFile(ctx context.Context, fileID string) ([]string, error) {
	var keys []string

	err := r.db.WithContext(ctx).Model(&model.Version{}).
		Where("file_id = ?", fileID).
		Order("version_number ASC").
		Pluck("object_key", &keys).Error
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// ListAll 分批扫描全部版本行，fn 返回错误则中止.
func (r *gormVersionRepository) ListAll(ctx context.Context, batch int, fn func([]model.Version) error) error {
	if batch <= 0 {
		batch = 500
	}

	var versions []model.Version

	return r.db.WithContext(ctx).
		Model(&model.Version{}).
		Order("id ASC").
		FindInBatches(&versions, batch, func(_ *gorm.DB, _ int) error {
			return fn(versions)
		}).Error
}

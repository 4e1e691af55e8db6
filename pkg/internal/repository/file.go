package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// gormFileRepository FileRepository 的 GORM 实现.
type gormFileRepository struct {
	db *gorm.DB
}

func (r *gormFileRepository) Create(ctx context.Context, f *model.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *gormFileRepository) GetByID(ctx context.Context, id string) (*model.File, error) {
	var f model.File
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &f, nil
}

func (r *gormFileRepository) GetByPath(ctx context.Context, kind model.BucketKind, bucketID, logicalPath string) (*model.File, error) {
	var f model.File

	// path_slot 为空串的行才是路径的当前占有者，归档行不参与解析
	err := r.db.WithContext(ctx).
		Where("bucket_kind = ? AND bucket_id = ? AND logical_path = ? AND path_slot = ''", kind, bucketID, logicalPath).
		First(&f).Error
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// GetByIDForUpdate 对文件行加 FOR UPDATE 行锁.
// SQLite 不支持（也不需要：单写者串行化），跳过锁子句.
func (r *gormFileRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.File, error) {
	tx := r.db.WithContext(ctx)
	if r.db.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var f model.File
	if err := tx.First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &f, nil
}

func (r *gormFileRepository) List(ctx context.Context, kind model.BucketKind, bucketID, pathPrefix string, offset, limit int) ([]model.File, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.File{}).
		Where("bucket_kind = ? AND bucket_id = ?", kind, bucketID).
		Where("status <> ?", model.FileStatusArchived)

	if pathPrefix != "" {
		q = q.Where("logical_path LIKE ?", escapeLike(pathPrefix)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var files []model.File
	if err := q.Order("logical_path ASC").Offset(offset).Limit(limit).Find(&files).Error; err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

func (r *gormFileRepository) Update(ctx context.Context, f *model.File) error {
	res := r.db.WithContext(ctx).Save(f)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *gormFileRepository) Delete(ctx context.Context, id string) error {
	// purge 语义：物理删除，幂等
	err := r.db.WithContext(ctx).Delete(&model.File{}, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}

	return err
}

// escapeLike 转义 LIKE 模式中的通配符，前缀匹配只认字面量.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}

		out = append(out, s[i])
	}

	return string(out)
}

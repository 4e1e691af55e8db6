// Package repository 定义各实体的数据访问接口及其 GORM 实现.
// 易发竞争的操作（版本编号、锁获取）收敛为具名方法，
// 而不是散落在各处的 查询+写入 调用点.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/model"
)

// FileRepository 文件实体的数据访问接口.
type FileRepository interface {
	Create(ctx context.Context, f *model.File) error
	GetByID(ctx context.Context, id string) (*model.File, error)
	// GetByPath 按 (bucket_kind, bucket_id, logical_path) 三元组解析文件身份
	GetByPath(ctx context.Context, kind model.BucketKind, bucketID, logicalPath string) (*model.File, error)
	// GetByIDForUpdate 带行级锁读取，用于锁获取的 check-then-insert 串行化
	GetByIDForUpdate(ctx context.Context, id string) (*model.File, error)
	// List 按前缀分页列举未归档文件，返回 (items, total)
	List(ctx context.Context, kind model.BucketKind, bucketID, pathPrefix string, offset, limit int) ([]model.File, int64, error)
	Update(ctx context.Context, f *model.File) error
	// Delete 硬删除文件行（purge 级联的一环）
	Delete(ctx context.Context, id string) error
}

// VersionRepository 版本实体的数据访问接口.
type VersionRepository interface {
	// Create 插入版本行；(file_id, version_number) 唯一约束冲突时
	// 返回 gorm.ErrDuplicatedKey，由调用方重试
	Create(ctx context.Context, v *model.Version) error
	GetByID(ctx context.Context, id string) (*model.Version, error)
	GetByNumber(ctx context.Context, fileID string, number int) (*model.Version, error)
	// MaxNumber 当前文件的最大版本号，无版本时为 0
	MaxNumber(ctx context.Context, fileID string) (int, error)
	// List 按版本号倒序分页，status 为空表示不过滤
	List(ctx context.Context, fileID string, status model.VersionStatus, offset, limit int) ([]model.Version, int64, error)
	Latest(ctx context.Context, fileID string) (*model.Version, error)
	Update(ctx context.Context, v *model.Version) error
	// DeleteByFile 删除文件的全部版本行（purge 级联）
	DeleteByFile(ctx context.Context, fileID string) error
	// ObjectKeysByFile 单个文件全部版本的对象键，供 purge 清理对象存储
	ObjectKeysByFile(ctx context.Context, fileID string) ([]string, error)
	// ListAll 全量扫描，供对账任务使用
	ListAll(ctx context.Context, batch int, fn func([]model.Version) error) error
}

// LockListFilter 锁列举过滤条件，零值字段不参与过滤.
// 桶维度过滤需要关联 files 表.
type LockListFilter struct {
	FileID     string
	BucketKind model.BucketKind
	BucketID   string
}

// LockRepository 锁实体的数据访问接口.
type LockRepository interface {
	Create(ctx context.Context, l *model.Lock) error
	GetByID(ctx context.Context, id string) (*model.Lock, error)
	// Effective 返回文件当前有效的锁（is_active 且未过期），无则 nil
	Effective(ctx context.Context, fileID string, now time.Time) (*model.Lock, error)
	// List 列举有效锁，过滤条件见 LockListFilter
	List(ctx context.Context, f LockListFilter, now time.Time, offset, limit int) ([]model.Lock, int64, error)
	Update(ctx context.Context, l *model.Lock) error
	DeleteByFile(ctx context.Context, fileID string) error
}

// AuditRepository 审计实体的数据访问接口，只增不改.
type AuditRepository interface {
	Append(ctx context.Context, e *model.AuditLogEntry) error
	// History 文件维度的审计记录，新者在前
	History(ctx context.Context, fileID string, offset, limit int) ([]model.AuditLogEntry, int64, error)
	// Activity 操作者维度的审计记录，新者在前
	Activity(ctx context.Context, userID string, offset, limit int) ([]model.AuditLogEntry, int64, error)
	DeleteByFile(ctx context.Context, fileID string) error
}

// Repositories 聚合一组绑定到同一 *gorm.DB（或同一事务）的仓库.
type Repositories struct {
	Files    FileRepository
	Versions VersionRepository
	Locks    LockRepository
	Audit    AuditRepository

	db *gorm.DB
}

// New 基于给定 DB 构造仓库集合.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Files:    &gormFileRepository{db: db},
		Versions: &gormVersionRepository{db: db},
		Locks:    &gormLockRepository{db: db},
		Audit:    &gormAuditRepository{db: db},
		db:       db,
	}
}

// DB 返回底层 DB 句柄.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// Transaction 在单个数据库事务内执行 fn，fn 收到的是事务绑定的仓库集合.
// fn 返回错误则整体回滚，审计写入失败因此会连带撤销其配对的变更.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		return fn(New(txDB))
	})
}

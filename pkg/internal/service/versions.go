package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/queue"
)

// commitRetryBudget 版本编号竞争的重试上限，耗尽后向调用方报 Conflict.
const commitRetryBudget = 3

// VersionService 创建、编号并读取文件下的不可变版本记录.
type VersionService struct {
	base
}

// NewVersionService 从 context 获取依赖实例.
func NewVersionService(c context.Context) *VersionService {
	return &VersionService{base: newBase(c)}
}

// buildObjectKey 生成对象存储键：{bucket_kind}/{bucket_id}/{logical_path}/{version_number}.
// 本层只生成与保存键，从不解析它.
func buildObjectKey(f *model.File, versionNumber int) string {
	return fmt.Sprintf("%s/%s/%s/%d", f.BucketKind, f.BucketID, f.LogicalPath, versionNumber)
}

// Commit 提交新版本.
// 编号算法：事务内读 max(version_number)，在 max+1 处插入；
// (file_id, version_number) 唯一约束兜底丢失的竞争，冲突后带新读数重试，
// 预算耗尽报 Conflict. 裸的读-再-写在并发下不可靠，绝不使用.
func (s *VersionService) Commit(ctx context.Context, fileID, actor string, req types.CommitVersionRequest,
	origin types.Origin,
) (*model.Version, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if f.IsArchived() {
		return nil, errs.New(errs.KindInvalidState, "cannot commit to an archived file")
	}

	// 他人持有的有效编辑锁阻止提交
	if eff, err := s.repos.Locks.Effective(ctx, fileID, time.Now()); err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "check lock", err)
	} else if eff != nil && eff.LockedBy != actor {
		return nil, errs.Newf(errs.KindConflict, "file is locked by %s", eff.LockedBy).
			WithDetails(map[string]any{"locked_by": eff.LockedBy, "lock_type": string(eff.LockType)})
	}

	status := model.VersionStatusDraft
	if req.Submit {
		status = model.VersionStatusPendingValidation
	}

	var v *model.Version

	for attempt := 0; attempt < commitRetryBudget; attempt++ {
		v = &model.Version{
			FileID:    fileID,
			Size:      req.Size,
			MimeType:  req.MimeType,
			Checksum:  req.Checksum,
			Changelog: req.Changelog,
			Status:    status,
			CreatedBy: actor,
		}

		err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			maxNum, err := tx.Versions.MaxNumber(ctx, fileID)
			if err != nil {
				return errs.Wrap(errs.KindUnavailable, "read max version number", err)
			}

			v.VersionNumber = maxNum + 1
			v.ObjectKey = buildObjectKey(f, v.VersionNumber)

			if err := tx.Versions.Create(ctx, v); err != nil {
				return err
			}

			if req.Submit {
				f.Status = model.FileStatusPendingValidation
			} else {
				f.Status = model.FileStatusDraft
			}
			if err := tx.Files.Update(ctx, f); err != nil {
				return errs.Wrap(errs.KindUnavailable, "update file status", err)
			}

			return recordAudit(ctx, tx, fileID, model.ActionUpload, actor, &v.ID,
				map[string]any{"version_number": v.VersionNumber, "size": req.Size}, origin)
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 编号竞争，带新读数重试
			continue
		}

		if err != nil {
			if errs.KindOf(err) != "" {
				return nil, err
			}

			return nil, errs.Wrap(errs.KindUnavailable, "commit version", err)
		}

		publishEvent(s.mqClient, queue.TopicVersionCommitted, queue.VersionCommittedPayload{
			File:    fileRef(f),
			Version: versionRef(v),
			Actor:   actor,
		})

		return v, nil
	}

	return nil, errs.Newf(errs.KindConflict, "version numbering contention on file %s, retry later", fileID)
}

// CommitByPath 按 (bucket, path) 提交版本；文件身份不存在时隐式创建.
// 这是上传流的单次调用形态，等价于 Create + Commit.
func (s *VersionService) CommitByPath(ctx context.Context, kind, bucketID string, req types.CommitByPathRequest,
	actor string, origin types.Origin,
) (*model.File, *model.Version, error) {
	bk, err := parseBucketKind(kind)
	if err != nil {
		return nil, nil, err
	}

	path, err := NormalizePath(req.LogicalPath)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.repos.Files.GetByPath(ctx, bk, bucketID, path)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ps := &PathService{base: s.base}

		f, err = ps.Create(ctx, kind, bucketID, types.CreateFileRequest{
			LogicalPath: path,
			Filename:    req.Filename,
			Tags:        req.Tags,
		}, actor, origin)
		if errs.KindOf(err) == errs.KindAlreadyExists {
			// 与并发创建者竞争失败，改走已有身份
			f, err = s.repos.Files.GetByPath(ctx, bk, bucketID, path)
			if err != nil {
				return nil, nil, errs.Wrap(errs.KindUnavailable, "resolve file", err)
			}
		} else if err != nil {
			return nil, nil, err
		}
	case err != nil:
		return nil, nil, errs.Wrap(errs.KindUnavailable, "resolve file", err)
	}

	v, err := s.Commit(ctx, f.ID, actor, req.CommitVersionRequest, origin)
	if err != nil {
		return nil, nil, err
	}

	return f, v, nil
}

// Get 按版本号读取.
func (s *VersionService) Get(ctx context.Context, fileID string, number int) (*model.Version, error) {
	if _, err := s.getFile(ctx, fileID); err != nil {
		return nil, err
	}

	v, err := s.repos.Versions.GetByNumber(ctx, fileID, number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "version %d not found", number)
	}

	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "get version", err)
	}

	return v, nil
}

// List 按版本号倒序分页，支持状态过滤.
func (s *VersionService) List(ctx context.Context, fileID string, req types.ListVersionsRequest) ([]model.Version, int64, error) {
	if _, err := s.getFile(ctx, fileID); err != nil {
		return nil, 0, err
	}

	var status model.VersionStatus
	if req.Status != "" {
		status = model.VersionStatus(req.Status)
		switch status {
		case model.VersionStatusDraft, model.VersionStatusPendingValidation,
			model.VersionStatusValidated, model.VersionStatusRejected, model.VersionStatusCorrupted:
		default:
			return nil, 0, errs.Newf(errs.KindInvalid, "unknown version status: %s", req.Status)
		}
	}

	req.Clamp()

	versions, total, err := s.repos.Versions.List(ctx, fileID, status, req.Offset, req.Limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindUnavailable, "list versions", err)
	}

	return versions, total, nil
}

// Latest 最新版本，无版本返回 nil.
func (s *VersionService) Latest(ctx context.Context, fileID string) (*model.Version, error) {
	if _, err := s.getFile(ctx, fileID); err != nil {
		return nil, err
	}

	v, err := s.repos.Versions.Latest(ctx, fileID)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "get latest version", err)
	}

	return v, nil
}

// getFile 读取文件，不存在报 NotFound.
func (s *VersionService) getFile(ctx context.Context, fileID string) (*model.File, error) {
	f, err := s.repos.Files.GetByID(ctx, fileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "file not found: %s", fileID)
	}

	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "get file", err)
	}

	return f, nil
}

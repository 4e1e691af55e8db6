package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/queue"
)

// objectOpConcurrency purge/copy 等批量对象操作的并发上限.
const objectOpConcurrency = 8

// FileService 文件生命周期与高层操作：归档、物理删除、复制、移动、
// 聚合读取与预签名 URL.
type FileService struct {
	base
}

// NewFileService 从 context 获取依赖实例.
func NewFileService(c context.Context) *FileService {
	return &FileService{base: newBase(c)}
}

// getFile 读取文件，不存在报 NotFound.
func (s *FileService) getFile(ctx context.Context, fileID string) (*model.File, error) {
	f, err := s.repos.Files.GetByID(ctx, fileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "file not found: %s", fileID)
	}

	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "get file", err)
	}

	return f, nil
}

// Get 按 id 读取文件，归档文件也返回（restore/purge 需要）.
func (s *FileService) Get(ctx context.Context, fileID string) (*model.File, error) {
	return s.getFile(ctx, fileID)
}

// Archive 归档（软删除）：状态置 archived，从 list/resolve 中隐藏并释放
// 逻辑路径（PathSlot 写入自身 ID，退出唯一索引竞争），版本与锁仍可按 id
// 查询. 幂等：已归档直接返回.
func (s *FileService) Archive(ctx context.Context, fileID, actor string, origin types.Origin) (*model.File, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if f.IsArchived() {
		return f, nil
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		f.Status = model.FileStatusArchived
		f.PathSlot = f.ID
		if err := tx.Files.Update(ctx, f); err != nil {
			return errs.Wrap(errs.KindUnavailable, "archive file", err)
		}

		return recordAudit(ctx, tx, f.ID, model.ActionDelete, actor, nil,
			map[string]any{"mode": "archive"}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicFileArchived, queue.FileArchivedPayload{
		File:  fileRef(f),
		Actor: actor,
	})

	return f, nil
}

// Restore 从归档恢复. 有当前版本回到 approved，否则回到 draft.
// 归档释放了路径，恢复要重新占用：期间路径被新文件占用则报 Conflict.
func (s *FileService) Restore(ctx context.Context, fileID, actor string, origin types.Origin) (*model.File, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if !f.IsArchived() {
		return nil, errs.New(errs.KindInvalidState, "file is not archived")
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if f.CurrentVersionID != nil {
			f.Status = model.FileStatusApproved
		} else {
			f.Status = model.FileStatusDraft
		}

		f.PathSlot = ""
		if err := tx.Files.Update(ctx, f); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.Newf(errs.KindConflict, "logical path reoccupied since archive: %s", f.LogicalPath)
			}

			return errs.Wrap(errs.KindUnavailable, "restore file", err)
		}

		return recordAudit(ctx, tx, f.ID, model.ActionRestore, actor, nil, nil, origin)
	})
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Purge 物理删除，幂等. 这是唯一允许级联删除版本、锁与审计条目的路径.
// 事务内先清级联、再写最后一条审计（记录 purge 本身，在级联之后追加
// 所以不会被自己清掉）、最后删文件行；对象存储的删除在事务外尽力执行，
// 残留对象由对账任务兜底.
func (s *FileService) Purge(ctx context.Context, fileID, actor string, origin types.Origin) error {
	f, err := s.repos.Files.GetByID(ctx, fileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 已删除，幂等返回
		return nil
	}

	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "get file", err)
	}

	// 收集对象键用于事务外清理
	objectKeys, err := s.repos.Versions.ObjectKeysByFile(ctx, fileID)
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "collect version objects", err)
	}

	versionCount := len(objectKeys)

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Versions.DeleteByFile(ctx, fileID); err != nil {
			return errs.Wrap(errs.KindUnavailable, "delete versions", err)
		}

		if err := tx.Locks.DeleteByFile(ctx, fileID); err != nil {
			return errs.Wrap(errs.KindUnavailable, "delete locks", err)
		}

		if err := tx.Audit.DeleteByFile(ctx, fileID); err != nil {
			return errs.Wrap(errs.KindUnavailable, "delete audit entries", err)
		}

		if err := recordAudit(ctx, tx, fileID, model.ActionDelete, actor, nil,
			map[string]any{"mode": "purge", "logical_path": f.LogicalPath, "versions": versionCount}, origin); err != nil {
			return errs.Wrap(errs.KindUnavailable, "write final audit entry", err)
		}

		if err := tx.Files.Delete(ctx, fileID); err != nil {
			return errs.Wrap(errs.KindUnavailable, "delete file row", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.removeObjects(ctx, objectKeys)

	publishEvent(s.mqClient, queue.TopicFilePurged, queue.FilePurgedPayload{
		File:         fileRef(f),
		Actor:        actor,
		VersionCount: versionCount,
	})

	return nil
}

// removeObjects 尽力删除对象，失败只记日志.
func (s *FileService) removeObjects(ctx context.Context, keys []string) {
	if s.s3Client == nil || len(keys) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(objectOpConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			if err := s.s3Client.Remove(gctx, key); err != nil {
				nlog.Logger().Warn().Err(err).Str("object_key", key).Msg("remove object failed")
			}

			return nil
		})
	}

	_ = g.Wait()
}

// Copy 复制文件到新路径.
// 目标被占用报 AlreadyExists；源被他人锁定报 Conflict.
// CopyVersions 为 true 时复制全部版本并保留版本号，否则仅当前版本复制为 v1.
// 对象复制先于元数据事务执行：事务失败留下的孤儿对象由对账任务发现.
func (s *FileService) Copy(ctx context.Context, srcFileID string, req types.CopyFileRequest,
	actor string, origin types.Origin,
) (*model.File, error) {
	src, err := s.getFile(ctx, srcFileID)
	if err != nil {
		return nil, err
	}

	if src.IsArchived() {
		return nil, errs.New(errs.KindInvalidState, "cannot copy an archived file")
	}

	if eff, err := s.repos.Locks.Effective(ctx, srcFileID, time.Now()); err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "check lock", err)
	} else if eff != nil && eff.LockedBy != actor {
		return nil, errs.Newf(errs.KindConflict, "source file is locked by %s", eff.LockedBy).
			WithDetails(map[string]any{"locked_by": eff.LockedBy})
	}

	dstKind, err := parseBucketKind(req.DstBucketKind)
	if err != nil {
		return nil, err
	}

	dstPath, err := NormalizePath(req.DstLogicalPath)
	if err != nil {
		return nil, err
	}

	if _, err := s.repos.Files.GetByPath(ctx, dstKind, req.DstBucketID, dstPath); err == nil {
		return nil, errs.Newf(errs.KindAlreadyExists, "destination path already occupied: %s", dstPath)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Wrap(errs.KindUnavailable, "check destination", err)
	}

	// 选取要复制的版本
	var srcVersions []model.Version

	if req.CopyVersions {
		versions, _, err := s.repos.Versions.List(ctx, srcFileID, "", 0, types.MaxPageLimit)
		if err != nil {
			return nil, errs.Wrap(errs.KindUnavailable, "list source versions", err)
		}

		srcVersions = versions
	} else if src.CurrentVersionID != nil {
		cur, err := s.repos.Versions.GetByID(ctx, *src.CurrentVersionID)
		if err != nil {
			return nil, errs.Wrap(errs.KindUnavailable, "get current version", err)
		}

		srcVersions = []model.Version{*cur}
	}

	dst := &model.File{
		BucketKind:  dstKind,
		BucketID:    req.DstBucketID,
		LogicalPath: dstPath,
		Filename:    src.Filename,
		OwnerID:     actor,
		Status:      model.FileStatusDraft,
		TagsJSON:    src.TagsJSON,
		IsDirectory: src.IsDirectory,
	}

	// 目标版本行（编号保留或重排为 v1）
	dstVersions := make([]*model.Version, 0, len(srcVersions))

	for i := range srcVersions {
		sv := srcVersions[i]

		number := sv.VersionNumber
		if !req.CopyVersions {
			number = 1
		}

		dstVersions = append(dstVersions, &model.Version{
			VersionNumber: number,
			Size:          sv.Size,
			MimeType:      sv.MimeType,
			Checksum:      sv.Checksum,
			Changelog:     sv.Changelog,
			Status:        sv.Status,
			ValidatedBy:   sv.ValidatedBy,
			ValidatedAt:   sv.ValidatedAt,
			CreatedBy:     sv.CreatedBy,
		})
	}

	// 对象复制先行
	if s.s3Client != nil && len(srcVersions) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(objectOpConcurrency)

		for i := range srcVersions {
			srcKey := srcVersions[i].ObjectKey
			dstKey := buildObjectKey(dst, dstVersions[i].VersionNumber)
			dstVersions[i].ObjectKey = dstKey

			g.Go(func() error {
				return s.s3Client.Copy(gctx, srcKey, dstKey)
			})
		}

		if err := g.Wait(); err != nil {
			return nil, errs.Wrap(errs.KindUnavailable, "copy objects", err)
		}
	} else {
		for i := range dstVersions {
			dstVersions[i].ObjectKey = buildObjectKey(dst, dstVersions[i].VersionNumber)
		}
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Files.Create(ctx, dst); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.Newf(errs.KindAlreadyExists, "destination path already occupied: %s", dstPath)
			}

			return errs.Wrap(errs.KindUnavailable, "create destination file", err)
		}

		for i := range dstVersions {
			dstVersions[i].FileID = dst.ID
			if err := tx.Versions.Create(ctx, dstVersions[i]); err != nil {
				return errs.Wrap(errs.KindUnavailable, "create destination version", err)
			}

			// 当前版本指针跟随 validated 的源当前版本
			if src.CurrentVersionID != nil && srcVersions[i].ID == *src.CurrentVersionID {
				dst.CurrentVersionID = &dstVersions[i].ID
				dst.Status = model.FileStatusApproved
				dst.Size = dstVersions[i].Size
				dst.MimeType = dstVersions[i].MimeType
			}
		}

		if dst.CurrentVersionID != nil {
			if err := tx.Files.Update(ctx, dst); err != nil {
				return errs.Wrap(errs.KindUnavailable, "update destination pointer", err)
			}
		}

		if err := recordAudit(ctx, tx, src.ID, model.ActionCopy, actor, nil,
			map[string]any{"dst_path": dstPath, "with_versions": req.CopyVersions}, origin); err != nil {
			return err
		}

		return recordAudit(ctx, tx, dst.ID, model.ActionCopy, actor, nil,
			map[string]any{"src_path": src.LogicalPath, "src_file_id": src.ID}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicFileCopied, queue.FileCopiedPayload{
		Source:       fileRef(src),
		Destination:  fileRef(dst),
		Actor:        actor,
		WithVersions: req.CopyVersions,
	})

	return dst, nil
}

// Move 移动文件（桶内路径变更）：对象复制到新键、元数据事务更新、
// 旧对象事务外尽力删除.
func (s *FileService) Move(ctx context.Context, fileID string, req types.MoveFileRequest,
	actor string, origin types.Origin,
) (*model.File, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if f.IsArchived() {
		return nil, errs.New(errs.KindInvalidState, "cannot move an archived file")
	}

	if eff, err := s.repos.Locks.Effective(ctx, fileID, time.Now()); err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "check lock", err)
	} else if eff != nil && eff.LockedBy != actor {
		return nil, errs.Newf(errs.KindConflict, "file is locked by %s", eff.LockedBy).
			WithDetails(map[string]any{"locked_by": eff.LockedBy})
	}

	dstPath, err := NormalizePath(req.DstLogicalPath)
	if err != nil {
		return nil, err
	}

	if dstPath == f.LogicalPath {
		return f, nil
	}

	if _, err := s.repos.Files.GetByPath(ctx, f.BucketKind, f.BucketID, dstPath); err == nil {
		return nil, errs.Newf(errs.KindAlreadyExists, "destination path already occupied: %s", dstPath)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Wrap(errs.KindUnavailable, "check destination", err)
	}

	versions, _, err := s.repos.Versions.List(ctx, fileID, "", 0, types.MaxPageLimit)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "list versions", err)
	}

	fromPath := f.LogicalPath
	moved := &model.File{BucketKind: f.BucketKind, BucketID: f.BucketID, LogicalPath: dstPath}

	oldKeys := make([]string, 0, len(versions))
	newKeys := make(map[string]string, len(versions))

	for i := range versions {
		oldKeys = append(oldKeys, versions[i].ObjectKey)
		newKeys[versions[i].ID] = buildObjectKey(moved, versions[i].VersionNumber)
	}

	// 新键复制先行
	if s.s3Client != nil && len(versions) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(objectOpConcurrency)

		for i := range versions {
			srcKey := versions[i].ObjectKey
			dstKey := newKeys[versions[i].ID]

			g.Go(func() error {
				return s.s3Client.Copy(gctx, srcKey, dstKey)
			})
		}

		if err := g.Wait(); err != nil {
			return nil, errs.Wrap(errs.KindUnavailable, "copy objects", err)
		}
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		f.LogicalPath = dstPath
		if err := tx.Files.Update(ctx, f); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.Newf(errs.KindAlreadyExists, "destination path already occupied: %s", dstPath)
			}

			return errs.Wrap(errs.KindUnavailable, "update file path", err)
		}

		for i := range versions {
			versions[i].ObjectKey = newKeys[versions[i].ID]
			if err := tx.Versions.Update(ctx, &versions[i]); err != nil {
				return errs.Wrap(errs.KindUnavailable, "update version object key", err)
			}
		}

		return recordAudit(ctx, tx, f.ID, model.ActionMove, actor, nil,
			map[string]any{"from": fromPath, "to": dstPath}, origin)
	})
	if err != nil {
		return nil, err
	}

	// 旧对象事务外清理
	s.removeObjects(ctx, oldKeys)

	publishEvent(s.mqClient, queue.TopicFileMoved, queue.FileMovedPayload{
		File:     fileRef(f),
		FromPath: fromPath,
		Actor:    actor,
	})

	return f, nil
}

// UpdateMeta 更新标签与文件名.
func (s *FileService) UpdateMeta(ctx context.Context, fileID string, req types.UpdateMetaRequest,
	actor string, origin types.Origin,
) (*model.File, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if f.IsArchived() {
		return nil, errs.New(errs.KindInvalidState, "cannot update an archived file")
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if req.Filename != "" {
			f.Filename = req.Filename
		}

		if req.Tags != nil {
			f.TagsJSON = types.EncodeTags(req.Tags)
		}

		if err := tx.Files.Update(ctx, f); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update metadata", err)
		}

		return recordAudit(ctx, tx, f.ID, model.ActionUpload, actor, nil,
			map[string]any{"meta_update": true}, origin)
	})
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Info 聚合读取：文件 + 可选的版本/锁/审计.
func (s *FileService) Info(ctx context.Context, fileID string, req types.FileInfoRequest) (*types.FileInfoResponse, error) {
	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	out := &types.FileInfoResponse{File: types.NewFileResponse(f)}

	if req.IncludeVersions {
		versions, _, err := s.repos.Versions.List(ctx, fileID, "", 0, types.MaxPageLimit)
		if err != nil {
			return nil, errs.Wrap(errs.KindUnavailable, "list versions", err)
		}

		for i := range versions {
			out.Versions = append(out.Versions, types.NewVersionResponse(&versions[i]))
		}
	}

	if req.IncludeLocks {
		locks, _, err := s.repos.Locks.List(ctx, repository.LockListFilter{FileID: fileID}, time.Now(), 0, types.MaxPageLimit)
		if err != nil {
			return nil, errs.Wrap(errs.KindUnavailable, "list locks", err)
		}

		for i := range locks {
			out.Locks = append(out.Locks, types.NewLockResponse(&locks[i]))
		}
	}

	if req.IncludeAudit {
		entries, _, err := s.repos.Audit.History(ctx, fileID, 0, types.DefaultPageLimit)
		if err != nil {
			return nil, errs.Wrap(errs.KindUnavailable, "read audit history", err)
		}

		for i := range entries {
			out.Audit = append(out.Audit, types.NewAuditResponse(&entries[i]))
		}
	}

	return out, nil
}

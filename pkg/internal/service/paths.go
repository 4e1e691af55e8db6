package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/queue"
)

// PathService 将 (bucket_kind, bucket_id, logical_path) 三元组解析为
// 规范的文件身份，并维护其唯一性.
type PathService struct {
	base
}

// NewPathService 从 context 获取依赖实例.
func NewPathService(c context.Context) *PathService {
	return &PathService{base: newBase(c)}
}

// NormalizePath 规范化桶内逻辑路径：
// 去除前导分隔符、折叠重复分隔符、拒绝 "." 与 ".." 段、拒绝空路径.
// 路径合法性是本组件的职责，不信任传输层.
func NormalizePath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", errs.New(errs.KindInvalid, "path must not contain '..' segments")
		default:
			out = append(out, seg)
		}
	}

	if len(out) == 0 {
		return "", errs.New(errs.KindInvalid, "path must not be empty")
	}

	return strings.Join(out, "/"), nil
}

// parseBucketKind 校验桶类型.
func parseBucketKind(s string) (model.BucketKind, error) {
	switch model.BucketKind(s) {
	case model.BucketUser, model.BucketCompany, model.BucketProject:
		return model.BucketKind(s), nil
	default:
		return "", errs.Newf(errs.KindInvalid, "unknown bucket kind: %s", s)
	}
}

// Resolve 解析文件身份；不存在或已归档（路径已释放）返回 NotFound.
func (s *PathService) Resolve(ctx context.Context, kind, bucketID, logicalPath string) (*model.File, error) {
	bk, err := parseBucketKind(kind)
	if err != nil {
		return nil, err
	}

	path, err := NormalizePath(logicalPath)
	if err != nil {
		return nil, err
	}

	f, err := s.repos.Files.GetByPath(ctx, bk, bucketID, path)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "file not found: %s", path)
	}

	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "resolve file", err)
	}

	if f.IsArchived() {
		return nil, errs.Newf(errs.KindNotFound, "file not found: %s", path)
	}

	return f, nil
}

// Create 显式建立文件身份（目录占位或上传预登记）.
// 路径被未归档文件占用时返回 AlreadyExists；归档会释放路径，
// 同一路径可以立即建立新的文件身份.
func (s *PathService) Create(ctx context.Context, kind, bucketID string, req types.CreateFileRequest,
	actor string, origin types.Origin,
) (*model.File, error) {
	bk, err := parseBucketKind(kind)
	if err != nil {
		return nil, err
	}

	path, err := NormalizePath(req.LogicalPath)
	if err != nil {
		return nil, err
	}

	filename := req.Filename
	if filename == "" {
		if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
			filename = path[idx+1:]
		} else {
			filename = path
		}
	}

	f := &model.File{
		BucketKind:  bk,
		BucketID:    bucketID,
		LogicalPath: path,
		Filename:    filename,
		OwnerID:     actor,
		Status:      model.FileStatusDraft,
		TagsJSON:    types.EncodeTags(req.Tags),
		IsDirectory: req.IsDirectory,
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Files.Create(ctx, f); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.Newf(errs.KindAlreadyExists, "path already occupied: %s", path)
			}

			return errs.Wrap(errs.KindUnavailable, "create file", err)
		}

		return recordAudit(ctx, tx, f.ID, model.ActionUpload, actor, nil,
			map[string]any{"created": true, "is_directory": req.IsDirectory}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicFileCreated, queue.FileCreatedPayload{
		File:  fileRef(f),
		Actor: actor,
	})

	return f, nil
}

// List 按前缀分页列举未归档文件.
func (s *PathService) List(ctx context.Context, kind, bucketID string, req types.ListFilesRequest) ([]model.File, int64, error) {
	bk, err := parseBucketKind(kind)
	if err != nil {
		return nil, 0, err
	}

	prefix := ""

	if req.PathPrefix != "" {
		prefix, err = NormalizePath(req.PathPrefix)
		if err != nil {
			return nil, 0, err
		}
	}

	req.Clamp()

	files, total, err := s.repos.Files.List(ctx, bk, bucketID, prefix, req.Offset, req.Limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindUnavailable, "list files", err)
	}

	return files, total, nil
}

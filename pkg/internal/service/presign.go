package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/storage/s3"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
)

// presignCacheMargin 缓存 TTL 相对 URL 有效期的提前量，
// 保证取出的 URL 至少还有这么长可用.
const presignCacheMargin = 5 * time.Minute

// PresignUpload 为版本的对象键签发上传 URL.
// 只有 draft 版本可以重新上传内容，送审后内容即冻结.
func (s *FileService) PresignUpload(ctx context.Context, versionID string) (*types.PresignResponse, error) {
	if s.s3Client == nil {
		return nil, errs.New(errs.KindUnavailable, "object storage not configured")
	}

	v, err := s.getVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if v.Status != model.VersionStatusDraft {
		return nil, errs.Newf(errs.KindInvalidState, "cannot upload to version in status %s", v.Status)
	}

	url, err := s.s3Client.PresignPut(ctx, v.ObjectKey, s3.DefaultPresignExpiry)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "presign upload", err)
	}

	return &types.PresignResponse{
		URL:       url,
		ObjectKey: v.ObjectKey,
		ExpiresAt: time.Now().Add(s3.DefaultPresignExpiry),
	}, nil
}

// PresignDownload 为版本签发下载 URL 并记录 download 审计.
// versionID 为空时取文件的当前版本；没有当前版本报 InvalidState.
// URL 可再生，经 KV 缓存复用，缓存 TTL 留有余量保证取出即可用.
func (s *FileService) PresignDownload(ctx context.Context, fileID, versionID, actor string,
	origin types.Origin,
) (*types.PresignResponse, error) {
	if s.s3Client == nil {
		return nil, errs.New(errs.KindUnavailable, "object storage not configured")
	}

	f, err := s.getFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if versionID == "" {
		if f.CurrentVersionID == nil {
			return nil, errs.New(errs.KindInvalidState, "file has no approved version")
		}

		versionID = *f.CurrentVersionID
	}

	v, err := s.getVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if v.FileID != f.ID {
		return nil, errs.Newf(errs.KindNotFound, "version %s does not belong to file %s", versionID, fileID)
	}

	resp, err := s.presignGetCached(ctx, v)
	if err != nil {
		return nil, err
	}

	// 下载属于受审计操作，URL 命中缓存也要记
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return recordAudit(ctx, tx, f.ID, model.ActionDownload, actor, &v.ID,
			map[string]any{"version_number": v.VersionNumber}, origin)
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// presignGetCached 带 KV 缓存的下载 URL 签发. 缓存不可用时直接签发.
func (s *FileService) presignGetCached(ctx context.Context, v *model.Version) (*types.PresignResponse, error) {
	cacheKey := fmt.Sprintf("presign:get:%s", v.ID)

	if s.kvClient != nil {
		if raw, err := s.kvClient.Get(ctx, cacheKey); err == nil && len(raw) > 0 {
			var cached types.PresignResponse
			if err := sonic.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	url, err := s.s3Client.PresignGet(ctx, v.ObjectKey, s3.DefaultPresignExpiry)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "presign download", err)
	}

	resp := &types.PresignResponse{
		URL:       url,
		ObjectKey: v.ObjectKey,
		ExpiresAt: time.Now().Add(s3.DefaultPresignExpiry),
	}

	if s.kvClient != nil {
		if raw, err := sonic.Marshal(resp); err == nil {
			ttl := s3.DefaultPresignExpiry - presignCacheMargin
			if err := s.kvClient.Set(ctx, cacheKey, raw, ttl); err != nil {
				nlog.Logger().Warn().Err(err).Str("key", cacheKey).Msg("cache presigned url failed")
			}
		}
	}

	return resp, nil
}

// getVersion 读取版本，不存在报 NotFound.
func (s *FileService) getVersion(ctx context.Context, versionID string) (*model.Version, error) {
	v, err := s.repos.Versions.GetByID(ctx, versionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "version not found: %s", versionID)
	}

	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "get version", err)
	}

	return v, nil
}

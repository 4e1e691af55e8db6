package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/queue"
)

// ValidationService 推进版本的审批状态机并晋升文件的当前版本指针.
// 状态机：draft -> pending_validation -> {validated | rejected}，
// validated 与 rejected 是终态，没有任何出边.
type ValidationService struct {
	base
}

// NewValidationService 从 context 获取依赖实例.
func NewValidationService(c context.Context) *ValidationService {
	return &ValidationService{base: newBase(c)}
}

// Submit 将 draft 版本送审.
func (s *ValidationService) Submit(ctx context.Context, versionID, actor string, origin types.Origin) (*model.Version, error) {
	v, f, err := s.getVersionWithFile(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if v.Status != model.VersionStatusDraft {
		return nil, errs.Newf(errs.KindInvalidState, "cannot submit version in status %s", v.Status)
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		v.Status = model.VersionStatusPendingValidation
		if err := tx.Versions.Update(ctx, v); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update version", err)
		}

		f.Status = model.FileStatusPendingValidation
		if err := tx.Files.Update(ctx, f); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update file", err)
		}

		return recordAudit(ctx, tx, f.ID, model.ActionValidate, actor, &v.ID,
			map[string]any{"version_number": v.VersionNumber, "transition": "submit"}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicVersionSubmitted, queue.VersionSubmittedPayload{
		File:    fileRef(f),
		Version: versionRef(v),
		Actor:   actor,
	})

	return v, nil
}

// Approve 审批通过.
// 单个事务内：落审批人/时间/意见，版本置 validated，
// 文件 current_version_id 指向本版本、状态置 approved，
// size/mime 镜像到文件，并追加审计. 这是 current_version_id 唯一的变更路径.
func (s *ValidationService) Approve(ctx context.Context, versionID, actor string, req types.ValidateRequest,
	origin types.Origin,
) (*model.Version, error) {
	v, f, err := s.getVersionWithFile(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if err := s.checkValidator(v, actor); err != nil {
		return nil, err
	}

	now := time.Now()

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		v.Status = model.VersionStatusValidated
		v.ValidatedBy = actor
		v.ValidatedAt = &now
		v.ValidationComment = req.Comment

		if err := tx.Versions.Update(ctx, v); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update version", err)
		}

		f.CurrentVersionID = &v.ID
		f.Status = model.FileStatusApproved
		f.Size = v.Size
		f.MimeType = v.MimeType

		if err := tx.Files.Update(ctx, f); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update file", err)
		}

		return recordAudit(ctx, tx, f.ID, model.ActionApprove, actor, &v.ID,
			map[string]any{"version_number": v.VersionNumber, "comment": req.Comment}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicVersionApproved, queue.VersionValidatedPayload{
		File:        fileRef(f),
		Version:     versionRef(v),
		ValidatedBy: actor,
		Comment:     req.Comment,
	})

	return v, nil
}

// Reject 审批驳回：版本置 rejected（终态），不触碰 current_version_id.
// 被驳回的版本不会删除；重试须提交新版本再送审.
func (s *ValidationService) Reject(ctx context.Context, versionID, actor string, req types.ValidateRequest,
	origin types.Origin,
) (*model.Version, error) {
	v, f, err := s.getVersionWithFile(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if err := s.checkValidator(v, actor); err != nil {
		return nil, err
	}

	now := time.Now()

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		v.Status = model.VersionStatusRejected
		v.ValidatedBy = actor
		v.ValidatedAt = &now
		v.ValidationComment = req.Comment

		if err := tx.Versions.Update(ctx, v); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update version", err)
		}

		f.Status = model.FileStatusRequiresRevision
		if err := tx.Files.Update(ctx, f); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update file", err)
		}

		return recordAudit(ctx, tx, f.ID, model.ActionReject, actor, &v.ID,
			map[string]any{"version_number": v.VersionNumber, "comment": req.Comment}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicVersionRejected, queue.VersionValidatedPayload{
		File:        fileRef(f),
		Version:     versionRef(v),
		ValidatedBy: actor,
		Comment:     req.Comment,
	})

	return v, nil
}

// checkValidator 审批前置检查：自审批报 Forbidden（绝不静默跳过），
// 非 pending_validation 状态报 InvalidState.
func (s *ValidationService) checkValidator(v *model.Version, actor string) error {
	if actor == "" || actor == v.CreatedBy {
		return errs.New(errs.KindForbidden, "a version cannot be validated by its creator")
	}

	if !v.CanBeValidatedBy(actor) {
		return errs.Newf(errs.KindInvalidState, "cannot validate version in status %s", v.Status)
	}

	return nil
}

// getVersionWithFile 读取版本及其所属文件.
func (s *ValidationService) getVersionWithFile(ctx context.Context, versionID string) (*model.Version, *model.File, error) {
	v, err := s.repos.Versions.GetByID(ctx, versionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errs.Newf(errs.KindNotFound, "version not found: %s", versionID)
	}

	if err != nil {
		return nil, nil, errs.Wrap(errs.KindUnavailable, "get version", err)
	}

	f, err := s.repos.Files.GetByID(ctx, v.FileID)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindUnavailable, "get owning file", err)
	}

	return v, f, nil
}

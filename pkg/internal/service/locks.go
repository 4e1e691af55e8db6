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

// LockService 管理文件级咨询锁：任一时刻每文件至多一把有效锁.
// 获取走事务内对文件行加锁的 check-then-insert，
// 并发获取在数据库层串行化；过期惰性判定，不做后台清扫.
type LockService struct {
	base
}

// NewLockService 从 context 获取依赖实例.
func NewLockService(c context.Context) *LockService {
	return &LockService{base: newBase(c)}
}

// Acquire 获取锁.
// 已存在有效锁时报 Conflict 并携带持有者身份，绝不静默覆盖、不重试.
func (s *LockService) Acquire(ctx context.Context, fileID, actor string, req types.AcquireLockRequest,
	origin types.Origin,
) (*model.Lock, error) {
	lockType := model.LockType(req.LockType)
	switch lockType {
	case model.LockTypeEdit, model.LockTypeReview, model.LockTypeAdmin:
	default:
		return nil, errs.Newf(errs.KindInvalid, "unknown lock type: %s", req.LockType)
	}

	l := &model.Lock{
		FileID:   fileID,
		LockedBy: actor,
		LockType: lockType,
		Reason:   req.Reason,
		IsActive: true,
	}

	if req.TTLSeconds > 0 {
		expires := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
		l.ExpiresAt = &expires
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		// 文件行锁串行化并发获取
		f, err := tx.Files.GetByIDForUpdate(ctx, fileID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Newf(errs.KindNotFound, "file not found: %s", fileID)
		}

		if err != nil {
			return errs.Wrap(errs.KindUnavailable, "get file", err)
		}

		if f.IsArchived() {
			return errs.New(errs.KindInvalidState, "cannot lock an archived file")
		}

		eff, err := tx.Locks.Effective(ctx, fileID, time.Now())
		if err != nil {
			return errs.Wrap(errs.KindUnavailable, "check effective lock", err)
		}

		if eff != nil {
			return errs.Newf(errs.KindConflict, "file is locked by %s", eff.LockedBy).
				WithDetails(map[string]any{
					"locked_by": eff.LockedBy,
					"lock_type": string(eff.LockType),
					"lock_id":   eff.ID,
				})
		}

		if err := tx.Locks.Create(ctx, l); err != nil {
			return errs.Wrap(errs.KindUnavailable, "create lock", err)
		}

		return recordAudit(ctx, tx, fileID, model.ActionLock, actor, nil,
			map[string]any{"lock_type": string(lockType), "reason": req.Reason}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicLockAcquired, queue.LockEventPayload{
		File:     queue.FileRef{FileID: fileID},
		LockID:   l.ID,
		LockType: string(l.LockType),
		Holder:   actor,
		Actor:    actor,
		ExpireAt: l.ExpiresAt,
	})

	return l, nil
}

// Release 释放锁.
// 非持有者需要 force（force 的授权由访问网关在上层判定，这里只执行）；
// 不存在、已释放或已过期的锁报 NotLocked（InvalidState），与 Forbidden 区分.
func (s *LockService) Release(ctx context.Context, lockID, actor string, force bool, origin types.Origin) (*model.Lock, error) {
	var l *model.Lock

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error

		l, err = tx.Locks.GetByID(ctx, lockID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.Newf(errs.KindInvalidState, "lock %s is not held", lockID)
		}

		if err != nil {
			return errs.Wrap(errs.KindUnavailable, "get lock", err)
		}

		// 惰性过期：过期但仍 is_active 的行视为未持有
		if !l.IsEffective(time.Now()) {
			return errs.Newf(errs.KindInvalidState, "lock %s is not held", lockID)
		}

		if !l.CanBeReleasedBy(actor) && !force {
			return errs.New(errs.KindForbidden, "lock can only be released by its holder")
		}

		now := time.Now()
		l.IsActive = false
		l.ReleasedBy = actor
		l.ReleasedAt = &now

		if err := tx.Locks.Update(ctx, l); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update lock", err)
		}

		return recordAudit(ctx, tx, l.FileID, model.ActionUnlock, actor, nil,
			map[string]any{"lock_id": l.ID, "forced": force && l.LockedBy != actor}, origin)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(s.mqClient, queue.TopicLockReleased, queue.LockEventPayload{
		File:   queue.FileRef{FileID: l.FileID},
		LockID: l.ID, LockType: string(l.LockType),
		Holder: l.LockedBy,
		Actor:  actor,
		Forced: force && l.LockedBy != actor,
	})

	return l, nil
}

// EffectiveLock 文件当前有效的锁，无则 nil.
func (s *LockService) EffectiveLock(ctx context.Context, fileID string) (*model.Lock, error) {
	l, err := s.repos.Locks.Effective(ctx, fileID, time.Now())
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "get effective lock", err)
	}

	return l, nil
}

// List 列举有效锁，可按文件或按桶过滤，过滤条件为空表示全部.
func (s *LockService) List(ctx context.Context, req types.ListLocksRequest) ([]model.Lock, int64, error) {
	req.Clamp()

	filter := repository.LockListFilter{FileID: req.FileID}

	if req.BucketKind != "" {
		bk, err := parseBucketKind(req.BucketKind)
		if err != nil {
			return nil, 0, err
		}

		filter.BucketKind = bk
		filter.BucketID = req.BucketID
	}

	locks, total, err := s.repos.Locks.List(ctx, filter, time.Now(), req.Offset, req.Limit)
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindUnavailable, "list locks", err)
	}

	return locks, total, nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestAcquireConflictCarriesHolder(t *testing.T) {
	b := newTestBase(t)
	svc := &LockService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/draft.md")

	l, err := svc.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit", Reason: "editing"}, types.Origin{})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err = svc.Acquire(ctx, f.ID, "bob", types.AcquireLockRequest{LockType: "edit"}, types.Origin{})
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("second acquire kind = %s, want conflict", errs.KindOf(err))
	}

	details := errs.DetailsOf(err)
	if details["locked_by"] != "alice" || details["lock_id"] != l.ID {
		t.Fatalf("conflict details = %v, want holder alice and lock id", details)
	}

	// 持有者重复获取同样冲突，不静默续期
	if _, err := svc.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); !errs.Is(err, errs.KindConflict) {
		t.Fatalf("holder re-acquire kind = %s, want conflict", errs.KindOf(err))
	}
}

func TestAcquireValidation(t *testing.T) {
	b := newTestBase(t)
	svc := &LockService{base: b}
	files := &FileService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/draft.md")

	if _, err := svc.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "exclusive"}, types.Origin{}); !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("unknown lock type kind = %s, want invalid", errs.KindOf(err))
	}

	if _, err := svc.Acquire(ctx, "missing-id", "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("missing file kind = %s, want not_found", errs.KindOf(err))
	}

	if _, err := files.Archive(ctx, f.ID, "alice", types.Origin{}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if _, err := svc.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("lock archived kind = %s, want invalid_state", errs.KindOf(err))
	}
}

func TestReleaseOwnership(t *testing.T) {
	b := newTestBase(t)
	svc := &LockService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/draft.md")

	l, err := svc.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// 非持有者且非 force：拒绝
	if _, err := svc.Release(ctx, l.ID, "bob", false, types.Origin{}); !errs.Is(err, errs.KindForbidden) {
		t.Fatalf("foreign release kind = %s, want forbidden", errs.KindOf(err))
	}

	released, err := svc.Release(ctx, l.ID, "alice", false, types.Origin{})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	if released.IsActive || released.ReleasedBy != "alice" || released.ReleasedAt == nil {
		t.Fatalf("release stamps wrong: %+v", released)
	}

	// 已释放再释放：NotLocked 即 invalid_state，而不是 forbidden
	if _, err := svc.Release(ctx, l.ID, "alice", false, types.Origin{}); !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("double release kind = %s, want invalid_state", errs.KindOf(err))
	}

	// 释放后其他人可获取
	if _, err := svc.Acquire(ctx, f.ID, "bob", types.AcquireLockRequest{LockType: "review"}, types.Origin{}); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestForceRelease(t *testing.T) {
	b := newTestBase(t)
	svc := &LockService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/draft.md")

	l, err := svc.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	released, err := svc.Release(ctx, l.ID, "admin", true, types.Origin{})
	if err != nil {
		t.Fatalf("force release: %v", err)
	}

	if released.IsActive || released.ReleasedBy != "admin" {
		t.Fatalf("force release stamps wrong: %+v", released)
	}
}

func TestLazyExpiry(t *testing.T) {
	b := newTestBase(t)
	svc := &LockService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/draft.md")

	l, err := svc.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit", TTLSeconds: 60}, types.Origin{})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if l.ExpiresAt == nil {
		t.Fatal("ttl lock has no expiry")
	}

	// 把过期时间拨到过去，行仍然 is_active
	past := time.Now().Add(-time.Minute)
	l.ExpiresAt = &past

	if err := b.repos.Locks.Update(ctx, l); err != nil {
		t.Fatalf("backdate lock: %v", err)
	}

	// 过期锁不算有效
	eff, err := svc.EffectiveLock(ctx, f.ID)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}

	if eff != nil {
		t.Fatalf("expired lock still effective: %+v", eff)
	}

	// 释放过期锁报 NotLocked
	if _, err := svc.Release(ctx, l.ID, "alice", false, types.Origin{}); !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("release expired kind = %s, want invalid_state", errs.KindOf(err))
	}

	// 他人可直接获取，无需任何清扫
	if _, err := svc.Acquire(ctx, f.ID, "bob", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); err != nil {
		t.Fatalf("acquire over expired: %v", err)
	}
}

func TestListEffectiveLocks(t *testing.T) {
	b := newTestBase(t)
	svc := &LockService{base: b}
	ctx := context.Background()

	f1 := mustCreateFile(t, b, "docs/a.md")
	f2 := mustCreateFile(t, b, "docs/b.md")

	if _, err := svc.Acquire(ctx, f1.ID, "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); err != nil {
		t.Fatalf("acquire f1: %v", err)
	}

	l2, err := svc.Acquire(ctx, f2.ID, "bob", types.AcquireLockRequest{LockType: "review"}, types.Origin{})
	if err != nil {
		t.Fatalf("acquire f2: %v", err)
	}

	if _, err := svc.Release(ctx, l2.ID, "bob", false, types.Origin{}); err != nil {
		t.Fatalf("release f2: %v", err)
	}

	locks, total, err := svc.List(ctx, types.ListLocksRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if total != 1 || locks[0].FileID != f1.ID {
		t.Fatalf("list = %d locks, want only the f1 lock", total)
	}

	// 桶维度过滤
	_, total, err = svc.List(ctx, types.ListLocksRequest{BucketKind: "user", BucketID: "u1"})
	if err != nil {
		t.Fatalf("list by bucket: %v", err)
	}

	if total != 1 {
		t.Fatalf("list by bucket = %d locks, want 1", total)
	}

	if _, total, err = svc.List(ctx, types.ListLocksRequest{BucketKind: "user", BucketID: "other"}); err != nil || total != 0 {
		t.Fatalf("list by foreign bucket = %d locks (err %v), want 0", total, err)
	}

	if _, _, err = svc.List(ctx, types.ListLocksRequest{BucketKind: "basement"}); errs.KindOf(err) != errs.KindInvalid {
		t.Fatalf("list by unknown bucket kind = %s, want invalid", errs.KindOf(err))
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestArchiveHidesFile(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	paths := &PathService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/old.txt")

	archived, err := files.Archive(ctx, f.ID, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	if archived.Status != model.FileStatusArchived {
		t.Fatalf("status = %s, want archived", archived.Status)
	}

	// 解析与列举都不可见
	if _, err := paths.Resolve(ctx, "user", "u1", "docs/old.txt"); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("resolve archived kind = %s, want not_found", errs.KindOf(err))
	}

	_, total, err := paths.List(ctx, "user", "u1", types.ListFilesRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if total != 0 {
		t.Fatalf("archived file still listed, total = %d", total)
	}

	// 归档释放路径：同一路径立即可以建立新身份
	replacement, err := paths.Create(ctx, "user", "u1", types.CreateFileRequest{LogicalPath: "docs/old.txt"}, "bob", types.Origin{})
	if err != nil {
		t.Fatalf("recreate over archived: %v", err)
	}

	if replacement.ID == f.ID {
		t.Fatal("recreate returned the archived identity")
	}

	if got, err := paths.Resolve(ctx, "user", "u1", "docs/old.txt"); err != nil || got.ID != replacement.ID {
		t.Fatalf("resolve after recreate = %+v, %v", got, err)
	}

	// 路径被新文件占用后，归档身份无法恢复
	if _, err := files.Restore(ctx, f.ID, "alice", types.Origin{}); !errs.Is(err, errs.KindConflict) {
		t.Fatalf("restore into occupied path kind = %s, want conflict", errs.KindOf(err))
	}

	// 幂等
	again, err := files.Archive(ctx, f.ID, "alice", types.Origin{})
	if err != nil || again.Status != model.FileStatusArchived {
		t.Fatalf("second archive: %v, status %s", err, again.Status)
	}
}

func TestRestore(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	ctx := context.Background()

	// 无当前版本：恢复为 draft
	f1 := mustCreateFile(t, b, "docs/a.txt")
	if _, err := files.Archive(ctx, f1.ID, "alice", types.Origin{}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	restored, err := files.Restore(ctx, f1.ID, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Status != model.FileStatusDraft {
		t.Fatalf("restored status = %s, want draft", restored.Status)
	}

	// 有当前版本：恢复为 approved
	f2 := mustCreateFile(t, b, "docs/b.txt")
	v := mustCommit(t, b, f2.ID, "alice", true)
	mustApprove(t, b, v.ID, "bob")

	if _, err := files.Archive(ctx, f2.ID, "alice", types.Origin{}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	restored, err = files.Restore(ctx, f2.ID, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Status != model.FileStatusApproved {
		t.Fatalf("restored status = %s, want approved", restored.Status)
	}

	// 未归档文件不可恢复
	if _, err := files.Restore(ctx, f2.ID, "alice", types.Origin{}); !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("restore active kind = %s, want invalid_state", errs.KindOf(err))
	}
}

func TestPurgeCascadesAndLeavesOneRecord(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	locks := &LockService{base: b}
	paths := &PathService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/doomed.txt")
	mustCommit(t, b, f.ID, "alice", false)
	mustCommit(t, b, f.ID, "alice", false)

	if _, err := locks.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := files.Purge(ctx, f.ID, "admin", types.Origin{}); err != nil {
		t.Fatalf("purge: %v", err)
	}

	if _, err := b.repos.Files.GetByID(ctx, f.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatal("file row survived purge")
	}

	if _, total, err := b.repos.Versions.List(ctx, f.ID, "", 0, 10); err != nil || total != 0 {
		t.Fatalf("versions after purge: total=%d err=%v", total, err)
	}

	if eff, err := b.repos.Locks.Effective(ctx, f.ID, time.Now()); err != nil || eff != nil {
		t.Fatalf("lock after purge: %+v err=%v", eff, err)
	}

	// 级联清掉历史，只留一条记录 purge 本身的条目
	entries, total, err := b.repos.Audit.History(ctx, f.ID, 0, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if total != 1 || entries[0].Action != model.ActionDelete || entries[0].UserID != "admin" {
		t.Fatalf("surviving audit = %d entries, first %+v", total, entries[0])
	}

	if !strings.Contains(entries[0].DetailsJSON, "purge") {
		t.Fatalf("purge entry details = %s", entries[0].DetailsJSON)
	}

	// 路径立即可复用
	if _, err := paths.Create(ctx, "user", "u1", types.CreateFileRequest{LogicalPath: "docs/doomed.txt"}, "bob", types.Origin{}); err != nil {
		t.Fatalf("recreate after purge: %v", err)
	}

	// 幂等
	if err := files.Purge(ctx, f.ID, "admin", types.Origin{}); err != nil {
		t.Fatalf("second purge: %v", err)
	}
}

func TestPurgeObjectKeysScopedToFile(t *testing.T) {
	b := newTestBase(t)
	ctx := context.Background()

	doomed := mustCreateFile(t, b, "docs/doomed.txt")
	mustCommit(t, b, doomed.ID, "alice", false)
	mustCommit(t, b, doomed.ID, "alice", false)

	bystander := mustCreateFile(t, b, "docs/bystander.txt")
	mustCommit(t, b, bystander.ID, "alice", false)

	keys, err := b.repos.Versions.ObjectKeysByFile(ctx, doomed.ID)
	if err != nil {
		t.Fatalf("object keys: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("keys = %v, want the two doomed versions", keys)
	}

	for i, key := range keys {
		want := fmt.Sprintf("user/u1/docs/doomed.txt/%d", i+1)
		if key != want {
			t.Fatalf("keys[%d] = %s, want %s", i, key, want)
		}
	}
}

func TestCopyCurrentVersionOnly(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	ctx := context.Background()

	src := mustCreateFile(t, b, "docs/src.txt")
	mustCommit(t, b, src.ID, "alice", false)
	v2 := mustCommit(t, b, src.ID, "alice", true)
	mustApprove(t, b, v2.ID, "bob")

	dst, err := files.Copy(ctx, src.ID, types.CopyFileRequest{
		DstBucketKind:  "project",
		DstBucketID:    "p1",
		DstLogicalPath: "shared/copy.txt",
	}, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("copy: %v", err)
	}

	versions, total, err := b.repos.Versions.List(ctx, dst.ID, "", 0, 10)
	if err != nil {
		t.Fatalf("list dst versions: %v", err)
	}

	// 只复制当前版本，重排为 v1
	if total != 1 || versions[0].VersionNumber != 1 {
		t.Fatalf("dst versions = %d, first number %d; want single v1", total, versions[0].VersionNumber)
	}

	if dst.CurrentVersionID == nil || *dst.CurrentVersionID != versions[0].ID {
		t.Fatal("dst current pointer not set to copied version")
	}

	if dst.Status != model.FileStatusApproved {
		t.Fatalf("dst status = %s, want approved", dst.Status)
	}

	if !strings.HasPrefix(versions[0].ObjectKey, "project/p1/shared/copy.txt/") {
		t.Fatalf("dst object key = %s", versions[0].ObjectKey)
	}

	// 目标已占用
	_, err = files.Copy(ctx, src.ID, types.CopyFileRequest{
		DstBucketKind:  "project",
		DstBucketID:    "p1",
		DstLogicalPath: "shared/copy.txt",
	}, "alice", types.Origin{})
	if !errs.Is(err, errs.KindAlreadyExists) {
		t.Fatalf("copy onto occupied kind = %s, want already_exists", errs.KindOf(err))
	}
}

func TestCopyAllVersions(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	ctx := context.Background()

	src := mustCreateFile(t, b, "docs/src.txt")
	mustCommit(t, b, src.ID, "alice", false)
	mustCommit(t, b, src.ID, "alice", false)
	mustCommit(t, b, src.ID, "alice", false)

	dst, err := files.Copy(ctx, src.ID, types.CopyFileRequest{
		DstBucketKind:  "user",
		DstBucketID:    "u1",
		DstLogicalPath: "docs/full-copy.txt",
		CopyVersions:   true,
	}, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("copy: %v", err)
	}

	versions, total, err := b.repos.Versions.List(ctx, dst.ID, "", 0, 10)
	if err != nil {
		t.Fatalf("list dst versions: %v", err)
	}

	if total != 3 {
		t.Fatalf("dst versions = %d, want 3", total)
	}

	// 版本号保留（倒序列举）
	for i, want := range []int{3, 2, 1} {
		if versions[i].VersionNumber != want {
			t.Fatalf("version[%d] number = %d, want %d", i, versions[i].VersionNumber, want)
		}
	}
}

func TestCopyLockedSource(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	locks := &LockService{base: b}
	ctx := context.Background()

	src := mustCreateFile(t, b, "docs/src.txt")

	if _, err := locks.Acquire(ctx, src.ID, "bob", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err := files.Copy(ctx, src.ID, types.CopyFileRequest{
		DstBucketKind:  "user",
		DstBucketID:    "u1",
		DstLogicalPath: "docs/copy.txt",
	}, "alice", types.Origin{})
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("copy locked source kind = %s, want conflict", errs.KindOf(err))
	}
}

func TestMove(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	paths := &PathService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/before.txt")
	mustCommit(t, b, f.ID, "alice", false)

	mustCreateFile(t, b, "docs/occupied.txt")

	// 目标占用
	_, err := files.Move(ctx, f.ID, types.MoveFileRequest{DstLogicalPath: "docs/occupied.txt"}, "alice", types.Origin{})
	if !errs.Is(err, errs.KindAlreadyExists) {
		t.Fatalf("move onto occupied kind = %s, want already_exists", errs.KindOf(err))
	}

	moved, err := files.Move(ctx, f.ID, types.MoveFileRequest{DstLogicalPath: "archive/after.txt"}, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	if moved.LogicalPath != "archive/after.txt" {
		t.Fatalf("path = %s", moved.LogicalPath)
	}

	// 对象键跟随新路径
	versions, _, err := b.repos.Versions.List(ctx, f.ID, "", 0, 10)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}

	if !strings.HasPrefix(versions[0].ObjectKey, "user/u1/archive/after.txt/") {
		t.Fatalf("object key = %s", versions[0].ObjectKey)
	}

	// 旧路径可解析性：消失
	if _, err := paths.Resolve(ctx, "user", "u1", "docs/before.txt"); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("old path kind = %s, want not_found", errs.KindOf(err))
	}

	if _, err := paths.Resolve(ctx, "user", "u1", "archive/after.txt"); err != nil {
		t.Fatalf("new path: %v", err)
	}

	// 移动到当前路径是 no-op
	if _, err := files.Move(ctx, f.ID, types.MoveFileRequest{DstLogicalPath: "/archive//after.txt"}, "alice", types.Origin{}); err != nil {
		t.Fatalf("no-op move: %v", err)
	}
}

func TestUpdateMeta(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/tagme.txt")

	got, err := files.UpdateMeta(ctx, f.ID, types.UpdateMetaRequest{
		Filename: "renamed.txt",
		Tags:     map[string]string{"team": "infra"},
	}, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("update meta: %v", err)
	}

	if got.Filename != "renamed.txt" {
		t.Fatalf("filename = %s", got.Filename)
	}

	if tags := types.DecodeTags(got.TagsJSON); tags["team"] != "infra" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestInfoAggregates(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	locks := &LockService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/full.txt")
	mustCommit(t, b, f.ID, "alice", false)

	if _, err := locks.Acquire(ctx, f.ID, "alice", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	info, err := files.Info(ctx, f.ID, types.FileInfoRequest{
		IncludeVersions: true,
		IncludeLocks:    true,
		IncludeAudit:    true,
	})
	if err != nil {
		t.Fatalf("info: %v", err)
	}

	if info.File.ID != f.ID || len(info.Versions) != 1 || len(info.Locks) != 1 || len(info.Audit) == 0 {
		t.Fatalf("aggregate = %d versions, %d locks, %d audit", len(info.Versions), len(info.Locks), len(info.Audit))
	}

	// 不带 include 只有文件本体
	bare, err := files.Info(ctx, f.ID, types.FileInfoRequest{})
	if err != nil {
		t.Fatalf("bare info: %v", err)
	}

	if len(bare.Versions) != 0 || len(bare.Locks) != 0 || len(bare.Audit) != 0 {
		t.Fatal("bare info leaked aggregates")
	}
}

package service

import (
	"context"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestCommitAssignsDenseNumbers(t *testing.T) {
	b := newTestBase(t)
	svc := &VersionService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/report.pdf")

	for want := 1; want <= 3; want++ {
		v := mustCommit(t, b, f.ID, "alice", false)
		if v.VersionNumber != want {
			t.Fatalf("commit %d: version number = %d", want, v.VersionNumber)
		}

		if v.ObjectKey == "" {
			t.Fatal("commit left object key empty")
		}
	}

	latest, err := svc.Latest(ctx, f.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if latest == nil || latest.VersionNumber != 3 {
		t.Fatalf("latest = %+v, want number 3", latest)
	}
}

func TestCommitObjectKeyLayout(t *testing.T) {
	b := newTestBase(t)

	f := mustCreateFile(t, b, "docs/report.pdf")
	v := mustCommit(t, b, f.ID, "alice", false)

	want := "user/u1/docs/report.pdf/1"
	if v.ObjectKey != want {
		t.Fatalf("object key = %q, want %q", v.ObjectKey, want)
	}
}

func TestCommitToArchivedFile(t *testing.T) {
	b := newTestBase(t)
	files := &FileService{base: b}
	versions := &VersionService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/old.txt")
	if _, err := files.Archive(ctx, f.ID, "alice", types.Origin{}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	_, err := versions.Commit(ctx, f.ID, "alice", types.CommitVersionRequest{Size: 1}, types.Origin{})
	if !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("commit to archived kind = %s, want invalid_state", errs.KindOf(err))
	}
}

func TestCommitBlockedByForeignLock(t *testing.T) {
	b := newTestBase(t)
	versions := &VersionService{base: b}
	locks := &LockService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/shared.txt")

	if _, err := locks.Acquire(ctx, f.ID, "bob", types.AcquireLockRequest{LockType: "edit"}, types.Origin{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err := versions.Commit(ctx, f.ID, "alice", types.CommitVersionRequest{Size: 1}, types.Origin{})
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("commit under foreign lock kind = %s, want conflict", errs.KindOf(err))
	}

	if details := errs.DetailsOf(err); details["locked_by"] != "bob" {
		t.Errorf("conflict details = %v, want locked_by=bob", details)
	}

	// 持有者自己可以提交
	if _, err := versions.Commit(ctx, f.ID, "bob", types.CommitVersionRequest{Size: 1}, types.Origin{}); err != nil {
		t.Fatalf("holder commit: %v", err)
	}
}

func TestCommitWithSubmit(t *testing.T) {
	b := newTestBase(t)
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/spec.txt")
	v := mustCommit(t, b, f.ID, "alice", true)

	if v.Status != model.VersionStatusPendingValidation {
		t.Fatalf("version status = %s, want pending_validation", v.Status)
	}

	got, err := b.repos.Files.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}

	if got.Status != model.FileStatusPendingValidation {
		t.Fatalf("file status = %s, want pending_validation", got.Status)
	}
}

func TestGetVersionByNumber(t *testing.T) {
	b := newTestBase(t)
	svc := &VersionService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/x.txt")
	mustCommit(t, b, f.ID, "alice", false)
	mustCommit(t, b, f.ID, "alice", false)

	v, err := svc.Get(ctx, f.ID, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if v.VersionNumber != 2 {
		t.Fatalf("got number %d, want 2", v.VersionNumber)
	}

	if _, err := svc.Get(ctx, f.ID, 9); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("missing number kind = %s, want not_found", errs.KindOf(err))
	}
}

func TestListVersionsStatusFilter(t *testing.T) {
	b := newTestBase(t)
	svc := &VersionService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/y.txt")
	mustCommit(t, b, f.ID, "alice", false)
	v2 := mustCommit(t, b, f.ID, "alice", true)
	mustApprove(t, b, v2.ID, "bob")

	all, total, err := svc.List(ctx, f.ID, types.ListVersionsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if total != 2 || all[0].VersionNumber != 2 {
		t.Fatalf("list = %d items, first number %d; want 2 items newest first", total, all[0].VersionNumber)
	}

	validated, total, err := svc.List(ctx, f.ID, types.ListVersionsRequest{Status: "validated"})
	if err != nil {
		t.Fatalf("list validated: %v", err)
	}

	if total != 1 || validated[0].ID != v2.ID {
		t.Fatalf("validated filter got %d items", total)
	}

	if _, _, err := svc.List(ctx, f.ID, types.ListVersionsRequest{Status: "published"}); !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("bad status kind = %s, want invalid", errs.KindOf(err))
	}
}

func TestCommitByPathCreatesFileImplicitly(t *testing.T) {
	b := newTestBase(t)
	svc := &VersionService{base: b}
	ctx := context.Background()

	f, v, err := svc.CommitByPath(ctx, "user", "u1", types.CommitByPathRequest{
		LogicalPath:          "/notes//todo.md",
		CommitVersionRequest: types.CommitVersionRequest{Size: 64, MimeType: "text/markdown"},
	}, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("commit by path: %v", err)
	}

	if f.LogicalPath != "notes/todo.md" || f.OwnerID != "alice" {
		t.Fatalf("implicit file = %+v", f)
	}

	if v.VersionNumber != 1 {
		t.Fatalf("first version number = %d", v.VersionNumber)
	}

	// 同一路径再次提交复用已有身份
	f2, v2, err := svc.CommitByPath(ctx, "user", "u1", types.CommitByPathRequest{
		LogicalPath:          "notes/todo.md",
		CommitVersionRequest: types.CommitVersionRequest{Size: 80},
	}, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("second commit by path: %v", err)
	}

	if f2.ID != f.ID || v2.VersionNumber != 2 {
		t.Fatalf("reuse: file %s vs %s, number %d", f2.ID, f.ID, v2.VersionNumber)
	}

	if _, _, err := svc.CommitByPath(ctx, "user", "u1", types.CommitByPathRequest{
		LogicalPath: "../escape",
	}, "alice", types.Origin{}); !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("traversal path kind = %s, want invalid", errs.KindOf(err))
	}
}

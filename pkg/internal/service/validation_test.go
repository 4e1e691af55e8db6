package service

import (
	"context"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestSubmitDraftVersion(t *testing.T) {
	b := newTestBase(t)
	svc := &ValidationService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/plan.md")
	v := mustCommit(t, b, f.ID, "alice", false)

	got, err := svc.Submit(ctx, v.ID, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got.Status != model.VersionStatusPendingValidation {
		t.Fatalf("status = %s, want pending_validation", got.Status)
	}

	// 非 draft 不可再送审
	if _, err := svc.Submit(ctx, v.ID, "alice", types.Origin{}); !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("re-submit kind = %s, want invalid_state", errs.KindOf(err))
	}
}

func TestApprovePromotesCurrentVersion(t *testing.T) {
	b := newTestBase(t)
	svc := &ValidationService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/plan.md")
	v := mustCommit(t, b, f.ID, "alice", true)

	got, err := svc.Approve(ctx, v.ID, "bob", types.ValidateRequest{Comment: "lgtm"}, types.Origin{})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	if got.Status != model.VersionStatusValidated {
		t.Fatalf("version status = %s, want validated", got.Status)
	}

	if got.ValidatedBy != "bob" || got.ValidatedAt == nil || got.ValidationComment != "lgtm" {
		t.Fatalf("validation stamps not recorded: %+v", got)
	}

	file, err := b.repos.Files.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}

	if file.CurrentVersionID == nil || *file.CurrentVersionID != v.ID {
		t.Fatal("current version pointer not promoted")
	}

	if file.Status != model.FileStatusApproved {
		t.Fatalf("file status = %s, want approved", file.Status)
	}

	if file.Size != got.Size || file.MimeType != got.MimeType {
		t.Fatal("size/mime not mirrored from approved version")
	}
}

func TestSelfApprovalForbidden(t *testing.T) {
	b := newTestBase(t)
	svc := &ValidationService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/plan.md")
	v := mustCommit(t, b, f.ID, "alice", true)

	if _, err := svc.Approve(ctx, v.ID, "alice", types.ValidateRequest{}, types.Origin{}); !errs.Is(err, errs.KindForbidden) {
		t.Fatalf("self approve kind = %s, want forbidden", errs.KindOf(err))
	}

	if _, err := svc.Reject(ctx, v.ID, "alice", types.ValidateRequest{}, types.Origin{}); !errs.Is(err, errs.KindForbidden) {
		t.Fatalf("self reject kind = %s, want forbidden", errs.KindOf(err))
	}

	// 匿名操作者同样拒绝
	if _, err := svc.Approve(ctx, v.ID, "", types.ValidateRequest{}, types.Origin{}); !errs.Is(err, errs.KindForbidden) {
		t.Fatalf("anonymous approve kind = %s, want forbidden", errs.KindOf(err))
	}

	// 拒绝不留痕：版本仍在待审
	got, err := b.repos.Versions.GetByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("get version: %v", err)
	}

	if got.Status != model.VersionStatusPendingValidation {
		t.Fatalf("status after forbidden attempts = %s, want pending_validation", got.Status)
	}
}

func TestApproveTerminalVersion(t *testing.T) {
	b := newTestBase(t)
	svc := &ValidationService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/plan.md")
	v := mustCommit(t, b, f.ID, "alice", true)
	mustApprove(t, b, v.ID, "bob")

	if _, err := svc.Approve(ctx, v.ID, "carol", types.ValidateRequest{}, types.Origin{}); !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("approve terminal kind = %s, want invalid_state", errs.KindOf(err))
	}

	if _, err := svc.Reject(ctx, v.ID, "carol", types.ValidateRequest{}, types.Origin{}); !errs.Is(err, errs.KindInvalidState) {
		t.Fatalf("reject terminal kind = %s, want invalid_state", errs.KindOf(err))
	}
}

func TestRejectKeepsCurrentPointer(t *testing.T) {
	b := newTestBase(t)
	svc := &ValidationService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/plan.md")

	// v1 通过成为当前版本
	v1 := mustCommit(t, b, f.ID, "alice", true)
	mustApprove(t, b, v1.ID, "bob")

	// v2 被驳回
	v2 := mustCommit(t, b, f.ID, "alice", true)

	got, err := svc.Reject(ctx, v2.ID, "bob", types.ValidateRequest{Comment: "needs work"}, types.Origin{})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}

	if got.Status != model.VersionStatusRejected {
		t.Fatalf("version status = %s, want rejected", got.Status)
	}

	file, err := b.repos.Files.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}

	if file.CurrentVersionID == nil || *file.CurrentVersionID != v1.ID {
		t.Fatal("reject must not touch the current version pointer")
	}

	if file.Status != model.FileStatusRequiresRevision {
		t.Fatalf("file status = %s, want requires_revision", file.Status)
	}

	// 驳回后允许提交新版本重走流程
	v3 := mustCommit(t, b, f.ID, "alice", true)
	if v3.VersionNumber != 3 {
		t.Fatalf("post-reject commit number = %d, want 3", v3.VersionNumber)
	}
}

func TestValidationAuditTrail(t *testing.T) {
	b := newTestBase(t)
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/plan.md")
	v := mustCommit(t, b, f.ID, "alice", true)
	mustApprove(t, b, v.ID, "bob")

	entries, _, err := b.repos.Audit.History(ctx, f.ID, 0, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	// 新者在前：approve, upload, create(upload)
	if len(entries) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(entries))
	}

	if entries[0].Action != model.ActionApprove || entries[0].UserID != "bob" {
		t.Fatalf("newest entry = %s by %s, want approve by bob", entries[0].Action, entries[0].UserID)
	}

	if entries[0].VersionID == nil || *entries[0].VersionID != v.ID {
		t.Fatal("approve entry missing version reference")
	}
}

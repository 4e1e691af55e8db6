package service

import (
	"context"
	"strings"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestMarkCorrupted(t *testing.T) {
	b := newTestBase(t)
	svc := &ReconcileService{base: b}
	versions := &VersionService{base: b}
	ctx := context.Background()

	f := mustCreateFile(t, b, "docs/damaged.bin")
	v := mustCommit(t, b, f.ID, "alice", false)

	if err := svc.markCorrupted(ctx, v); err != nil {
		t.Fatalf("mark corrupted: %v", err)
	}

	got, err := b.repos.Versions.GetByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("get version: %v", err)
	}

	if got.Status != model.VersionStatusCorrupted {
		t.Fatalf("status = %s, want corrupted", got.Status)
	}

	if !got.IsTerminal() {
		t.Fatal("corrupted must be terminal")
	}

	// 标记动作落审计，操作者为对账任务自身
	entries, _, err := b.repos.Audit.History(ctx, f.ID, 0, 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if entries[0].UserID != "reconciler" || !strings.Contains(entries[0].DetailsJSON, "corrupted") {
		t.Fatalf("newest audit entry = %+v", entries[0])
	}

	// corrupted 版本出现在状态过滤里
	filtered, total, err := versions.List(ctx, f.ID, types.ListVersionsRequest{Status: "corrupted"})
	if err != nil {
		t.Fatalf("list corrupted: %v", err)
	}

	if total != 1 || filtered[0].ID != v.ID {
		t.Fatalf("corrupted filter = %d items", total)
	}
}

func TestAuditActivityByActor(t *testing.T) {
	b := newTestBase(t)
	svc := &AuditService{base: b}
	ctx := context.Background()

	f1 := mustCreateFile(t, b, "docs/a.txt")
	mustCreateFile(t, b, "docs/b.txt")
	mustCommit(t, b, f1.ID, "alice", false)

	entries, total, err := svc.Activity(ctx, "alice", types.Page{})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}

	// 两次 create + 一次 commit
	if total != 3 {
		t.Fatalf("alice activity = %d entries, want 3", total)
	}

	if entries[0].Action != model.ActionUpload {
		t.Fatalf("newest activity = %s", entries[0].Action)
	}

	if _, total, err = svc.Activity(ctx, "nobody", types.Page{}); err != nil || total != 0 {
		t.Fatalf("nobody activity = %d, err %v", total, err)
	}
}

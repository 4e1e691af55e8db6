package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/types"
)

var testDBSeq atomic.Int64

// newTestBase 每个测试独立的内存数据库.
// mq/s3/kv 留空：事件发布对 nil 客户端静默跳过，对象操作走无 s3 分支.
func newTestBase(t *testing.T) base {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", testDBSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(&model.File{}, &model.Version{}, &model.Lock{}, &model.AuditLogEntry{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return base{repos: repository.New(db)}
}

// mustCreateFile 建立测试文件，owner 为 alice，桶 user/u1.
func mustCreateFile(t *testing.T, b base, path string) *model.File {
	t.Helper()

	svc := &PathService{base: b}

	f, err := svc.Create(context.Background(), "user", "u1",
		types.CreateFileRequest{LogicalPath: path}, "alice", types.Origin{})
	if err != nil {
		t.Fatalf("create file %s: %v", path, err)
	}

	return f
}

// mustCommit 提交一个版本.
func mustCommit(t *testing.T, b base, fileID, actor string, submit bool) *model.Version {
	t.Helper()

	svc := &VersionService{base: b}

	v, err := svc.Commit(context.Background(), fileID, actor, types.CommitVersionRequest{
		Size:     128,
		MimeType: "text/plain",
		Submit:   submit,
	}, types.Origin{})
	if err != nil {
		t.Fatalf("commit version: %v", err)
	}

	return v
}

// mustApprove 由 validator 审批通过.
func mustApprove(t *testing.T, b base, versionID, validator string) *model.Version {
	t.Helper()

	svc := &ValidationService{base: b}

	v, err := svc.Approve(context.Background(), versionID, validator, types.ValidateRequest{}, types.Origin{})
	if err != nil {
		t.Fatalf("approve version: %v", err)
	}

	return v
}

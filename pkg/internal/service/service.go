// Package service 实现核心业务逻辑：路径解析、版本存储、审批工作流、
// 协作锁与审计追踪. 所有跨步一致性由数据库事务保证，
// 服务内部没有共享可变状态.
package service

import (
	"context"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/storage/kv"
	"github.com/yeisme/filevault/pkg/internal/storage/mq"
	"github.com/yeisme/filevault/pkg/internal/storage/s3"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
)

// base 各服务共享的依赖集合.
type base struct {
	repos    *repository.Repositories
	s3Client *s3.Client
	mqClient *mq.Client
	kvClient *kv.Client
}

// newBase 从 context 获取依赖实例.
// 为了安全起见，缺少必需依赖直接 panic 而不是返回 nil，依赖此服务就不需要再检查.
func newBase(c context.Context) base {
	mgr := ctxPkg.GetManager(c)
	if mgr == nil || mgr.DB == nil || mgr.DB.DB == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return base{
		repos:    repository.New(mgr.DB.GetDB()),
		s3Client: mgr.S3,
		mqClient: mgr.MQ,
		kvClient: mgr.KV,
	}
}

// recordAudit 在给定事务内追加一条审计记录.
// 必须与它记录的变更共享事务：审计写入失败连带回滚变更.
func recordAudit(ctx context.Context, tx *repository.Repositories, fileID string, action model.AuditAction,
	actor string, versionID *string, details map[string]any, origin types.Origin,
) error {
	return tx.Audit.Append(ctx, &model.AuditLogEntry{
		FileID:      fileID,
		VersionID:   versionID,
		Action:      action,
		UserID:      actor,
		DetailsJSON: types.EncodeDetails(details),
		IPAddress:   origin.IP,
		UserAgent:   origin.UserAgent,
	})
}

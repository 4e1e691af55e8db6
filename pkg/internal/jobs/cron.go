// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"

	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/storage"
	"github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 存储对账（默认每天 03:00，reconcile.cron 可调）：核对版本元数据与
//     对象存储的一致性，fix 模式下把缺失对象的版本标记为 corrupted.
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	cfg := configs.GetConfig().Reconcile
	if !cfg.Enabled {
		log.Logger().Info().Msg("storage reconcile job disabled")

		return nil
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	return sched.AddCron(JobStorageReconcile, cfg.Cron, func(ctx context.Context) {
		runStorageReconcile(ctx, cfg.Fix, cfg.Concurrency)
	}, baseCtx)
}

// runStorageReconcile 执行一轮对账，结果只记日志.
func runStorageReconcile(ctx context.Context, fix bool, concurrency int) {
	l := log.Logger().With().Str("job", JobStorageReconcile).Logger()

	svc := service.NewReconcileService(ctx)

	report, err := svc.Run(ctx, fix, concurrency)
	if err != nil {
		l.Error().Err(err).Msg("storage reconcile failed")

		return
	}

	l.Info().
		Int("scanned", report.Scanned).
		Int("missing", len(report.MissingVersionIDs)).
		Int("marked_corrupted", report.MarkedCorrupted).
		Int("orphans", len(report.OrphanKeys)).
		Msg("storage reconcile done")
}

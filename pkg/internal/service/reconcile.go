package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/repository"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/queue"
)

// ReconcileService 对账元数据与对象存储：
// 发现元数据有、对象没有的版本（缺失），以及对象有、元数据没有的键（孤儿）.
// 孤儿对象是 copy/move 在对象复制之后、元数据事务提交之前失败留下的，只报告不删.
type ReconcileService struct {
	base
}

// NewReconcileService 从 context 获取依赖实例.
func NewReconcileService(c context.Context) *ReconcileService {
	return &ReconcileService{base: newBase(c)}
}

// ReconcileReport 一次对账的结果.
type ReconcileReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	// Scanned 检查过的版本数（corrupted 跳过不计）
	Scanned int `json:"scanned"`
	// MissingVersionIDs 对象缺失的版本
	MissingVersionIDs []string `json:"missing_version_ids,omitempty"`
	// MarkedCorrupted fix 模式下实际标记的版本数
	MarkedCorrupted int `json:"marked_corrupted"`
	// OrphanKeys 无元数据对应的对象键
	OrphanKeys []string `json:"orphan_keys,omitempty"`
}

// Run 执行一次对账. fix 为 true 时把缺失对象的版本标记为 corrupted.
func (s *ReconcileService) Run(ctx context.Context, fix bool, concurrency int) (*ReconcileReport, error) {
	if s.s3Client == nil {
		return nil, errs.New(errs.KindUnavailable, "object storage not configured")
	}

	if concurrency <= 0 {
		concurrency = objectOpConcurrency
	}

	report := &ReconcileReport{StartedAt: time.Now()}

	var (
		mu      sync.Mutex
		missing []model.Version
	)

	known := make(map[string]struct{})

	err := s.repos.Versions.ListAll(ctx, 500, func(batch []model.Version) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i := range batch {
			v := batch[i]
			known[v.ObjectKey] = struct{}{}

			if v.Status == model.VersionStatusCorrupted {
				continue
			}

			report.Scanned++

			g.Go(func() error {
				ok, err := s.s3Client.Exists(gctx, v.ObjectKey)
				if err != nil {
					return err
				}

				if !ok {
					mu.Lock()
					missing = append(missing, v)
					mu.Unlock()
				}

				return nil
			})
		}

		return g.Wait()
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "scan versions", err)
	}

	for i := range missing {
		v := missing[i]
		report.MissingVersionIDs = append(report.MissingVersionIDs, v.ID)

		nlog.Logger().Warn().
			Str("version_id", v.ID).
			Str("object_key", v.ObjectKey).
			Msg("version object missing from storage")

		if !fix {
			continue
		}

		if err := s.markCorrupted(ctx, &v); err != nil {
			nlog.Logger().Error().Err(err).Str("version_id", v.ID).Msg("mark corrupted failed")

			continue
		}

		report.MarkedCorrupted++
	}

	orphans, err := s.findOrphans(ctx, known)
	if err != nil {
		return nil, err
	}

	report.OrphanKeys = orphans
	report.Duration = time.Since(report.StartedAt)

	nlog.Logger().Info().
		Int("scanned", report.Scanned).
		Int("missing", len(report.MissingVersionIDs)).
		Int("marked_corrupted", report.MarkedCorrupted).
		Int("orphans", len(report.OrphanKeys)).
		Dur("duration", report.Duration).
		Msg("reconcile finished")

	return report, nil
}

// markCorrupted 标记版本为 corrupted 并审计；若它是文件的当前版本，
// 当前版本指针保留，下载时 presign 仍会失败，由人工介入处理.
func (s *ReconcileService) markCorrupted(ctx context.Context, v *model.Version) error {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		v.Status = model.VersionStatusCorrupted
		if err := tx.Versions.Update(ctx, v); err != nil {
			return errs.Wrap(errs.KindUnavailable, "update version", err)
		}

		return recordAudit(ctx, tx, v.FileID, model.ActionValidate, "reconciler", &v.ID,
			map[string]any{"transition": "corrupted", "object_key": v.ObjectKey}, types.Origin{})
	})
	if err != nil {
		return err
	}

	f, err := s.repos.Files.GetByID(ctx, v.FileID)
	if err == nil {
		publishEvent(s.mqClient, queue.TopicVersionCorrupted, queue.VersionCorruptedPayload{
			File:    fileRef(f),
			Version: versionRef(v),
		})
	}

	return nil
}

// findOrphans 列举对象存储全部键并与元数据比对.
func (s *ReconcileService) findOrphans(ctx context.Context, known map[string]struct{}) ([]string, error) {
	keys, err := s.s3Client.ListKeys(ctx, "")
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "list object keys", err)
	}

	var orphans []string

	for _, key := range keys {
		if _, ok := known[key]; !ok {
			orphans = append(orphans, key)

			nlog.Logger().Warn().Str("object_key", key).Msg("orphan object in storage")
		}
	}

	return orphans, nil
}

package service

import (
	"context"

	"github.com/yeisme/filevault/pkg/configs"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/storage/mq"
	nlog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/queue"
)

const eventProducer = "filevault"

// publishEvent 在事务提交之后尽力发布领域事件.
// 发布失败只记日志，绝不影响已提交的变更.
func publishEvent[T any](client *mq.Client, topic string, payload T) {
	if client == nil {
		return
	}

	if cfg := configs.GetConfig().Events; !cfg.Enabled || !topicEnabled(cfg, topic) {
		return
	}

	msg, err := queue.NewWatermillMessage(topic, payload, queue.WithProducer(eventProducer))
	if err != nil {
		nlog.Logger().Error().Err(err).Str("topic", topic).Msg("encode event failed")

		return
	}

	if err := client.Publish(context.Background(), topic, msg); err != nil {
		nlog.Logger().Error().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}

// topicEnabled 查询分主题开关；未知主题默认放行.
func topicEnabled(cfg configs.EventsConfig, topic string) bool {
	switch topic {
	case queue.TopicFileCreated:
		return cfg.File.Created
	case queue.TopicFileCopied:
		return cfg.File.Copied
	case queue.TopicFileMoved:
		return cfg.File.Moved
	case queue.TopicFileArchived:
		return cfg.File.Archived
	case queue.TopicFilePurged:
		return cfg.File.Purged
	case queue.TopicVersionCommitted:
		return cfg.Version.Committed
	case queue.TopicVersionSubmitted:
		return cfg.Version.Submitted
	case queue.TopicVersionApproved:
		return cfg.Version.Approved
	case queue.TopicVersionRejected:
		return cfg.Version.Rejected
	case queue.TopicVersionCorrupted:
		return cfg.Version.Corrupted
	case queue.TopicLockAcquired:
		return cfg.Lock.Acquired
	case queue.TopicLockReleased:
		return cfg.Lock.Released
	default:
		return true
	}
}

// fileRef 由模型构造事件中的文件引用.
func fileRef(f *model.File) queue.FileRef {
	return queue.FileRef{
		FileID:      f.ID,
		BucketKind:  string(f.BucketKind),
		BucketID:    f.BucketID,
		LogicalPath: f.LogicalPath,
	}
}

// versionRef 由模型构造事件中的版本引用.
func versionRef(v *model.Version) queue.VersionRef {
	return queue.VersionRef{
		VersionID:     v.ID,
		VersionNumber: v.VersionNumber,
		ObjectKey:     v.ObjectKey,
		Status:        string(v.Status),
	}
}

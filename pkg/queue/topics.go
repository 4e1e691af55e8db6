// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：fv.<域>.<动作>，尽量稳定且向后兼容.
// 域：file(文件生命周期)、version(版本与审批)、lock(协作锁)
// 动作：过去式，事件在事务提交后发布，只描述已发生的事实.

const (
	// 文件生命周期领域.
	TopicFileCreated  = "fv.file.created"  // 文件身份建立（首次提交或显式创建）
	TopicFileCopied   = "fv.file.copied"   // 文件复制到新路径
	TopicFileMoved    = "fv.file.moved"    // 文件路径变更
	TopicFileArchived = "fv.file.archived" // 文件归档（软删除）
	TopicFilePurged   = "fv.file.purged"   // 文件物理删除（版本/锁/审计级联移除）

	// 版本与审批领域.
	TopicVersionCommitted = "fv.version.committed" // 新版本提交
	TopicVersionSubmitted = "fv.version.submitted" // 版本送审
	TopicVersionApproved  = "fv.version.approved"  // 审批通过，current_version 已推进
	TopicVersionRejected  = "fv.version.rejected"  // 审批驳回
	TopicVersionCorrupted = "fv.version.corrupted" // 对账发现对象缺失，标记损坏

	// 协作锁领域.
	TopicLockAcquired = "fv.lock.acquired" // 锁获取成功
	TopicLockReleased = "fv.lock.released" // 锁释放（含强制释放）
)

// 主题分组，用于批量订阅或权限控制.
var (
	// 文件相关主题集合.
	FileTopics = []string{
		TopicFileCreated, TopicFileCopied, TopicFileMoved,
		TopicFileArchived, TopicFilePurged,
	}

	// 版本相关主题集合.
	VersionTopics = []string{
		TopicVersionCommitted, TopicVersionSubmitted,
		TopicVersionApproved, TopicVersionRejected, TopicVersionCorrupted,
	}

	// 锁相关主题集合.
	LockTopics = []string{
		TopicLockAcquired, TopicLockReleased,
	}
)

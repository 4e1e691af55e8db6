package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishVersionApproved 发布 fv.version.approved 事件。
// 审批通过并推进 current_version 后通知下游（如构建流水线）。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishVersionApproved(pub message.Publisher, payload VersionValidatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicVersionApproved, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicVersionApproved, msg)
}

// ParseVersionApproved 将 Watermill 消息解析为强类型 Envelope（VersionValidatedPayload）。
func ParseVersionApproved(msg *message.Message) (Message[VersionValidatedPayload], error) {
	return ParseWatermillMessage[VersionValidatedPayload](msg)
}

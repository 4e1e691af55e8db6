package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"` // 总开关
	File    FileEventsConfig `mapstructure:"file"`
	Version VerEventsConfig  `mapstructure:"version"`
	Lock    LockEventsConfig `mapstructure:"lock"`
}

// FileEventsConfig 文件生命周期事件开关。
type FileEventsConfig struct {
	Created  bool `mapstructure:"created"`
	Copied   bool `mapstructure:"copied"`
	Moved    bool `mapstructure:"moved"`
	Archived bool `mapstructure:"archived"`
	Purged   bool `mapstructure:"purged"`
}

// VerEventsConfig 版本与审批事件开关。
type VerEventsConfig struct {
	Committed bool `mapstructure:"committed"`
	Submitted bool `mapstructure:"submitted"`
	Approved  bool `mapstructure:"approved"`
	Rejected  bool `mapstructure:"rejected"`
	Corrupted bool `mapstructure:"corrupted"`
}

// LockEventsConfig 锁事件开关。
type LockEventsConfig struct {
	Acquired bool `mapstructure:"acquired"`
	Released bool `mapstructure:"released"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 文件事件：默认开启不可逆/跨系统关注的动作
	v.SetDefault("events.file.created", true)
	v.SetDefault("events.file.copied", false)
	v.SetDefault("events.file.moved", false)
	v.SetDefault("events.file.archived", true)
	v.SetDefault("events.file.purged", true)

	// 版本事件：审批结果默认开启，下游常据此触发流水线
	v.SetDefault("events.version.committed", true)
	v.SetDefault("events.version.submitted", false)
	v.SetDefault("events.version.approved", true)
	v.SetDefault("events.version.rejected", true)
	v.SetDefault("events.version.corrupted", true)

	// 锁事件：量大，默认关闭
	v.SetDefault("events.lock.acquired", false)
	v.SetDefault("events.lock.released", false)
}

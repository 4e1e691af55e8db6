package configs

import "github.com/spf13/viper"

const (
	DefaultReconcileEnabled     = false
	DefaultReconcileCron        = "0 3 * * *" // 每天 03:00
	DefaultReconcileFix         = false
	DefaultReconcileConcurrency = 8
)

// ReconcileConfig 存储对账任务配置：校验元数据与对象存储的一致性.
type ReconcileConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"` // cron 表达式（分 时 日 月 周）
	// Fix 为 true 时将缺失对象的版本标记为 corrupted；否则只报告
	Fix         bool `mapstructure:"fix"`
	Concurrency int  `mapstructure:"concurrency" rule:"min=1,max=64"`
}

func (c *ReconcileConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("reconcile.enabled", DefaultReconcileEnabled)
	v.SetDefault("reconcile.cron", DefaultReconcileCron)
	v.SetDefault("reconcile.fix", DefaultReconcileFix)
	v.SetDefault("reconcile.concurrency", DefaultReconcileConcurrency)
}

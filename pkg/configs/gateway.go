package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultGatewayTimeout     = 3 // 远端授权调用超时（秒），允许 2-5
	DefaultGatewayCBInterval  = 60
	DefaultGatewayCBTimeout   = 30
	DefaultGatewayCBRequests  = 5
	DefaultGatewayCBThreshold = 5
)

// GatewayConfig 访问授权网关配置.
// user/company 桶的判定在本地完成；project 桶委托给远端项目权威服务.
type GatewayConfig struct {
	// ProjectAuthzURL 远端项目授权服务的检查端点；为空表示拒绝所有 project 桶访问
	ProjectAuthzURL string `mapstructure:"project_authz_url" rule:"omitempty,url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"   rule:"min=2,max=5"`
	// 熔断参数：连续失败 cb_threshold 次后打开，cb_timeout_seconds 后半开
	CBThreshold      uint32 `mapstructure:"cb_threshold"`
	CBIntervalSecond int    `mapstructure:"cb_interval_seconds"`
	CBTimeoutSecond  int    `mapstructure:"cb_timeout_seconds"`
	CBMaxRequests    uint32 `mapstructure:"cb_max_requests"`
}

// GetTimeout 返回远端调用超时.
func (c *GatewayConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *GatewayConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.project_authz_url", "")
	v.SetDefault("gateway.timeout_seconds", DefaultGatewayTimeout)
	v.SetDefault("gateway.cb_threshold", DefaultGatewayCBThreshold)
	v.SetDefault("gateway.cb_interval_seconds", DefaultGatewayCBInterval)
	v.SetDefault("gateway.cb_timeout_seconds", DefaultGatewayCBTimeout)
	v.SetDefault("gateway.cb_max_requests", DefaultGatewayCBRequests)
}

// Package middleware 提供 HTTP 中间件：认证、CORS、限流、熔断、
// 缓存、Prometheus 指标、OpenTelemetry 追踪、存储管理器与调度器注入等.
package middleware

// Package router 管理路由配置，将路径绑定到 pkg/internal/handle 的处理器.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes 在给定路由组（假定为 /api/v1）下注册全部业务路由.
func RegisterAPIRoutes(g *gin.RouterGroup) {
	RegisterBucketRoutes(g)
	RegisterFilesRoutes(g)
	RegisterLockRoutes(g)
	RegisterAuditRoutes(g)
	RegisterAdminRoutes(g)
	RegisterHealthCheckRoute(g)
}

// Package api 对外暴露 HTTP API 的注册入口.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/router"
)

// RegisterGroup 将全部业务路由挂载到 /api/v1 下.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAPIRoutes(e.Group("/api/v1"))

	return e
}

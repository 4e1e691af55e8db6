package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/handle"
	"github.com/yeisme/filevault/pkg/middleware"
)

// RegisterBucketRoutes 注册桶级路由：路径解析、创建与列举.
func RegisterBucketRoutes(g *gin.RouterGroup) {
	buckets := g.Group("/buckets/:bucket_kind/:bucket_id")
	{
		// 建立文件身份（目录占位或上传预登记）
		buckets.POST("/files", handle.CreateFile)
		// 按前缀分页列举
		buckets.GET("/files", handle.ListFiles)
		// 路径 -> 文件身份
		buckets.GET("/resolve", handle.ResolveFile)
		// 隐式创建 + 提交版本的单次调用形态
		buckets.POST("/commit", handle.CommitByPath)
	}
}

// RegisterFilesRoutes 注册文件级路由：生命周期、版本与审批.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	files := g.Group("/files/:id")
	{
		// 聚合详情，include_* 控制内容
		files.GET("", handle.FileInfo)
		// 归档（软删除）
		files.DELETE("", handle.ArchiveFile)
		files.PUT("/meta", handle.UpdateFileMeta)
		files.POST("/restore", handle.RestoreFile)
		// 物理删除，管理级
		files.DELETE("/purge", handle.PurgeFile)
		files.POST("/copy", handle.CopyFile)
		files.POST("/move", handle.MoveFile)
		// 预签名下载 URL
		files.POST("/download", handle.DownloadFile)

		versions := files.Group("/versions")
		{
			versions.POST("", handle.CommitVersion)
			versions.GET("", handle.ListVersions)
			versions.GET("/latest", handle.LatestVersion)
			versions.GET("/:number", handle.GetVersion)
			// 审批工作流
			versions.POST("/:vid/upload", handle.UploadVersion)
			versions.POST("/:vid/submit", handle.SubmitVersion)
			versions.POST("/:vid/approve", handle.ApproveVersion)
			versions.POST("/:vid/reject", handle.RejectVersion)
		}

		locks := files.Group("/locks")
		{
			locks.POST("", handle.AcquireLock)
			locks.GET("/effective", handle.EffectiveLock)
			locks.DELETE("/:lid", handle.ReleaseLock)
		}

		files.GET("/audit", handle.FileHistory)
	}
}

// RegisterLockRoutes 注册全局锁列举路由.
func RegisterLockRoutes(g *gin.RouterGroup) {
	g.GET("/locks", handle.ListLocks)
}

// RegisterAuditRoutes 注册操作者维度的审计路由.
func RegisterAuditRoutes(g *gin.RouterGroup) {
	g.GET("/audit/users/:uid", handle.UserActivity)
}

// RegisterAdminRoutes 注册运维路由，要求 admin 角色.
func RegisterAdminRoutes(g *gin.RouterGroup) {
	admin := g.Group("/admin", middleware.RequireMinRole(middleware.RoleAdmin))
	{
		admin.POST("/reconcile", handle.RunReconcile)
	}

	RegisterSchedulerRoutes(admin)
}

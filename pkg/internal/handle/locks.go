package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/gateway"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
)

// AcquireLock 获取文件锁.
//
//	@Summary		获取锁
//	@Description	文件已有有效锁时返回 409 并携带持有者身份.
//	@Tags			锁
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"文件 ID"
//	@Param			request	body		types.AcquireLockRequest	true	"锁参数"
//	@Success		201		{object}	types.LockResponse
//	@Failure		409		{object}	map[string]string
//	@Router			/api/v1/files/{id}/locks [post]
func AcquireLock(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	_, f, ok := loadFileForAction(c, id, gateway.ActionWrite)
	if !ok {
		return
	}

	var req types.AcquireLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	svc := service.NewLockService(c.Request.Context())

	l, err := svc.Acquire(c.Request.Context(), f.ID, id.UserID, req, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, types.NewLockResponse(l))
}

// EffectiveLock 查询文件当前有效的锁.
//
//	@Summary		有效锁
//	@Tags			锁
//	@Produce		json
//	@Param			id	path		string	true	"文件 ID"
//	@Success		200	{object}	types.LockResponse
//	@Failure		404	{object}	map[string]string
//	@Router			/api/v1/files/{id}/locks/effective [get]
func EffectiveLock(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	_, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	svc := service.NewLockService(c.Request.Context())

	l, err := svc.EffectiveLock(c.Request.Context(), f.ID)
	if err != nil {
		respondError(c, err)

		return
	}

	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file is not locked"})

		return
	}

	c.JSON(http.StatusOK, types.NewLockResponse(l))
}

// ReleaseLock 释放锁.
// force=true 时需要管理级授权，可释放他人持有的锁.
//
//	@Summary		释放锁
//	@Description	非持有者释放需要 force 与管理级权限；不存在或已过期的锁返回 409.
//	@Tags			锁
//	@Produce		json
//	@Param			id		path		string	true	"文件 ID"
//	@Param			lid		path		string	true	"锁 ID"
//	@Param			force	query		bool	false	"强制释放"
//	@Success		200		{object}	types.LockResponse
//	@Failure		403		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/api/v1/files/{id}/locks/{lid} [delete]
func ReleaseLock(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	force := c.Query("force") == "true"

	// 强制释放是管理级动作，普通释放只要求写权限
	action := gateway.ActionWrite
	if force {
		action = gateway.ActionAdmin
	}

	if _, _, ok := loadFileForAction(c, id, action); !ok {
		return
	}

	svc := service.NewLockService(c.Request.Context())

	l, err := svc.Release(c.Request.Context(), c.Param("lid"), id.UserID, force, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewLockResponse(l))
}

// ListLocks 列举有效锁.
//
//	@Summary		锁列表
//	@Description	列举全部有效锁，可按文件过滤；过期锁不出现.
//	@Tags			锁
//	@Produce		json
//	@Param			file_id		query		string	false	"按文件过滤"
//	@Param			bucket_kind	query		string	false	"按桶过滤（与 bucket_id 联用）"
//	@Param			bucket_id	query		string	false	"按桶过滤"
//	@Param			offset		query		int		false	"偏移"
//	@Param			limit		query		int		false	"页大小"
//	@Success		200			{object}	types.LockListResponse
//	@Router			/api/v1/locks [get]
func ListLocks(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req types.ListLocksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})

		return
	}

	// 桶维度过滤先过授权
	if req.BucketKind != "" {
		if !authorizeBucket(c, id, req.BucketKind, req.BucketID, gateway.ActionRead) {
			return
		}
	}

	svc := service.NewLockService(c.Request.Context())

	locks, total, err := svc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)

		return
	}

	resp := types.LockListResponse{Total: total, Items: make([]types.LockResponse, 0, len(locks))}
	for i := range locks {
		resp.Items = append(resp.Items, types.NewLockResponse(&locks[i]))
	}

	c.JSON(http.StatusOK, resp)
}

package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/gateway"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
)

// FileHistory 文件维度的审计记录.
//
//	@Summary		文件审计历史
//	@Description	新者在前；读取审计不产生新的审计条目.
//	@Tags			审计
//	@Produce		json
//	@Param			id		path		string	true	"文件 ID"
//	@Param			offset	query		int		false	"偏移"
//	@Param			limit	query		int		false	"页大小"
//	@Success		200		{object}	types.AuditListResponse
//	@Router			/api/v1/files/{id}/audit [get]
func FileHistory(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	_, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	var page types.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})

		return
	}

	svc := service.NewAuditService(c.Request.Context())

	entries, total, err := svc.History(c.Request.Context(), f.ID, page)
	if err != nil {
		respondError(c, err)

		return
	}

	resp := types.AuditListResponse{Total: total, Items: make([]types.AuditResponse, 0, len(entries))}
	for i := range entries {
		resp.Items = append(resp.Items, types.NewAuditResponse(&entries[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// UserActivity 操作者维度的审计记录.
//
//	@Summary		用户操作记录
//	@Tags			审计
//	@Produce		json
//	@Param			uid		path		string	true	"用户 ID"
//	@Param			offset	query		int		false	"偏移"
//	@Param			limit	query		int		false	"页大小"
//	@Success		200		{object}	types.AuditListResponse
//	@Router			/api/v1/audit/users/{uid} [get]
func UserActivity(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	// 只能查自己的活动记录，查他人留给未来的管理面
	uid := c.Param("uid")
	if uid != id.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "activity of other users is not accessible"})

		return
	}

	var page types.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})

		return
	}

	svc := service.NewAuditService(c.Request.Context())

	entries, total, err := svc.Activity(c.Request.Context(), uid, page)
	if err != nil {
		respondError(c, err)

		return
	}

	resp := types.AuditListResponse{Total: total, Items: make([]types.AuditResponse, 0, len(entries))}
	for i := range entries {
		resp.Items = append(resp.Items, types.NewAuditResponse(&entries[i]))
	}

	c.JSON(http.StatusOK, resp)
}

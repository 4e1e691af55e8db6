package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/gateway"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
)

// CommitByPath 按路径提交版本，文件身份不存在时隐式创建.
//
//	@Summary		按路径提交版本
//	@Description	上传流的单次调用形态：logical_path 无文件身份时先隐式创建，再提交版本.
//	@Tags			版本
//	@Accept			json
//	@Produce		json
//	@Param			bucket_kind	path		string						true	"桶类型 user/company/project"
//	@Param			bucket_id	path		string						true	"桶标识"
//	@Param			request		body		types.CommitByPathRequest	true	"提交参数"
//	@Success		201			{object}	types.CommitByPathResponse
//	@Failure		409			{object}	map[string]string
//	@Router			/api/v1/buckets/{bucket_kind}/{bucket_id}/commit [post]
func CommitByPath(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	kind, bucketID := c.Param("bucket_kind"), c.Param("bucket_id")
	if !authorizeBucket(c, id, kind, bucketID, gateway.ActionWrite) {
		return
	}

	var req types.CommitByPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	svc := service.NewVersionService(c.Request.Context())

	f, v, err := svc.CommitByPath(c.Request.Context(), kind, bucketID, req, id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, types.CommitByPathResponse{
		File:    types.NewFileResponse(f),
		Version: types.NewVersionResponse(v),
	})
}

// CommitVersion 提交新版本.
//
//	@Summary		提交版本
//	@Description	在事务内分配下一个版本号；submit 为 true 时直接送审.
//	@Tags			版本
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"文件 ID"
//	@Param			request	body		types.CommitVersionRequest	true	"提交参数"
//	@Success		201		{object}	types.VersionResponse
//	@Failure		409		{object}	map[string]string
//	@Router			/api/v1/files/{id}/versions [post]
func CommitVersion(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	_, f, ok := loadFileForAction(c, id, gateway.ActionWrite)
	if !ok {
		return
	}

	var req types.CommitVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	svc := service.NewVersionService(c.Request.Context())

	v, err := svc.Commit(c.Request.Context(), f.ID, id.UserID, req, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, types.NewVersionResponse(v))
}

// ListVersions 按版本号倒序分页列举.
//
//	@Summary		版本列表
//	@Tags			版本
//	@Produce		json
//	@Param			id		path		string	true	"文件 ID"
//	@Param			status	query		string	false	"状态过滤"
//	@Param			offset	query		int		false	"偏移"
//	@Param			limit	query		int		false	"页大小"
//	@Success		200		{object}	types.VersionListResponse
//	@Router			/api/v1/files/{id}/versions [get]
func ListVersions(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	_, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	var req types.ListVersionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})

		return
	}

	svc := service.NewVersionService(c.Request.Context())

	versions, total, err := svc.List(c.Request.Context(), f.ID, req)
	if err != nil {
		respondError(c, err)

		return
	}

	resp := types.VersionListResponse{Total: total, Items: make([]types.VersionResponse, 0, len(versions))}
	for i := range versions {
		resp.Items = append(resp.Items, types.NewVersionResponse(&versions[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// GetVersion 按版本号读取.
//
//	@Summary		读取版本
//	@Tags			版本
//	@Produce		json
//	@Param			id		path		string	true	"文件 ID"
//	@Param			number	path		int		true	"版本号"
//	@Success		200		{object}	types.VersionResponse
//	@Failure		404		{object}	map[string]string
//	@Router			/api/v1/files/{id}/versions/{number} [get]
func GetVersion(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	_, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})

		return
	}

	svc := service.NewVersionService(c.Request.Context())

	v, err := svc.Get(c.Request.Context(), f.ID, number)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewVersionResponse(v))
}

// LatestVersion 最新版本.
//
//	@Summary		最新版本
//	@Tags			版本
//	@Produce		json
//	@Param			id	path		string	true	"文件 ID"
//	@Success		200	{object}	types.VersionResponse
//	@Failure		404	{object}	map[string]string
//	@Router			/api/v1/files/{id}/versions/latest [get]
func LatestVersion(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	_, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	svc := service.NewVersionService(c.Request.Context())

	v, err := svc.Latest(c.Request.Context(), f.ID)
	if err != nil {
		respondError(c, err)

		return
	}

	if v == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file has no versions"})

		return
	}

	c.JSON(http.StatusOK, types.NewVersionResponse(v))
}

// UploadVersion 为 draft 版本签发上传用预签名 URL.
//
//	@Summary		版本上传 URL
//	@Description	只有 draft 版本可以重新上传内容.
//	@Tags			版本
//	@Produce		json
//	@Param			id	path		string	true	"文件 ID"
//	@Param			vid	path		string	true	"版本 ID"
//	@Success		200	{object}	types.PresignResponse
//	@Failure		409	{object}	map[string]string
//	@Router			/api/v1/files/{id}/versions/{vid}/upload [post]
func UploadVersion(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, _, ok := loadFileForAction(c, id, gateway.ActionWrite)
	if !ok {
		return
	}

	resp, err := svc.PresignUpload(c.Request.Context(), c.Param("vid"))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitVersion 将 draft 版本送审.
//
//	@Summary		版本送审
//	@Tags			审批
//	@Produce		json
//	@Param			id	path		string	true	"文件 ID"
//	@Param			vid	path		string	true	"版本 ID"
//	@Success		200	{object}	types.VersionResponse
//	@Failure		409	{object}	map[string]string
//	@Router			/api/v1/files/{id}/versions/{vid}/submit [post]
func SubmitVersion(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	if _, _, ok := loadFileForAction(c, id, gateway.ActionWrite); !ok {
		return
	}

	svc := service.NewValidationService(c.Request.Context())

	v, err := svc.Submit(c.Request.Context(), c.Param("vid"), id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewVersionResponse(v))
}

// ApproveVersion 审批通过并晋升为当前版本.
//
//	@Summary		审批通过
//	@Description	审批人不能是版本创建者；通过后文件的当前版本指针指向本版本.
//	@Tags			审批
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"文件 ID"
//	@Param			vid		path		string					true	"版本 ID"
//	@Param			request	body		types.ValidateRequest	false	"审批意见"
//	@Success		200		{object}	types.VersionResponse
//	@Failure		403		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/api/v1/files/{id}/versions/{vid}/approve [post]
func ApproveVersion(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	if _, _, ok := loadFileForAction(c, id, gateway.ActionWrite); !ok {
		return
	}

	var req types.ValidateRequest

	_ = c.ShouldBindJSON(&req) // 意见可选，空 body 合法

	svc := service.NewValidationService(c.Request.Context())

	v, err := svc.Approve(c.Request.Context(), c.Param("vid"), id.UserID, req, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewVersionResponse(v))
}

// RejectVersion 审批驳回.
//
//	@Summary		审批驳回
//	@Tags			审批
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"文件 ID"
//	@Param			vid		path		string					true	"版本 ID"
//	@Param			request	body		types.ValidateRequest	false	"驳回理由"
//	@Success		200		{object}	types.VersionResponse
//	@Failure		403		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/api/v1/files/{id}/versions/{vid}/reject [post]
func RejectVersion(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	if _, _, ok := loadFileForAction(c, id, gateway.ActionWrite); !ok {
		return
	}

	var req types.ValidateRequest

	_ = c.ShouldBindJSON(&req)

	svc := service.NewValidationService(c.Request.Context())

	v, err := svc.Reject(c.Request.Context(), c.Param("vid"), id.UserID, req, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewVersionResponse(v))
}

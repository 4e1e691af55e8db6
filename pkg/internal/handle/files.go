package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/gateway"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/log"
)

// CreateFile 在桶内建立文件身份（目录占位或上传预登记）.
//
//	@Summary		创建文件
//	@Description	在 (bucket_kind, bucket_id) 桶内的 logical_path 上建立文件身份，路径已被占用时返回 409.
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			bucket_kind	path		string					true	"桶类型 user/company/project"
//	@Param			bucket_id	path		string					true	"桶标识"
//	@Param			request		body		types.CreateFileRequest	true	"创建参数"
//	@Success		201			{object}	types.FileResponse
//	@Failure		400			{object}	map[string]string
//	@Failure		409			{object}	map[string]string
//	@Router			/api/v1/buckets/{bucket_kind}/{bucket_id}/files [post]
func CreateFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	kind, bucketID := c.Param("bucket_kind"), c.Param("bucket_id")
	if !authorizeBucket(c, id, kind, bucketID, gateway.ActionWrite) {
		return
	}

	var req types.CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid create file request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	svc := service.NewPathService(c.Request.Context())

	f, err := svc.Create(c.Request.Context(), kind, bucketID, req, id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, types.NewFileResponse(f))
}

// ResolveFile 将桶内逻辑路径解析为文件.
//
//	@Summary		解析路径
//	@Description	将 (bucket_kind, bucket_id, path) 解析为文件身份；归档文件视为不存在.
//	@Tags			文件
//	@Produce		json
//	@Param			bucket_kind	path		string	true	"桶类型"
//	@Param			bucket_id	path		string	true	"桶标识"
//	@Param			path		query		string	true	"桶内逻辑路径"
//	@Success		200			{object}	types.FileResponse
//	@Failure		404			{object}	map[string]string
//	@Router			/api/v1/buckets/{bucket_kind}/{bucket_id}/resolve [get]
func ResolveFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	kind, bucketID := c.Param("bucket_kind"), c.Param("bucket_id")
	if !authorizeBucket(c, id, kind, bucketID, gateway.ActionRead) {
		return
	}

	svc := service.NewPathService(c.Request.Context())

	f, err := svc.Resolve(c.Request.Context(), kind, bucketID, c.Query("path"))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewFileResponse(f))
}

// ListFiles 按前缀分页列举桶内文件.
//
//	@Summary		列举文件
//	@Tags			文件
//	@Produce		json
//	@Param			bucket_kind	path		string	true	"桶类型"
//	@Param			bucket_id	path		string	true	"桶标识"
//	@Param			prefix		query		string	false	"路径前缀"
//	@Param			offset		query		int		false	"偏移"
//	@Param			limit		query		int		false	"页大小，上限 1000"
//	@Success		200			{object}	types.FileListResponse
//	@Router			/api/v1/buckets/{bucket_kind}/{bucket_id}/files [get]
func ListFiles(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	kind, bucketID := c.Param("bucket_kind"), c.Param("bucket_id")
	if !authorizeBucket(c, id, kind, bucketID, gateway.ActionRead) {
		return
	}

	var req types.ListFilesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})

		return
	}

	svc := service.NewPathService(c.Request.Context())

	files, total, err := svc.List(c.Request.Context(), kind, bucketID, req)
	if err != nil {
		respondError(c, err)

		return
	}

	resp := types.FileListResponse{Total: total, Items: make([]types.FileResponse, 0, len(files))}
	for i := range files {
		resp.Items = append(resp.Items, types.NewFileResponse(&files[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// loadFileForAction 读取文件并按动作级别授权，失败时已写响应.
func loadFileForAction(c *gin.Context, id gateway.Identity, action gateway.Action) (*service.FileService, *types.FileResponse, bool) {
	svc := service.NewFileService(c.Request.Context())

	f, err := svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)

		return nil, nil, false
	}

	if !authorize(c, id, f, action) {
		return nil, nil, false
	}

	resp := types.NewFileResponse(f)

	return svc, &resp, true
}

// FileInfo 聚合读取文件信息.
//
//	@Summary		文件详情
//	@Description	返回文件本体，include_versions/include_locks/include_audit 控制聚合内容.
//	@Tags			文件
//	@Produce		json
//	@Param			id					path		string	true	"文件 ID"
//	@Param			include_versions	query		bool	false	"包含版本列表"
//	@Param			include_locks		query		bool	false	"包含有效锁"
//	@Param			include_audit		query		bool	false	"包含最近审计记录"
//	@Success		200					{object}	types.FileInfoResponse
//	@Failure		404					{object}	map[string]string
//	@Router			/api/v1/files/{id} [get]
func FileInfo(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	var req types.FileInfoRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})

		return
	}

	info, err := svc.Info(c.Request.Context(), f.ID, req)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// UpdateFileMeta 更新文件标签与文件名.
//
//	@Summary		更新元数据
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"文件 ID"
//	@Param			request	body		types.UpdateMetaRequest	true	"更新参数"
//	@Success		200		{object}	types.FileResponse
//	@Router			/api/v1/files/{id}/meta [put]
func UpdateFileMeta(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionWrite)
	if !ok {
		return
	}

	var req types.UpdateMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	updated, err := svc.UpdateMeta(c.Request.Context(), f.ID, req, id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewFileResponse(updated))
}

// ArchiveFile 归档文件（软删除），幂等.
//
//	@Summary		归档文件
//	@Tags			文件
//	@Produce		json
//	@Param			id	path		string	true	"文件 ID"
//	@Success		200	{object}	types.FileResponse
//	@Router			/api/v1/files/{id} [delete]
func ArchiveFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionWrite)
	if !ok {
		return
	}

	archived, err := svc.Archive(c.Request.Context(), f.ID, id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewFileResponse(archived))
}

// RestoreFile 从归档恢复.
//
//	@Summary		恢复归档文件
//	@Tags			文件
//	@Produce		json
//	@Param			id	path		string	true	"文件 ID"
//	@Success		200	{object}	types.FileResponse
//	@Router			/api/v1/files/{id}/restore [post]
func RestoreFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionWrite)
	if !ok {
		return
	}

	restored, err := svc.Restore(c.Request.Context(), f.ID, id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewFileResponse(restored))
}

// PurgeFile 物理删除文件及其版本、锁与审计记录，幂等，需要管理级授权.
//
//	@Summary		物理删除文件
//	@Tags			文件
//	@Produce		json
//	@Param			id	path	string	true	"文件 ID"
//	@Success		204
//	@Failure		403	{object}	map[string]string
//	@Router			/api/v1/files/{id}/purge [delete]
func PurgeFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionAdmin)
	if !ok {
		return
	}

	if err := svc.Purge(c.Request.Context(), f.ID, id.UserID, origin(c)); err != nil {
		respondError(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}

// CopyFile 复制文件到新路径.
//
//	@Summary		复制文件
//	@Description	目标路径必须未被占用；copy_versions 控制是保留全部版本还是仅当前版本.
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"源文件 ID"
//	@Param			request	body		types.CopyFileRequest	true	"复制参数"
//	@Success		201		{object}	types.FileResponse
//	@Failure		409		{object}	map[string]string
//	@Router			/api/v1/files/{id}/copy [post]
func CopyFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	var req types.CopyFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	// 目标桶需要写权限
	if !authorizeBucket(c, id, req.DstBucketKind, req.DstBucketID, gateway.ActionWrite) {
		return
	}

	dst, err := svc.Copy(c.Request.Context(), f.ID, req, id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, types.NewFileResponse(dst))
}

// MoveFile 移动文件（桶内路径变更）.
//
//	@Summary		移动文件
//	@Tags			文件
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"文件 ID"
//	@Param			request	body		types.MoveFileRequest	true	"移动参数"
//	@Success		200		{object}	types.FileResponse
//	@Failure		409		{object}	map[string]string
//	@Router			/api/v1/files/{id}/move [post]
func MoveFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionWrite)
	if !ok {
		return
	}

	var req types.MoveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	moved, err := svc.Move(c.Request.Context(), f.ID, req, id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, types.NewFileResponse(moved))
}

// DownloadFile 签发下载用预签名 URL 并记录 download 审计.
//
//	@Summary		下载文件
//	@Description	返回预签名 GET URL；version_id 为空时取当前版本.
//	@Tags			文件
//	@Produce		json
//	@Param			id			path		string	true	"文件 ID"
//	@Param			version_id	query		string	false	"版本 ID，默认当前版本"
//	@Success		200			{object}	types.PresignResponse
//	@Failure		409			{object}	map[string]string
//	@Router			/api/v1/files/{id}/download [post]
func DownloadFile(c *gin.Context) {
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	svc, f, ok := loadFileForAction(c, id, gateway.ActionRead)
	if !ok {
		return
	}

	resp, err := svc.PresignDownload(c.Request.Context(), f.ID, c.Query("version_id"), id.UserID, origin(c))
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/log"
)

// RunReconcile 手动触发一次存储对账.
// 正常情况下对账由定时任务执行，这个入口用于运维排查.
//
//	@Summary		触发存储对账
//	@Description	扫描版本元数据与对象存储的一致性；fix=true 时把缺失对象的版本标记为 corrupted.
//	@Tags			运维
//	@Produce		json
//	@Param			fix			query		bool	false	"修复模式"
//	@Param			concurrency	query		int		false	"对象检查并发度"
//	@Success		200			{object}	service.ReconcileReport
//	@Failure		502			{object}	map[string]string
//	@Router			/api/v1/admin/reconcile [post]
func RunReconcile(c *gin.Context) {
	if _, ok := mustIdentity(c); !ok {
		return
	}

	fix := c.Query("fix") == "true"
	concurrency, _ := strconv.Atoi(c.Query("concurrency"))

	svc := service.NewReconcileService(c.Request.Context())

	report, err := svc.Run(c.Request.Context(), fix, concurrency)
	if err != nil {
		log.Logger().Error().Err(err).Msg("reconcile run failed")
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, report)
}

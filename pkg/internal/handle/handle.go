// Package handle 提供 HTTP 请求处理器：身份提取、授权边界与错误码映射
// 都收敛在这一层，核心服务不感知传输协议.
package handle

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/configs"
	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/gateway"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/rule"
)

var (
	authzOnce sync.Once
	authz     gateway.Authorizer
)

// authorizer 懒加载授权器单例，熔断器状态跨请求共享.
func authorizer() gateway.Authorizer {
	authzOnce.Do(func() {
		cfg := configs.GetConfig().Gateway
		authz = gateway.NewAuthorizer(gateway.NewProjectAuthorizer(&cfg))
	})

	return authz
}

// checkIdentity 提取请求方身份：Header 优先 -> query 参数 -> 非发布模式默认值.
func checkIdentity(c *gin.Context) (gateway.Identity, error) {
	user := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if user == "" {
		user = strings.TrimSpace(c.Query("user"))
	}

	// 测试默认值，不为 Release 模式时
	if user == "" && gin.Mode() != gin.ReleaseMode {
		user = "test-user"
	}

	if err := rule.ValidateVar(user, "required,max=255"); err != nil {
		return gateway.Identity{}, err
	}

	return gateway.Identity{
		UserID:    user,
		CompanyID: strings.TrimSpace(c.GetHeader("X-Company-ID")),
	}, nil
}

// mustIdentity 提取身份，失败时直接写 401 并返回 false.
func mustIdentity(c *gin.Context) (gateway.Identity, bool) {
	id, err := checkIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid identity"})

		return gateway.Identity{}, false
	}

	return id, true
}

// authorize 对文件所在桶执行授权检查，拒绝时写响应并返回 false.
func authorize(c *gin.Context, id gateway.Identity, f *model.File, action gateway.Action) bool {
	err := authorizer().Authorize(c.Request.Context(), gateway.Grant{
		BucketKind: f.BucketKind,
		BucketID:   f.BucketID,
		Action:     action,
		FileID:     f.ID,
		Identity:   id,
	})
	if err != nil {
		respondError(c, err)

		return false
	}

	return true
}

// authorizeBucket 对 (bucket_kind, bucket_id) 路由参数执行授权检查.
func authorizeBucket(c *gin.Context, id gateway.Identity, kind, bucketID string, action gateway.Action) bool {
	err := authorizer().Authorize(c.Request.Context(), gateway.Grant{
		BucketKind: model.BucketKind(kind),
		BucketID:   bucketID,
		Action:     action,
		Identity:   id,
	})
	if err != nil {
		respondError(c, err)

		return false
	}

	return true
}

// respondError 将领域错误映射为 HTTP 状态码.
// 授权权威不可达映射 502：不可达绝不等于放行.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch errs.KindOf(err) {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindAlreadyExists, errs.KindConflict, errs.KindInvalidState:
		status = http.StatusConflict
	case errs.KindForbidden:
		status = http.StatusForbidden
	case errs.KindInvalid:
		status = http.StatusBadRequest
	case errs.KindUnavailable:
		status = http.StatusBadGateway
	}

	body := gin.H{"error": err.Error(), "kind": string(errs.KindOf(err))}
	if details := errs.DetailsOf(err); details != nil {
		body["details"] = details
	}

	c.JSON(status, body)
}

// origin 请求来源，只进审计记录.
func origin(c *gin.Context) types.Origin {
	return types.Origin{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

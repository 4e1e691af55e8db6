// Package gateway 实现访问授权边界：所有桶内操作先经过 Authorizer，
// 再进入核心服务. user/company 桶本地判定，project 桶委托远端权威.
package gateway

import (
	"context"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/model"
)

// Action 网关层面的动作分级.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	// ActionAdmin 管理级动作：强制释放锁、purge 等
	ActionAdmin Action = "admin"
)

// Identity 请求方身份，来自认证层注入的请求头.
type Identity struct {
	UserID    string
	CompanyID string
}

// Grant 一次授权请求.
type Grant struct {
	BucketKind model.BucketKind
	BucketID   string
	Action     Action
	FileID     string
	Identity   Identity
}

// Authorizer 统一的授权能力.
// 返回 nil 表示允许；Forbidden 表示拒绝；Unavailable 表示权威不可达，
// 不可达永远不会被当作隐式允许.
type Authorizer interface {
	Authorize(ctx context.Context, g Grant) error
}

// LocalAuthorizer 处理 user 与 company 桶的本地判定，
// project 桶转交给 delegate.
type LocalAuthorizer struct {
	delegate Authorizer
}

// NewAuthorizer 构造授权器；delegate 处理 project 桶，可为 nil（全部拒绝）.
func NewAuthorizer(delegate Authorizer) *LocalAuthorizer {
	return &LocalAuthorizer{delegate: delegate}
}

// Authorize 实现 Authorizer.
func (a *LocalAuthorizer) Authorize(ctx context.Context, g Grant) error {
	if g.Identity.UserID == "" {
		return errs.New(errs.KindForbidden, "missing actor identity")
	}

	switch g.BucketKind {
	case model.BucketUser:
		// 个人桶：仅本人
		if g.BucketID != g.Identity.UserID {
			return errs.Newf(errs.KindForbidden, "bucket %s is not owned by actor", g.BucketID)
		}

		return nil
	case model.BucketCompany:
		// 企业桶：企业成员
		if g.Identity.CompanyID == "" || g.BucketID != g.Identity.CompanyID {
			return errs.Newf(errs.KindForbidden, "actor is not a member of company %s", g.BucketID)
		}

		return nil
	case model.BucketProject:
		if a.delegate == nil {
			return errs.New(errs.KindForbidden, "project authorization is not configured")
		}

		return a.delegate.Authorize(ctx, g)
	default:
		return errs.Newf(errs.KindForbidden, "unknown bucket kind: %s", g.BucketKind)
	}
}

// Package errs 定义领域错误分类，供 service 层返回、handler 层映射为 HTTP 状态码.
// 原始数据库错误不得越过 service 边界.
package errs

import (
	"errors"
	"fmt"
)

// Kind 错误分类.
type Kind string

const (
	// KindNotFound 目标不存在（文件、版本、锁等）
	KindNotFound Kind = "not_found"
	// KindAlreadyExists 唯一性冲突（路径已占用等）
	KindAlreadyExists Kind = "already_exists"
	// KindConflict 并发/状态冲突（锁被他人持有、编号竞争耗尽重试等）
	KindConflict Kind = "conflict"
	// KindForbidden 权限不足（自审批、非持有者释放锁、越权访问桶）
	KindForbidden Kind = "forbidden"
	// KindInvalidState 状态机非法迁移（对终态版本再次审批等）
	KindInvalidState Kind = "invalid_state"
	// KindUnavailable 依赖的外部权威不可达（远端授权超时/熔断）
	KindUnavailable Kind = "unavailable"
	// KindInvalid 入参非法（路径穿越、空标识等）
	KindInvalid Kind = "invalid"
)

// Error 携带分类与细节的领域错误.
type Error struct {
	Kind    Kind
	Msg     string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New 构造指定分类的领域错误.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf 格式化构造.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并赋予分类.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithDetails 附加细节（如锁持有者身份），返回自身便于链式调用.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details

	return e
}

// KindOf 提取错误分类；非领域错误返回空串.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	return ""
}

// Is 判断错误是否属于给定分类.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// DetailsOf 提取错误细节；无细节返回 nil.
func DetailsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}

	return nil
}

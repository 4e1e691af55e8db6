// Package types 定义服务层与传输层之间的请求/响应结构体.
package types

// Origin 请求来源元数据，仅写入审计记录，绝不参与授权判定.
type Origin struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Page 通用分页参数.
type Page struct {
	Offset int `form:"offset" json:"offset"`
	Limit  int `form:"limit"  json:"limit"`
}

const (
	// DefaultPageLimit 未指定时的默认页大小.
	DefaultPageLimit = 50
	// MaxPageLimit 页大小上限.
	MaxPageLimit = 1000
)

// Clamp 规范化分页参数：缺省补默认值，超限截断.
func (p *Page) Clamp() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}

	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}

	if p.Offset < 0 {
		p.Offset = 0
	}
}

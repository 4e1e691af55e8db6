package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sony/gobreaker"

	"github.com/yeisme/filevault/pkg/configs"
	"github.com/yeisme/filevault/pkg/internal/errs"
	nlog "github.com/yeisme/filevault/pkg/log"
)

// projectCheckRequest 远端项目权威的检查载荷.
type projectCheckRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	FileID    string `json:"file_id,omitempty"`
}

// projectCheckResponse 远端项目权威的响应.
type projectCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Role    string `json:"role,omitempty"`
}

// ProjectAuthorizer 将 project 桶的授权委托给远端 HTTP 权威服务.
// 单次调用 2-5 秒超时、不重试；外层用熔断器隔离故障，
// 超时或熔断一律返回 Unavailable，绝不隐式放行.
type ProjectAuthorizer struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// NewProjectAuthorizer 构造远端授权器.
func NewProjectAuthorizer(cfg *configs.GatewayConfig) *ProjectAuthorizer {
	settings := gobreaker.Settings{
		Name:        "project-authz",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    time.Duration(cfg.CBIntervalSecond) * time.Second,
		Timeout:     time.Duration(cfg.CBTimeoutSecond) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.CBThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			nlog.Logger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("project authz breaker state changed")
		},
	}

	return &ProjectAuthorizer{
		endpoint: cfg.ProjectAuthzURL,
		client:   &http.Client{Timeout: cfg.GetTimeout()},
		breaker:  gobreaker.NewCircuitBreaker(settings),
	}
}

// Authorize 实现 Authorizer.
func (p *ProjectAuthorizer) Authorize(ctx context.Context, g Grant) error {
	if p.endpoint == "" {
		return errs.New(errs.KindForbidden, "project authorization endpoint is not configured")
	}

	payload := projectCheckRequest{
		ProjectID: g.BucketID,
		UserID:    g.Identity.UserID,
		Action:    string(g.Action),
		FileID:    g.FileID,
	}

	result, err := p.breaker.Execute(func() (any, error) {
		return p.check(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return errs.Wrap(errs.KindUnavailable, "project authority circuit open", err)
		}

		return errs.Wrap(errs.KindUnavailable, "project authority unreachable", err)
	}

	resp, ok := result.(*projectCheckResponse)
	if !ok || !resp.Allowed {
		reason := "denied by project authority"
		if ok && resp.Reason != "" {
			reason = resp.Reason
		}

		return errs.New(errs.KindForbidden, reason)
	}

	return nil
}

func (p *ProjectAuthorizer) check(ctx context.Context, payload projectCheckRequest) (*projectCheckResponse, error) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal authz request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build authz request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call project authority: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("project authority returned %d", resp.StatusCode)
	}

	var out projectCheckResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode authz response: %w", err)
	}

	return &out, nil
}

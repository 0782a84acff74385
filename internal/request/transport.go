package request

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource 鉴权 token 的来源（会话级注入，不使用全局状态）
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

// UnauthorizedFunc 401 时回调（BFF 中用于跳转登录页、释放会话缓存）
type UnauthorizedFunc func(ctx context.Context)

// TransportConfig 上游连接配置
type TransportConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// NewHTTPClient 创建共享的 resty 客户端，多个会话复用连接池
func NewHTTPClient(cfg TransportConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.RetryCount > 0 {
		client.SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(3 * time.Second)
	}
	return client
}

// Call 一次请求的传输层参数
type Call struct {
	Method string
	URL    string
	Body   any
	Query  url.Values
	Header map[string]string
}

// Transport 附加鉴权头、识别 401，返回原始响应体
type Transport struct {
	http           *resty.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedFunc
	logger         *zap.Logger
}

func NewTransport(httpClient *resty.Client, tokens TokenSource, onUnauthorized UnauthorizedFunc, logger *zap.Logger) *Transport {
	return &Transport{
		http:           httpClient,
		tokens:         tokens,
		onUnauthorized: onUnauthorized,
		logger:         logger,
	}
}

func (t *Transport) Do(ctx context.Context, call Call) ([]byte, error) {
	requestID := uuid.NewString()
	req := t.http.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", requestID)

	if t.tokens != nil {
		token, err := t.tokens.Token(ctx)
		if err != nil {
			t.logger.Warn("failed to read auth token", zap.Error(err))
		} else if token != "" {
			req.SetAuthToken(token)
		}
	}
	for k, v := range call.Header {
		req.SetHeader(k, v)
	}
	if len(call.Query) > 0 {
		req.SetQueryParamsFromValues(call.Query)
	}
	if call.Body != nil {
		req.SetBody(call.Body)
	}

	resp, err := req.Execute(call.Method, call.URL)
	if err != nil {
		kind := KindNetwork
		if isTimeout(err) {
			kind = KindTimeout
		}
		e := &Error{Kind: kind, Method: call.Method, URL: call.URL, Err: err}
		e.Message = resolveMessage(e, nil)
		t.logger.Warn("upstream request failed",
			zap.String("request_id", requestID),
			zap.String("method", call.Method),
			zap.String("url", call.URL),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, e
	}

	body := resp.Body()
	status := resp.StatusCode()
	if status == http.StatusUnauthorized {
		t.handleUnauthorized(ctx)
	}
	if status >= http.StatusBadRequest {
		e := &Error{
			Kind:          KindStatus,
			Method:        call.Method,
			URL:           call.URL,
			Status:        status,
			ServerMessage: serverMessage(body),
		}
		if status == http.StatusUnauthorized {
			e.Err = ErrUnauthorized
		}
		e.Message = resolveMessage(e, nil)
		t.logger.Warn("upstream returned error status",
			zap.String("request_id", requestID),
			zap.String("method", call.Method),
			zap.String("url", call.URL),
			zap.Int("status_code", status),
		)
		return nil, e
	}

	t.logger.Debug("upstream request ok",
		zap.String("request_id", requestID),
		zap.String("method", call.Method),
		zap.String("url", call.URL),
		zap.Int("status_code", status),
	)
	return body, nil
}

// handleUnauthorized 清除 token 并通知上层跳转登录，与单次请求是否静默无关
func (t *Transport) handleUnauthorized(ctx context.Context) {
	if t.tokens != nil {
		if err := t.tokens.ClearToken(ctx); err != nil {
			t.logger.Warn("failed to clear auth token", zap.Error(err))
		}
	}
	if t.onUnauthorized != nil {
		t.onUnauthorized(ctx)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"geo-forecast/internal/notify"

	"go.uber.org/zap"
)

// Options 单次调用选项
type Options struct {
	// ShowError 失败时是否弹出全局提示（默认 true）
	ShowError bool
	// ErrorMessage 固定错误提示，优先级最高
	ErrorMessage string
	// ErrorMessages 按状态码配置错误提示
	ErrorMessages map[int]string
	Transform     TransformFunc
	// CheckEnvelope HTTP 200 时也检查包装内的错误码
	CheckEnvelope bool
	Query         url.Values
	Header        map[string]string
}

type Option func(*Options)

// Silent 失败时不提示，由调用方自行处理
func Silent() Option {
	return func(o *Options) { o.ShowError = false }
}

func WithErrorMessage(msg string) Option {
	return func(o *Options) { o.ErrorMessage = msg }
}

func WithStatusMessages(m map[int]string) Option {
	return func(o *Options) { o.ErrorMessages = m }
}

func WithTransform(f TransformFunc) Option {
	return func(o *Options) { o.Transform = f }
}

func WithEnvelopeCheck() Option {
	return func(o *Options) { o.CheckEnvelope = true }
}

func WithQuery(key, value string) Option {
	return func(o *Options) {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		o.Query.Set(key, value)
	}
}

func WithParams(v url.Values) Option {
	return func(o *Options) {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		for k, vs := range v {
			for _, x := range vs {
				o.Query.Add(k, x)
			}
		}
	}
}

func WithHeader(key, value string) Option {
	return func(o *Options) {
		if o.Header == nil {
			o.Header = map[string]string{}
		}
		o.Header[key] = value
	}
}

func buildOptions(opts []Option) *Options {
	o := &Options{ShowError: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Client 请求门面：get/post/put/delete + 拆包 + 错误提示
// 失败时总是返回错误，是否提示由 ShowError 决定
type Client struct {
	transport *Transport
	notifier  notify.Notifier
	logger    *zap.Logger
}

func NewClient(transport *Transport, notifier notify.Notifier, logger *zap.Logger) *Client {
	return &Client{transport: transport, notifier: notifier, logger: logger}
}

// Notifier 业务层用于成功提示
func (c *Client) Notifier() notify.Notifier { return c.notifier }

// Do 返回拆包后的原始 JSON
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...Option) ([]byte, error) {
	return c.do(ctx, method, path, body, buildOptions(opts))
}

func (c *Client) do(ctx context.Context, method, path string, body any, o *Options) ([]byte, error) {
	raw, err := c.transport.Do(ctx, Call{
		Method: method,
		URL:    path,
		Body:   body,
		Query:  o.Query,
		Header: o.Header,
	})
	if err == nil && o.CheckEnvelope {
		if e := checkEnvelope(raw); e != nil {
			e.Method, e.URL = method, path
			err = e
		}
	}
	if err != nil {
		return nil, c.fail(ctx, err, o)
	}

	if o.Transform != nil {
		out, err := o.Transform(raw)
		if err != nil {
			return nil, c.fail(ctx, &Error{Kind: KindDecode, Method: method, URL: path, Err: err}, o)
		}
		return out, nil
	}
	return Normalize(raw), nil
}

func (c *Client) fail(ctx context.Context, err error, o *Options) error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindNetwork, Err: err}
	}
	e.Message = resolveMessage(e, o)
	if o.ShowError && c.notifier != nil {
		c.notifier.Error(ctx, e.Message)
	}
	c.logger.Info("request failed",
		zap.String("method", e.Method),
		zap.String("url", e.URL),
		zap.String("kind", string(e.Kind)),
		zap.Int("status_code", e.Status),
		zap.String("message", e.Message),
		zap.Bool("notified", o.ShowError),
	)
	return e
}

func Get[T any](ctx context.Context, c *Client, path string, opts ...Option) (T, error) {
	return send[T](ctx, c, http.MethodGet, path, nil, opts)
}

func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...Option) (T, error) {
	return send[T](ctx, c, http.MethodPost, path, body, opts)
}

func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...Option) (T, error) {
	return send[T](ctx, c, http.MethodPut, path, body, opts)
}

func Delete[T any](ctx context.Context, c *Client, path string, opts ...Option) (T, error) {
	return send[T](ctx, c, http.MethodDelete, path, nil, opts)
}

func send[T any](ctx context.Context, c *Client, method, path string, body any, opts []Option) (T, error) {
	var zero T
	o := buildOptions(opts)
	payload, err := c.do(ctx, method, path, body, o)
	if err != nil {
		return zero, err
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return zero, nil
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return zero, c.fail(ctx, &Error{Kind: KindDecode, Method: method, URL: path, Err: err}, o)
	}
	return out, nil
}

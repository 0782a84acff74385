package request

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized 401，已清除 token
var ErrUnauthorized = errors.New("unauthorized")

// Kind 错误分类
type Kind string

const (
	KindNetwork     Kind = "network"
	KindTimeout     Kind = "timeout"
	KindStatus      Kind = "status"
	KindApplication Kind = "application" // HTTP 200，包装内为错误码
	KindDecode      Kind = "decode"
)

const (
	msgUnknown = "Unknown error"
	msgTimeout = "Request timeout"
)

// Error 请求失败。Message 为最终展示给用户的提示
type Error struct {
	Kind          Kind
	Method        string
	URL           string
	Status        int
	Code          int
	ServerMessage string
	Message       string
	Err           error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.URL, e.Message, e.Status)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusMessage 根据 HTTP 状态码生成提示
func StatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return fmt.Sprintf("Bad request (%d)", status)
	case http.StatusUnauthorized:
		return fmt.Sprintf("Unauthorized (%d)", status)
	case http.StatusForbidden:
		return fmt.Sprintf("Forbidden (%d)", status)
	case http.StatusNotFound:
		return fmt.Sprintf("Not found (%d)", status)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Sprintf("Request timeout (%d)", status)
	case http.StatusBadGateway:
		return fmt.Sprintf("Bad gateway (%d)", status)
	case http.StatusServiceUnavailable:
		return fmt.Sprintf("Service unavailable (%d)", status)
	}
	switch {
	case status >= 500:
		return fmt.Sprintf("Server error (%d)", status)
	case status >= 400:
		return fmt.Sprintf("Request error (%d)", status)
	}
	return msgUnknown
}

// resolveMessage 优先级：调用方配置 > 后端 message > 状态码提示 > Unknown error
func resolveMessage(e *Error, o *Options) string {
	if o != nil {
		if o.ErrorMessage != "" {
			return o.ErrorMessage
		}
		if m, ok := o.ErrorMessages[e.Status]; ok && e.Status > 0 {
			return m
		}
	}
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	if e.Status > 0 {
		return StatusMessage(e.Status)
	}
	if e.Kind == KindTimeout {
		return msgTimeout
	}
	return msgUnknown
}

// StatusOf 取出错误中的 HTTP 状态码，非 HTTP 错误返回 0
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// MessageOf 取出面向用户的提示
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

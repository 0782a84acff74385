package httpapi

// Result 页面统一响应结构
// - code: 2000 成功，-1 失败，60401 登录失效
// - type: 'success' | 'error'
// - message: 失败时为面向用户的提示
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired 配合 HTTP 401 + Location 跳转登录页
	ResultTokenExpired = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func Expired(loginPath string) Result[any] {
	return Result[any]{
		Code:    ResultTokenExpired,
		Type:    "error",
		Message: "Unauthorized",
		Result:  map[string]string{"redirect": loginPath},
	}
}

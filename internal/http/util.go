package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// writeJSON 统一 JSON 输出；状态码写出后编码失败无法再告知调用方
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseInt 查询参数转整数，缺省或非法时用 def
func parseInt(s string, def int) int {
	if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return i
	}
	return def
}

// readBodyJSON 空 body 视为不修改 out；超过 maxBytes 返回 errBodyTooLarge 而不是截断后解析
func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return errBodyTooLarge
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// confirmed 删除等破坏性操作需带 confirm=true（对应页面的二次确认框）
func confirmed(r *http.Request) bool {
	return r.URL.Query().Get("confirm") == "true"
}

// pathParts 去掉前缀后按 / 切分，忽略首尾的 /
func pathParts(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

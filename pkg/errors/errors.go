// Package errors 定义与后端 API 交互时的错误分类及错误文案提取。
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ── 错误分类 ──

var (
	// ErrNoAccessToken 会话中没有访问凭证，在发起任何网络请求之前短路
	ErrNoAccessToken = errors.New("no access token found")
	// ErrUnexpected 网络失败或响应无法解码
	ErrUnexpected = errors.New("unexpected error")
	// ErrUnrecognizedResponse 2xx 响应但结构无法识别（如登录响应缺少凭证）
	ErrUnrecognizedResponse = errors.New("server response format not recognized")
)

// 面向用户的固定文案
const (
	MsgNoAccessToken   = "No access token found"
	MsgUnexpected      = "An unexpected error occurred"
	MsgNetwork         = "Network error. Please try again."
	MsgUnknownResponse = "Server response format not recognized."
)

// UpstreamError 后端返回非 2xx 状态
type UpstreamError struct {
	Op      string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Fallback 生成默认错误文案 "<Op> failed (<status>)"
func Fallback(op string, status int) string {
	return fmt.Sprintf("%s failed (%d)", op, status)
}

// ExtractMessage 从后端错误响应体中提取可读文案
// 顺序：detail → non_field_errors[0] → message → 首个数组字段 "<field>: <msg>" → fallback
func ExtractMessage(body []byte, fallback string) string {
	var raw map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &raw) != nil {
		return fallback
	}

	if s := stringField(raw, "detail"); s != "" {
		return s
	}
	if arr := stringArray(raw["non_field_errors"]); len(arr) > 0 && arr[0] != "" {
		return arr[0]
	}
	if s := stringField(raw, "message"); s != "" {
		return s
	}

	// 字段级校验错误 {"name": ["Name exists"]}，按字段名排序保证稳定
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if arr := stringArray(raw[k]); len(arr) > 0 && arr[0] != "" {
			return k + ": " + arr[0]
		}
	}

	return fallback
}

// UserMessage 将任意错误映射为面向用户的文案
func UserMessage(err error) string {
	var upErr *UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoAccessToken):
		return MsgNoAccessToken
	case errors.Is(err, ErrUnrecognizedResponse):
		return MsgUnknownResponse
	case errors.As(err, &upErr):
		return upErr.Message
	default:
		return MsgUnexpected
	}
}

func stringField(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringArray(v json.RawMessage) []string {
	if len(v) == 0 {
		return nil
	}
	var arr []string
	if json.Unmarshal(v, &arr) != nil {
		return nil
	}
	return arr
}

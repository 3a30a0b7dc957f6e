// Package upstream 封装对后端课表 REST API 的访问。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/model"
	apperrors "routine-desk/server/pkg/errors"
	"routine-desk/server/pkg/metrics"
)

const maxBodyBytes = 4 << 20

// Client 后端 API 客户端
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics

	Departments *Resource[model.Department]
	Semesters   *Resource[model.Semester]
	TimeSlots   *Resource[model.TimeSlot]
	Courses     *Resource[model.Course]
	Users       *Resource[model.User]
}

// NewClient 创建客户端
func NewClient(cfg *config.UpstreamConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: m,
	}

	c.Departments = newResource[model.Department](c, "Departments", "/academic/departments/")
	c.Semesters = newResource[model.Semester](c, "Semesters", "/academic/semesters/")
	c.TimeSlots = newResource[model.TimeSlot](c, "Time slots", "/academic/timeslots/")
	c.Courses = newResource[model.Course](c, "Courses", "/academic/courses/")
	c.Users = newResource[model.User](c, "Users", "/users/")
	c.Users.createPath = "/register/"
	c.Users.updateMethod = http.MethodPatch

	return c
}

// call 一次后端请求的描述
type call struct {
	op     string
	method string
	path   string
	token  string
	public bool // 无需凭证（登录）
	body   interface{}
}

// do 发送请求并把 2xx 响应体解码到 out（out 为 nil 时丢弃）
func (c *Client) do(ctx context.Context, req call, out interface{}) error {
	start := time.Now()

	if !req.public && strings.TrimSpace(req.token) == "" {
		c.metrics.ObserveUpstream(req.op, "no_token", 0)
		return apperrors.ErrNoAccessToken
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%w: 序列化请求体失败: %v", apperrors.ErrUnexpected, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUnexpected, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !req.public {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream(req.op, "network_error", time.Since(start))
		c.logger.Warn("后端请求失败",
			zap.String("op", req.op),
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", apperrors.ErrUnexpected, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.ObserveUpstream(req.op, "network_error", time.Since(start))
		return fmt.Errorf("%w: 读取响应失败: %v", apperrors.ErrUnexpected, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.ObserveUpstream(req.op, "http_error", time.Since(start))
		msg := apperrors.ExtractMessage(raw, apperrors.Fallback(req.op, resp.StatusCode))
		c.logger.Info("后端返回错误",
			zap.String("op", req.op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return &apperrors.UpstreamError{Op: req.op, Status: resp.StatusCode, Message: msg}
	}

	c.metrics.ObserveUpstream(req.op, "ok", time.Since(start))

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("后端响应解码失败", zap.String("op", req.op), zap.Error(err))
		return fmt.Errorf("%w: 解码响应失败: %v", apperrors.ErrUnexpected, err)
	}
	return nil
}

// decodeList 兼容裸数组、{data: [...]}、{results: [...]} 三种列表格式
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}
	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapped struct {
		Data    json.RawMessage `json:"data"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case len(wrapped.Data) > 0 && wrapped.Data[0] == '[':
		return decodeList[T](wrapped.Data)
	case len(wrapped.Results) > 0 && wrapped.Results[0] == '[':
		return decodeList[T](wrapped.Results)
	}
	return nil, errors.New("无法识别的列表格式")
}

// getList GET 并解码列表
func getList[T any](ctx context.Context, c *Client, op, path, token string) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, token: token}, &raw); err != nil {
		return nil, err
	}
	items, err := decodeList[T](raw)
	if err != nil {
		c.logger.Warn("列表解码失败", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnexpected, err)
	}
	return items, nil
}

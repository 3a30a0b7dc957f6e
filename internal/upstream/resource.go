package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Resource 一类后端资源的增删改查
type Resource[T any] struct {
	c            *Client
	name         string
	path         string
	createPath   string
	updateMethod string
}

func newResource[T any](c *Client, name, path string) *Resource[T] {
	return &Resource[T]{
		c:            c,
		name:         name,
		path:         path,
		createPath:   path,
		updateMethod: http.MethodPut,
	}
}

// Name 资源名，用于文案
func (r *Resource[T]) Name() string { return r.name }

// List GET <path>
func (r *Resource[T]) List(ctx context.Context, token string) ([]T, error) {
	return getList[T](ctx, r.c, r.name, r.path, token)
}

// Create POST <createPath>，返回后端创建的对象（响应体为空时为 nil）
func (r *Resource[T]) Create(ctx context.Context, token string, payload map[string]interface{}) (*T, error) {
	return r.write(ctx, call{
		op:     "Creation",
		method: http.MethodPost,
		path:   r.createPath,
		token:  token,
		body:   payload,
	})
}

// Update PUT/PATCH <path><id>/
func (r *Resource[T]) Update(ctx context.Context, token string, id int64, payload map[string]interface{}) (*T, error) {
	return r.write(ctx, call{
		op:     "Update",
		method: r.updateMethod,
		path:   fmt.Sprintf("%s%d/", r.path, id),
		token:  token,
		body:   payload,
	})
}

// Delete DELETE <path><id>/，204 视为成功
func (r *Resource[T]) Delete(ctx context.Context, token string, id int64) error {
	return r.c.do(ctx, call{
		op:     "Delete",
		method: http.MethodDelete,
		path:   fmt.Sprintf("%s%d/", r.path, id),
		token:  token,
	}, nil)
}

func (r *Resource[T]) write(ctx context.Context, req call) (*T, error) {
	var raw json.RawMessage
	if err := r.c.do(ctx, req, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		// 响应体不是对象时忽略，后续刷新会取回最新数据
		return nil, nil
	}
	return &item, nil
}

package upstream

import (
	"context"
	"net/http"

	"routine-desk/server/internal/model"
)

// Routine 获取课表
// GET /academic/view-routine/
func (c *Client) Routine(ctx context.Context, token string) ([]model.RoutineEntry, error) {
	return getList[model.RoutineEntry](ctx, c, "Routine", "/academic/view-routine/", token)
}

// GenerateRoutine 触发后端重新生成课表
// POST /academic/generate-routine/
func (c *Client) GenerateRoutine(ctx context.Context, token string) error {
	return c.do(ctx, call{
		op:     "Routine generation",
		method: http.MethodPost,
		path:   "/academic/generate-routine/",
		token:  token,
	}, nil)
}

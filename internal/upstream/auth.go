package upstream

import (
	"context"
	"encoding/json"
	"net/http"

	"routine-desk/server/internal/model"
	apperrors "routine-desk/server/pkg/errors"
)

// LoginRequest 登录凭据
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult 标准化后的登录结果
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         model.User
	// Raw 用户对象的原始字段，凭证中缺失的资料从这里补齐
	Raw map[string]json.RawMessage
}

// Login 登录并标准化响应
// POST /login/
//
// 支持两种响应：
//   - {success, data: {accessToken, refreshToken, user}}
//   - {access|accessToken|token, refresh|refreshToken, ...用户字段}
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var raw map[string]json.RawMessage
	err := c.do(ctx, call{
		op:     "Login",
		method: http.MethodPost,
		path:   "/login/",
		public: true,
		body:   req,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return standardizeLogin(raw)
}

func standardizeLogin(raw map[string]json.RawMessage) (*LoginResult, error) {
	if raw == nil {
		return nil, apperrors.ErrUnrecognizedResponse
	}

	if successRaw, ok := raw["success"]; ok {
		var success bool
		_ = json.Unmarshal(successRaw, &success)
		if !success {
			msg := stringOf(raw["message"])
			if msg == "" {
				msg = apperrors.Fallback("Login", http.StatusOK)
			}
			return nil, &apperrors.UpstreamError{Op: "Login", Status: http.StatusOK, Message: msg}
		}
		var data map[string]json.RawMessage
		if err := json.Unmarshal(raw["data"], &data); err != nil || data == nil {
			return nil, apperrors.ErrUnrecognizedResponse
		}
		raw = data
	}

	access := firstString(raw, "access", "accessToken", "token")
	if access == "" {
		return nil, apperrors.ErrUnrecognizedResponse
	}
	refresh := firstString(raw, "refresh", "refreshToken")

	userFields := raw
	if nested, ok := raw["user"]; ok {
		var m map[string]json.RawMessage
		if json.Unmarshal(nested, &m) == nil && m != nil {
			userFields = m
		}
	}
	rest := make(map[string]json.RawMessage, len(userFields))
	for k, v := range userFields {
		switch k {
		case "access", "accessToken", "token", "refresh", "refreshToken", "user", "success", "message":
			continue
		}
		rest[k] = v
	}

	// 类型不符的字段保持零值，其余字段照常填充
	var user model.User
	if b, err := json.Marshal(rest); err == nil {
		_ = json.Unmarshal(b, &user)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
		Raw:          rest,
	}, nil
}

func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if s := stringOf(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringOf(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

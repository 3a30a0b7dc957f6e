package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"routine-desk/server/config"
	apperrors "routine-desk/server/pkg/errors"
	"routine-desk/server/pkg/metrics"
)

// recordedRequest 测试服务器收到的请求
type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}
		reqs = append(reqs, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(&config.UpstreamConfig{BaseURL: srv.URL + "/api/", Timeout: 5 * time.Second}, zap.NewNop(), metrics.New())
	return c, &reqs
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ── 凭证短路 ──

func TestClient_NoTokenShortCircuits(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, 200, `[]`)
	})
	ctx := context.Background()

	if _, err := c.Routine(ctx, ""); !errors.Is(err, apperrors.ErrNoAccessToken) {
		t.Errorf("期望 ErrNoAccessToken，实际: %v", err)
	}
	if err := c.GenerateRoutine(ctx, "  "); !errors.Is(err, apperrors.ErrNoAccessToken) {
		t.Errorf("期望 ErrNoAccessToken，实际: %v", err)
	}
	if _, err := c.Courses.Create(ctx, "", map[string]interface{}{"course_code": "CSE101"}); !errors.Is(err, apperrors.ErrNoAccessToken) {
		t.Errorf("期望 ErrNoAccessToken，实际: %v", err)
	}
	if err := c.Users.Delete(ctx, "", 1); !errors.Is(err, apperrors.ErrNoAccessToken) {
		t.Errorf("期望 ErrNoAccessToken，实际: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("缺少凭证时不应发起网络请求，实际 %d 次", n)
	}
}

// ── 列表格式 ──

func TestClient_RoutineListShapes(t *testing.T) {
	bodies := []string{
		`[{"id":1,"day":"Sunday","start_time":"08:00:00","course_code":"CSE101"}]`,
		`{"data":[{"id":1,"day":"Sunday","start_time":"08:00:00","course_code":"CSE101"}]}`,
		`{"results":[{"id":1,"day":"Sunday","start_time":"08:00:00","course_code":"CSE101"}]}`,
	}
	for _, body := range bodies {
		body := body
		c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, body)
		})
		entries, err := c.Routine(context.Background(), "tok")
		if err != nil {
			t.Fatalf("%s: 期望成功，实际: %v", body, err)
		}
		if len(entries) != 1 || entries[0].CourseCode != "CSE101" {
			t.Errorf("%s: 解析结果不符: %+v", body, entries)
		}
		got := (*reqs)[0]
		if got.Path != "/api/academic/view-routine/" || got.Auth != "Bearer tok" {
			t.Errorf("请求不符: %+v", got)
		}
	}
}

func TestClient_UnknownListShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"items":5}`)
	})
	if _, err := c.Departments.List(context.Background(), "tok"); !errors.Is(err, apperrors.ErrUnexpected) {
		t.Errorf("期望 ErrUnexpected，实际: %v", err)
	}
}

// ── 错误文案提取 ──

func TestClient_ErrorExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", 401, `{"detail":"Given token not valid"}`, "Given token not valid"},
		{"字段错误", 400, `{"course_code":["course with this code already exists."]}`, "course_code: course with this code already exists."},
		{"无法解析", 500, `<html>oops</html>`, "Creation failed (500)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.Courses.Create(context.Background(), "tok", map[string]interface{}{"course_code": "CSE101"})
			var upErr *apperrors.UpstreamError
			if !errors.As(err, &upErr) {
				t.Fatalf("期望 UpstreamError，实际: %v", err)
			}
			if upErr.Status != tt.status || upErr.Message != tt.want {
				t.Errorf("期望 (%d, %q)，实际 (%d, %q)", tt.status, tt.want, upErr.Status, upErr.Message)
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	c := NewClient(&config.UpstreamConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, zap.NewNop(), nil)
	if _, err := c.Routine(context.Background(), "tok"); !errors.Is(err, apperrors.ErrUnexpected) {
		t.Errorf("期望 ErrUnexpected，实际: %v", err)
	}
}

// ── 写操作 ──

func TestClient_DeleteNoContent(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.Semesters.Delete(context.Background(), "tok", 7); err != nil {
		t.Fatalf("204 应视为成功: %v", err)
	}
	if got := (*reqs)[0]; got.Method != http.MethodDelete || got.Path != "/api/academic/semesters/7/" {
		t.Errorf("请求不符: %+v", got)
	}
}

func TestClient_UserEndpoints(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"id":9,"username":"T101","role":"TEACHER"}`)
	})
	ctx := context.Background()

	u, err := c.Users.Create(ctx, "tok", map[string]interface{}{"username": "T101"})
	if err != nil || u == nil || u.ID != 9 {
		t.Fatalf("创建用户失败: %v %+v", err, u)
	}
	if _, err := c.Users.Update(ctx, "tok", 9, map[string]interface{}{"email": "t@x"}); err != nil {
		t.Fatalf("更新用户失败: %v", err)
	}

	create, update := (*reqs)[0], (*reqs)[1]
	if create.Method != http.MethodPost || create.Path != "/api/register/" {
		t.Errorf("创建用户应 POST /register/，实际 %s %s", create.Method, create.Path)
	}
	if update.Method != http.MethodPatch || update.Path != "/api/users/9/" {
		t.Errorf("更新用户应 PATCH /users/9/，实际 %s %s", update.Method, update.Path)
	}
	if update.Body["email"] != "t@x" {
		t.Errorf("请求体不符: %+v", update.Body)
	}
}

func TestClient_GenerateRoutine(t *testing.T) {
	c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"message":"ok"}`)
	})
	if err := c.GenerateRoutine(context.Background(), "tok"); err != nil {
		t.Fatalf("期望成功: %v", err)
	}
	if got := (*reqs)[0]; got.Method != http.MethodPost || got.Path != "/api/academic/generate-routine/" {
		t.Errorf("请求不符: %+v", got)
	}
}

// ── 登录 ──

func TestClient_LoginShapes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantAccess  string
		wantRefresh string
		wantRole    string
	}{
		{
			"success/data 包装",
			`{"success":true,"data":{"accessToken":"a1","refreshToken":"r1","user":{"username":"T101","role":"TEACHER"}}}`,
			"a1", "r1", "TEACHER",
		},
		{
			"扁平 access/refresh",
			`{"access":"a2","refresh":"r2","username":"S1","role":"STUDENT","student_id":2001}`,
			"a2", "r2", "STUDENT",
		},
		{
			"token 字段",
			`{"token":"a3","username":"A","role":"ADMIN"}`,
			"a3", "", "ADMIN",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, reqs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, 200, tt.body)
			})
			res, err := c.Login(context.Background(), LoginRequest{Username: "u", Password: "p"})
			if err != nil {
				t.Fatalf("登录失败: %v", err)
			}
			if res.AccessToken != tt.wantAccess || res.RefreshToken != tt.wantRefresh {
				t.Errorf("凭证不符: %+v", res)
			}
			if res.User.Role != tt.wantRole {
				t.Errorf("期望角色 %s，实际 %s", tt.wantRole, res.User.Role)
			}
			got := (*reqs)[0]
			if got.Path != "/api/login/" || got.Auth != "" {
				t.Errorf("登录请求不应携带凭证: %+v", got)
			}
			if got.Body["username"] != "u" || got.Body["password"] != "p" {
				t.Errorf("请求体不符: %+v", got.Body)
			}
		})
	}
}

func TestClient_LoginFailures(t *testing.T) {
	t.Run("无法识别的结构", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, `{"hello":"world"}`)
		})
		_, err := c.Login(context.Background(), LoginRequest{Username: "u", Password: "p"})
		if !errors.Is(err, apperrors.ErrUnrecognizedResponse) {
			t.Errorf("期望 ErrUnrecognizedResponse，实际: %v", err)
		}
		if apperrors.UserMessage(err) != apperrors.MsgUnknownResponse {
			t.Errorf("文案不符: %q", apperrors.UserMessage(err))
		}
	})

	t.Run("success=false", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, `{"success":false,"message":"Account disabled"}`)
		})
		_, err := c.Login(context.Background(), LoginRequest{Username: "u", Password: "p"})
		if apperrors.UserMessage(err) != "Account disabled" {
			t.Errorf("期望后端文案，实际: %v", err)
		}
	})

	t.Run("401", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 401, `{"detail":"No active account found with the given credentials"}`)
		})
		_, err := c.Login(context.Background(), LoginRequest{Username: "u", Password: "bad"})
		var upErr *apperrors.UpstreamError
		if !errors.As(err, &upErr) || upErr.Status != 401 {
			t.Fatalf("期望 401 UpstreamError，实际: %v", err)
		}
		if upErr.Message != "No active account found with the given credentials" {
			t.Errorf("文案不符: %q", upErr.Message)
		}
	})
}

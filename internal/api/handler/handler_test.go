package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routine-desk/server/internal/api/middleware"
	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/service"
	"routine-desk/server/internal/state"
	apperrors "routine-desk/server/pkg/errors"
	"routine-desk/server/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult    *dto.LoginResponse
	loginErr       error
	identifyResult state.AuthState
	identifyErr    error
	currentResult  *dto.UserInfo
	currentErr     error
	stateResult    state.AuthState
	loggedOut      string
}

func (m *mockAuthService) Login(_ context.Context, _ string, _ *dto.LoginRequest) (*dto.LoginResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Identify(_ context.Context, _ service.Session) (state.AuthState, error) {
	return m.identifyResult, m.identifyErr
}
func (m *mockAuthService) CurrentUser(_ context.Context, _ service.Session) (*dto.UserInfo, error) {
	return m.currentResult, m.currentErr
}
func (m *mockAuthService) State(_ context.Context, _ string) state.AuthState {
	return m.stateResult
}
func (m *mockAuthService) Logout(_ context.Context, sessionID string) {
	m.loggedOut = sessionID
}

// ── Mock RoutineService ──

type mockRoutineService struct {
	entries     []model.RoutineEntry
	entriesErr  error
	gridResult  *dto.GridResponse
	gridErr     error
	ownResult   *dto.OwnRoutineResponse
	ownErr      error
	ownReq      *dto.OwnRoutineRequest
	generateErr error
	locked      bool
}

func (m *mockRoutineService) Entries(_ context.Context, _ string) ([]model.RoutineEntry, error) {
	return m.entries, m.entriesErr
}
func (m *mockRoutineService) Grid(_ context.Context, _ string, _ *dto.GridRequest) (*dto.GridResponse, error) {
	return m.gridResult, m.gridErr
}
func (m *mockRoutineService) OwnRoutine(_ context.Context, _ service.Session, _ state.AuthState, req *dto.OwnRoutineRequest) (*dto.OwnRoutineResponse, error) {
	m.ownReq = req
	return m.ownResult, m.ownErr
}
func (m *mockRoutineService) StudentRoutine(_ context.Context, _ string, _ state.AuthState, _ *dto.StudentRoutineRequest) (*dto.GridResponse, error) {
	return m.gridResult, m.gridErr
}
func (m *mockRoutineService) Analytics(_ context.Context, _ string, _ state.AuthState, _ *dto.AnalyticsRequest) (*dto.AnalyticsResponse, error) {
	return &dto.AnalyticsResponse{}, nil
}
func (m *mockRoutineService) Generate(_ context.Context, _ string) (dto.Notice, error) {
	if m.generateErr != nil {
		return dto.ErrorNotice(apperrors.UserMessage(m.generateErr)), m.generateErr
	}
	return dto.SuccessNotice(service.MsgRoutineGenerated), nil
}
func (m *mockRoutineService) IsLocked() bool { return m.locked }
func (m *mockRoutineService) Forget(string)  {}
func (m *mockRoutineService) SetLocked(_ context.Context, locked bool) bool {
	m.locked = locked
	return locked
}

// ── Mock ClassOffService ──

type mockClassOffService struct {
	statusResult *dto.ClassStatusResponse
	statusErr    error
	offReq       *dto.MarkOffRequest
	availability map[string]bool
}

func (m *mockClassOffService) List(_ context.Context) *dto.ClassOffListResponse {
	return &dto.ClassOffListResponse{Today: "2024-05-01", Entries: []dto.ClassOffEntryResponse{}}
}
func (m *mockClassOffService) MarkOff(_ context.Context, _ string, _ state.AuthState, req *dto.MarkOffRequest) (*dto.ClassStatusResponse, error) {
	m.offReq = req
	return m.statusResult, m.statusErr
}
func (m *mockClassOffService) MarkOn(_ context.Context, _ string, _ state.AuthState, _ *dto.ClassSlotRequest) (*dto.ClassStatusResponse, error) {
	return m.statusResult, m.statusErr
}
func (m *mockClassOffService) Cleanup(_ context.Context) *dto.CleanupResponse {
	return &dto.CleanupResponse{Today: "2024-05-01"}
}
func (m *mockClassOffService) Reset(_ context.Context) {}
func (m *mockClassOffService) Availability() *dto.AvailabilityResponse {
	return &dto.AvailabilityResponse{Map: m.availability}
}
func (m *mockClassOffService) SetAvailability(_ context.Context, teacherID string, available bool) *dto.AvailabilityResponse {
	if m.availability == nil {
		m.availability = map[string]bool{}
	}
	m.availability[teacherID] = available
	return m.Availability()
}
func (m *mockClassOffService) ToggleAvailability(ctx context.Context, teacherID string) *dto.AvailabilityResponse {
	cur, ok := m.availability[teacherID]
	return m.SetAvailability(ctx, teacherID, ok && !cur)
}
func (m *mockClassOffService) BulkAvailability(ctx context.Context, in map[string]bool) *dto.AvailabilityResponse {
	for k, v := range in {
		m.SetAvailability(ctx, k, v)
	}
	return m.Availability()
}
func (m *mockClassOffService) ResetAvailability(_ context.Context) *dto.AvailabilityResponse {
	m.availability = map[string]bool{}
	return m.Availability()
}

// ── Mock ExportService ──

type mockExportService struct {
	filename string
	err      error
}

func (m *mockExportService) RoutineXLSX(_ context.Context, _ string, _ *dto.GridRequest) (*bytes.Buffer, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return bytes.NewBufferString("xlsx-bytes"), m.filename, nil
}
func (m *mockExportService) RoutinePDF(_ context.Context, _ string, _ *dto.GridRequest) (*bytes.Buffer, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return bytes.NewBufferString("%PDF-1.3"), m.filename, nil
}
func (m *mockExportService) OwnRoutineICS(_ context.Context, _ string, _ state.AuthState) (*bytes.Buffer, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return bytes.NewBufferString("BEGIN:VCALENDAR"), m.filename, nil
}

// ── Fake ResourceAPI ──

type fakeDepartmentAPI struct {
	items     []model.Department
	createErr error
}

func (f *fakeDepartmentAPI) Name() string { return "departments" }
func (f *fakeDepartmentAPI) List(_ context.Context, _ string) ([]model.Department, error) {
	return append([]model.Department(nil), f.items...), nil
}
func (f *fakeDepartmentAPI) Create(_ context.Context, _ string, payload map[string]interface{}) (*model.Department, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	d := model.Department{ID: int64(len(f.items) + 1), Name: fmt.Sprint(payload["name"])}
	f.items = append(f.items, d)
	return &d, nil
}
func (f *fakeDepartmentAPI) Update(_ context.Context, _ string, _ int64, _ map[string]interface{}) (*model.Department, error) {
	return nil, nil
}
func (f *fakeDepartmentAPI) Delete(_ context.Context, _ string, _ int64) error {
	return nil
}

// ═══════════════════════════════════════════════════════════
// 测试辅助
// ═══════════════════════════════════════════════════════════

var adminState = state.AuthState{IsAuthenticated: true, Username: "admin", Role: state.RoleAdmin}

// setupRouter 挂载会话中间件并注入测试会话与身份
func setupRouter(auth state.AuthState) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("routine_desk_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSessionKey, service.Session{ID: "sid-1", AccessToken: "test-token"})
		c.Set(middleware.ContextAuthKey, auth)
		c.Next()
	})
	return r
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		rd = jsonBody(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.LoginResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    1800,
			User:         dto.UserInfo{Username: "t101", Role: "teacher"},
		},
	}
	h := NewAuthHandler(mock, nil, zap.NewNop())

	r := setupRouter(state.AuthState{})
	r.POST("/auth/login", h.Login)
	w := doJSON(r, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "t101", Password: "secret"})

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp.Code != 0 || resp.Message != "Login successful" {
		t.Errorf("响应不符合预期: %+v", resp)
	}
	if strings.Contains(w.Body.String(), "test-access-token") {
		t.Error("凭证不应出现在响应体中")
	}
	found := false
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "routine_desk_session" {
			found = true
		}
	}
	if !found {
		t.Error("期望写入会话 Cookie")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil, zap.NewNop())
	r := setupRouter(state.AuthState{})
	r.POST("/auth/login", h.Login)

	w := doJSON(r, http.MethodPost, "/auth/login", map[string]string{"username": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeValidation {
		t.Errorf("期望业务码 %d，实际 %d", codeValidation, resp.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	mock := &mockAuthService{
		loginErr: fmt.Errorf("登录失败: %w", &apperrors.UpstreamError{Op: "Login", Status: 401, Message: "Invalid credentials"}),
	}
	h := NewAuthHandler(mock, nil, zap.NewNop())
	r := setupRouter(state.AuthState{})
	r.POST("/auth/login", h.Login)

	w := doJSON(r, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "t101", Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Message != "Invalid credentials" || resp.Code != codeUpstream {
		t.Errorf("期望透传后端文案，实际 %+v", resp)
	}
}

func TestAuthHandler_Login_NetworkError(t *testing.T) {
	mock := &mockAuthService{loginErr: fmt.Errorf("登录失败: %w", apperrors.ErrUnexpected)}
	h := NewAuthHandler(mock, nil, zap.NewNop())
	r := setupRouter(state.AuthState{})
	r.POST("/auth/login", h.Login)

	w := doJSON(r, http.MethodPost, "/auth/login", dto.LoginRequest{Username: "t101", Password: "secret"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("期望 502，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message != apperrors.MsgNetwork {
		t.Errorf("期望 %q，实际 %q", apperrors.MsgNetwork, resp.Message)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	mock := &mockAuthService{}
	var forgotten string
	h := NewAuthHandler(mock, func(id string) { forgotten = id }, zap.NewNop())
	r := setupRouter(adminState)
	r.POST("/auth/logout", h.Logout)

	w := doJSON(r, http.MethodPost, "/auth/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if mock.loggedOut != "sid-1" || forgotten != "sid-1" {
		t.Errorf("期望清理会话 sid-1，实际 logout=%q forget=%q", mock.loggedOut, forgotten)
	}
}

func TestAuthHandler_State_Expired(t *testing.T) {
	mock := &mockAuthService{
		identifyErr: service.ErrSessionExpired,
		stateResult: state.AuthState{},
	}
	h := NewAuthHandler(mock, nil, zap.NewNop())
	r := setupRouter(state.AuthState{})
	r.GET("/auth/state", h.State)

	w := doJSON(r, http.MethodGet, "/auth/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"isAuthenticated":false`) {
		t.Errorf("期望返回未登录状态，实际 %s", w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// RoutineHandler Tests
// ═══════════════════════════════════════════════════════════

func TestRoutineHandler_Grid_Success(t *testing.T) {
	mock := &mockRoutineService{gridResult: &dto.GridResponse{Department: "CSE", Semester: "6th"}}
	h := NewRoutineHandler(mock, zap.NewNop())
	r := setupRouter(adminState)
	r.GET("/routine/grid", h.Grid)

	w := doJSON(r, http.MethodGet, "/routine/grid?department=CSE&semester=6th", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"department":"CSE"`) {
		t.Errorf("响应缺少院系: %s", w.Body.String())
	}
}

func TestRoutineHandler_Grid_UpstreamError(t *testing.T) {
	mock := &mockRoutineService{
		gridErr: &apperrors.UpstreamError{Op: "Routine", Status: 500, Message: "Routine failed (500)"},
	}
	h := NewRoutineHandler(mock, zap.NewNop())
	r := setupRouter(adminState)
	r.GET("/routine/grid", h.Grid)

	w := doJSON(r, http.MethodGet, "/routine/grid", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("后端 5xx 期望 502，实际 %d", w.Code)
	}
}

func TestRoutineHandler_Own_InvalidPageSize(t *testing.T) {
	h := NewRoutineHandler(&mockRoutineService{}, zap.NewNop())
	r := setupRouter(adminState)
	r.GET("/routine/own", h.Own)

	w := doJSON(r, http.MethodGet, "/routine/own?page_size=7", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法每页条数期望 400，实际 %d", w.Code)
	}
}

func TestRoutineHandler_Own_BindsFilters(t *testing.T) {
	mock := &mockRoutineService{ownResult: &dto.OwnRoutineResponse{}}
	h := NewRoutineHandler(mock, zap.NewNop())
	r := setupRouter(adminState)
	r.GET("/routine/own", h.Own)

	w := doJSON(r, http.MethodGet, "/routine/own?day=Sun&type=Lab&page=2&page_size=20&show_all=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	got := mock.ownReq
	if got == nil || got.Day != "Sun" || got.Type != "Lab" || got.Page != 2 || got.PageSize != 20 || !got.ShowAll {
		t.Errorf("查询参数绑定错误: %+v", got)
	}
}

func TestRoutineHandler_Generate_Locked(t *testing.T) {
	mock := &mockRoutineService{generateErr: service.ErrRoutineLocked}
	h := NewRoutineHandler(mock, zap.NewNop())
	r := setupRouter(adminState)
	r.POST("/routine/generate", h.Generate)

	w := doJSON(r, http.MethodPost, "/routine/generate", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("期望 409，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeRoutineLocked {
		t.Errorf("期望业务码 %d，实际 %d", codeRoutineLocked, resp.Code)
	}
}

func TestRoutineHandler_Generate_Success(t *testing.T) {
	h := NewRoutineHandler(&mockRoutineService{}, zap.NewNop())
	r := setupRouter(adminState)
	r.POST("/routine/generate", h.Generate)

	w := doJSON(r, http.MethodPost, "/routine/generate", nil)
	if resp := parseResponse(w); w.Code != http.StatusOK || resp.Message != service.MsgRoutineGenerated {
		t.Errorf("期望生成成功，实际 %d %+v", w.Code, resp)
	}
}

func TestRoutineHandler_Lock(t *testing.T) {
	mock := &mockRoutineService{}
	h := NewRoutineHandler(mock, zap.NewNop())
	r := setupRouter(adminState)
	r.GET("/routine/lock", h.GetLock)
	r.PUT("/routine/lock", h.SetLock)

	if w := doJSON(r, http.MethodPut, "/routine/lock", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("缺少 locked 期望 400，实际 %d", w.Code)
	}
	if w := doJSON(r, http.MethodPut, "/routine/lock", map[string]bool{"locked": true}); w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	w := doJSON(r, http.MethodGet, "/routine/lock", nil)
	if !strings.Contains(w.Body.String(), `"locked":true`) {
		t.Errorf("期望已锁定，实际 %s", w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// ClassOffHandler Tests
// ═══════════════════════════════════════════════════════════

func TestClassOffHandler_MarkOff_Success(t *testing.T) {
	mock := &mockClassOffService{statusResult: &dto.ClassStatusResponse{
		Key:    "2024-05-01|CSE|6th|Wed|T101|10:35",
		Status: "off",
		Notice: dto.SuccessNotice("Networks Lab marked as OFF"),
	}}
	h := NewClassOffHandler(mock, zap.NewNop())
	r := setupRouter(adminState)
	r.POST("/class-off/off", h.MarkOff)

	w := doJSON(r, http.MethodPost, "/class-off/off", map[string]interface{}{"routine_id": 2, "reason": "Sick"})
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Message != "Networks Lab marked as OFF" {
		t.Errorf("提示文案不符: %q", resp.Message)
	}
	if mock.offReq == nil || mock.offReq.RoutineID != 2 || mock.offReq.Reason != "Sick" {
		t.Errorf("请求体绑定错误: %+v", mock.offReq)
	}
}

func TestClassOffHandler_MarkOff_Validation(t *testing.T) {
	h := NewClassOffHandler(&mockClassOffService{statusResult: &dto.ClassStatusResponse{Status: "off"}}, zap.NewNop())
	r := setupRouter(adminState)
	r.POST("/class-off/off", h.MarkOff)

	cases := []map[string]interface{}{
		{"teacher_id": "T101", "start_time": "25:99"},
		{"teacher_id": "T101", "start_time": "10:00", "date": "05/01/2024"},
	}
	for _, body := range cases {
		if w := doJSON(r, http.MethodPost, "/class-off/off", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v 期望 400，实际 %d", body, w.Code)
		}
	}
	if w := doJSON(r, http.MethodPost, "/class-off/off", map[string]interface{}{
		"teacher_id": "T101", "start_time": "10:00:00", "date": "2024-05-01",
	}); w.Code == http.StatusBadRequest {
		t.Errorf("合法时间与日期不应被拒绝: %s", w.Body.String())
	}
}

func TestClassOffHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"无权限", service.ErrForbidden, http.StatusForbidden, codeForbidden},
		{"缺少时段", service.ErrInvalidSlot, http.StatusBadRequest, codeInvalidSlot},
		{"非当天", service.ErrDateNotToday, http.StatusBadRequest, codeInvalidSlot},
		{"课表条目不存在", service.ErrRoutineNotFound, http.StatusNotFound, codeRoutineNotFound},
		{"未登录", apperrors.ErrNoAccessToken, http.StatusUnauthorized, codeUnauth},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewClassOffHandler(&mockClassOffService{statusErr: tt.err}, zap.NewNop())
			r := setupRouter(adminState)
			r.POST("/class-off/on", h.MarkOn)

			w := doJSON(r, http.MethodPost, "/class-off/on", map[string]interface{}{"routine_id": 1})
			if w.Code != tt.status {
				t.Errorf("期望 %d，实际 %d", tt.status, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.code {
				t.Errorf("期望业务码 %d，实际 %d", tt.code, resp.Code)
			}
		})
	}
}

func TestClassOffHandler_Availability(t *testing.T) {
	mock := &mockClassOffService{}
	h := NewClassOffHandler(mock, zap.NewNop())
	r := setupRouter(adminState)
	r.PUT("/availability/:teacher", h.SetAvailability)
	r.POST("/availability/:teacher/toggle", h.ToggleAvailability)
	r.DELETE("/availability", h.ResetAvailability)

	if w := doJSON(r, http.MethodPut, "/availability/T101", map[string]interface{}{}); w.Code != http.StatusBadRequest {
		t.Errorf("缺少 available 期望 400，实际 %d", w.Code)
	}
	doJSON(r, http.MethodPut, "/availability/T101", map[string]bool{"available": false})
	if mock.availability["T101"] {
		t.Error("T101 应为缺勤")
	}
	doJSON(r, http.MethodPost, "/availability/T101/toggle", nil)
	if !mock.availability["T101"] {
		t.Error("切换后 T101 应为出勤")
	}
	w := doJSON(r, http.MethodDelete, "/availability", nil)
	if w.Code != http.StatusOK || len(mock.availability) != 0 {
		t.Errorf("重置后应为空，实际 %v", mock.availability)
	}
}

// ═══════════════════════════════════════════════════════════
// ResourceHandler Tests
// ═══════════════════════════════════════════════════════════

func newDepartmentHandler(api *fakeDepartmentAPI) *DepartmentHandler {
	svc := service.NewResourceService[model.Department](api, service.DepartmentSpec(), 10, zap.NewNop())
	return NewResourceHandler[model.Department, dto.DepartmentRequest, dto.DepartmentRequest](svc, zap.NewNop())
}

func TestResourceHandler_List_Pagination(t *testing.T) {
	api := &fakeDepartmentAPI{items: []model.Department{{ID: 1, Name: "CSE"}, {ID: 2, Name: "EEE"}, {ID: 3, Name: "ME"}}}
	h := newDepartmentHandler(api)
	r := setupRouter(adminState)
	r.GET("/departments", h.List)

	w := doJSON(r, http.MethodGet, "/departments?page=2&page_size=2&sort=name", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	var body struct {
		Data struct {
			List       []model.Department  `json:"list"`
			Pagination response.Pagination `json:"pagination"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if body.Data.Pagination.Total != 3 || body.Data.Pagination.TotalPages != 2 || body.Data.Pagination.Page != 2 {
		t.Errorf("分页不符: %+v", body.Data.Pagination)
	}
	if len(body.Data.List) != 1 || body.Data.List[0].Name != "ME" {
		t.Errorf("第二页期望 [ME]，实际 %+v", body.Data.List)
	}
}

func TestResourceHandler_Create_Reverted(t *testing.T) {
	api := &fakeDepartmentAPI{
		createErr: &apperrors.UpstreamError{Op: "Creation", Status: 400, Message: "name: Name exists"},
	}
	h := newDepartmentHandler(api)
	r := setupRouter(adminState)
	r.POST("/departments", h.Create)

	w := doJSON(r, http.MethodPost, "/departments", dto.DepartmentRequest{Name: "CSE"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != codeMutationReverted || resp.Message != "name: Name exists" {
		t.Errorf("期望回滚提示，实际 %+v", resp)
	}
	if !strings.Contains(w.Body.String(), `"phase":"reverted"`) {
		t.Errorf("期望返回回滚后的列表: %s", w.Body.String())
	}
}

func TestResourceHandler_Create_Success(t *testing.T) {
	h := newDepartmentHandler(&fakeDepartmentAPI{})
	r := setupRouter(adminState)
	r.POST("/departments", h.Create)

	w := doJSON(r, http.MethodPost, "/departments", dto.DepartmentRequest{Name: "EEE"})
	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Message != `Department "EEE" added successfully` {
		t.Errorf("提示文案不符: %q", resp.Message)
	}
}

func TestResourceHandler_InvalidID(t *testing.T) {
	h := newDepartmentHandler(&fakeDepartmentAPI{})
	r := setupRouter(adminState)
	r.DELETE("/departments/:id", h.Delete)

	w := doJSON(r, http.MethodDelete, "/departments/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeInvalidID {
		t.Errorf("期望业务码 %d，实际 %d", codeInvalidID, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_RoutineXLSX(t *testing.T) {
	h := NewExportHandler(&mockExportService{filename: "routine_CSE_6th.xlsx"}, zap.NewNop())
	r := setupRouter(adminState)
	r.GET("/export/routine.xlsx", h.RoutineXLSX)

	w := doJSON(r, http.MethodGet, "/export/routine.xlsx?department=CSE&semester=6th", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type 不符: %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "routine_CSE_6th.xlsx") {
		t.Errorf("Content-Disposition 不符: %q", cd)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("文件内容不符: %q", w.Body.String())
	}
}

func TestExportHandler_NoRoutine(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoRoutine}, zap.NewNop())
	r := setupRouter(adminState)
	r.GET("/export/routine.pdf", h.RoutinePDF)

	w := doJSON(r, http.MethodGet, "/export/routine.pdf", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeExportEmpty {
		t.Errorf("期望业务码 %d，实际 %d", codeExportEmpty, resp.Code)
	}
}

func TestExportHandler_OwnRoutineICS(t *testing.T) {
	h := NewExportHandler(&mockExportService{filename: "T101.ics"}, zap.NewNop())
	r := setupRouter(state.AuthState{IsAuthenticated: true, Username: "T101", Role: state.RoleTeacher})
	r.GET("/export/own-routine.ics", h.OwnRoutineICS)

	w := doJSON(r, http.MethodGet, "/export/own-routine.ics", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar") {
		t.Errorf("期望日历文件，实际 %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}

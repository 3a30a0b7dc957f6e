package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/kvstore"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/state"
	"routine-desk/server/internal/upstream"
)

// ── Mock Backend ──

type mockBackend struct {
	loginResult *upstream.LoginResult
	loginErr    error
	entries     []model.RoutineEntry
	routineErr  error
	generateErr error

	routineCalls  int
	generateCalls int
}

func (m *mockBackend) Login(_ context.Context, _ upstream.LoginRequest) (*upstream.LoginResult, error) {
	return m.loginResult, m.loginErr
}

func (m *mockBackend) Routine(_ context.Context, _ string) ([]model.RoutineEntry, error) {
	m.routineCalls++
	if m.routineErr != nil {
		return nil, m.routineErr
	}
	out := make([]model.RoutineEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *mockBackend) GenerateRoutine(_ context.Context, _ string) error {
	m.generateCalls++
	return m.generateErr
}

// ── Mock ResourceAPI ──

type mockResourceAPI[T any] struct {
	items     []T
	listErr   error
	createErr error
	updateErr error
	deleteErr error

	created   *T
	lastBody  map[string]interface{}
	listCalls int
}

func (m *mockResourceAPI[T]) Name() string { return "Mock" }

func (m *mockResourceAPI[T]) List(_ context.Context, _ string) ([]T, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *mockResourceAPI[T]) Create(_ context.Context, _ string, payload map[string]interface{}) (*T, error) {
	m.lastBody = payload
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.created != nil {
		m.items = append(m.items, *m.created)
	}
	return m.created, nil
}

func (m *mockResourceAPI[T]) Update(_ context.Context, _ string, _ int64, payload map[string]interface{}) (*T, error) {
	m.lastBody = payload
	return nil, m.updateErr
}

func (m *mockResourceAPI[T]) Delete(_ context.Context, _ string, _ int64) error {
	return m.deleteErr
}

// ── 测试夹具 ──

// fixedNow 2024-05-01 是星期三
var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func testRoutineConfig() *config.RoutineConfig {
	return &config.RoutineConfig{
		Timezone:  "UTC",
		Days:      []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday"},
		SlotTimes: []string{"08:45", "09:40", "10:35", "11:30", "12:25", "", "14:00", "14:45", "15:30"},
		PageSizes: []int{5, 10, 20, 50},
		PageSize:  10,
	}
}

func newTestWorkspace() *state.Workspace {
	return state.NewWorkspace(context.Background(), state.Deps{
		Store:  kvstore.NewMemory(),
		Clock:  func() time.Time { return fixedNow },
		Logger: zap.NewNop(),
	})
}

func sampleEntries() []model.RoutineEntry {
	return []model.RoutineEntry{
		{ID: 1, Day: "Sunday", StartTime: "08:45:00", EndTime: "09:35:00", CourseName: "Data Structures", CourseCode: "CSE 3603", TeacherName: "T101", DepartmentName: "CSE", SemesterName: "6th", RoomNumber: "501", Credits: 3},
		{ID: 2, Day: "Wednesday", StartTime: "10:35:00", EndTime: "11:25:00", CourseName: "Networks Lab", CourseCode: "CSE 3604L", TeacherName: "T101", DepartmentName: "CSE", SemesterName: "6th", RoomNumber: "Lab-2", Credits: 1.5},
		{ID: 3, Day: "Monday", StartTime: "14:00:00", EndTime: "14:45:00", CourseName: "Algorithms", CourseCode: "CSE 2201", TeacherName: "Rahim Karim", DepartmentName: "CSE", SemesterName: "4th", RoomNumber: "", Credits: 0},
		{ID: 4, Day: "Tuesday", StartTime: "09:40:00", EndTime: "10:30:00", CourseName: "Circuits", CourseCode: "EEE 1101", TeacherName: "T202", DepartmentName: "EEE", SemesterName: "1st", RoomNumber: "301", Credits: 3},
	}
}

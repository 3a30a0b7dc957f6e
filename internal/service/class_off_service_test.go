package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/state"
)

func setupTestClassOffService() (ClassOffService, *mockBackend, *state.Workspace) {
	backend := &mockBackend{entries: sampleEntries()}
	ws := newTestWorkspace()
	svc := NewClassOffService(testRoutineConfig(), backend, ws, zap.NewNop())
	return svc, backend, ws
}

func TestClassOffService_MarkOff_ByRoutineID(t *testing.T) {
	svc, _, _ := setupTestClassOffService()
	ctx := context.Background()

	resp, err := svc.MarkOff(ctx, "tok", teacherAuth, &dto.MarkOffRequest{
		ClassSlotRequest: dto.ClassSlotRequest{RoutineID: 2},
		Reason:           "Conference",
	})
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if resp.Status != "off" || resp.Reason != "Conference" {
		t.Errorf("状态不符: %+v", resp)
	}
	if resp.Notice.Level != dto.NoticeWarning || resp.Notice.Message != "Networks Lab marked as OFF" {
		t.Errorf("提示不符: %+v", resp.Notice)
	}

	list := svc.List(ctx)
	if list.Count != 1 || list.Entries[0].TeacherID != "T101" || list.Today != "2024-05-01" {
		t.Errorf("当天列表不符: %+v", list)
	}
}

func TestClassOffService_MarkOff_RoutineNotFound(t *testing.T) {
	svc, _, _ := setupTestClassOffService()

	_, err := svc.MarkOff(context.Background(), "tok", teacherAuth, &dto.MarkOffRequest{
		ClassSlotRequest: dto.ClassSlotRequest{RoutineID: 99},
	})
	if !errors.Is(err, ErrRoutineNotFound) {
		t.Errorf("期望 ErrRoutineNotFound，实际: %v", err)
	}
}

func TestClassOffService_MarkOff_ExplicitSlot(t *testing.T) {
	svc, backend, _ := setupTestClassOffService()
	ctx := context.Background()
	slot := dto.ClassSlotRequest{Department: "CSE", Semester: "6th", Day: "Sunday", TeacherID: "T101", StartTime: "8:45"}

	if _, err := svc.MarkOff(ctx, "tok", teacherAuth, &dto.MarkOffRequest{ClassSlotRequest: slot}); !errors.Is(err, ErrForbidden) {
		t.Errorf("教师显式指定课程期望 ErrForbidden，实际: %v", err)
	}

	resp, err := svc.MarkOff(ctx, "tok", adminAuth, &dto.MarkOffRequest{ClassSlotRequest: slot})
	if err != nil {
		t.Fatalf("管理员期望成功，实际错误: %v", err)
	}
	if resp.Key != "2024-05-01|CSE|6th|Sun|T101|08:45" || resp.Reason != state.DefaultReason {
		t.Errorf("键或默认原因不符: %+v", resp)
	}
	if backend.routineCalls != 0 {
		t.Error("显式指定课程不应请求后端")
	}

	missing := slot
	missing.TeacherID = " "
	if _, err := svc.MarkOff(ctx, "tok", adminAuth, &dto.MarkOffRequest{ClassSlotRequest: missing}); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("缺少教师期望 ErrInvalidSlot，实际: %v", err)
	}
}

func TestClassOffService_MarkOff_OnlyToday(t *testing.T) {
	svc, _, ws := setupTestClassOffService()
	ctx := context.Background()

	for _, date := range []string{"2024-05-05", "2024-04-30"} {
		_, err := svc.MarkOff(ctx, "tok", teacherAuth, &dto.MarkOffRequest{
			ClassSlotRequest: dto.ClassSlotRequest{RoutineID: 1, Date: date},
		})
		if !errors.Is(err, ErrDateNotToday) {
			t.Errorf("%s 期望 ErrDateNotToday，实际: %v", date, err)
		}
	}
	if n := len(ws.ClassOff.Snapshot().OffMap); n != 0 {
		t.Errorf("被拒绝的日期不应写入记录，实际 %d 条", n)
	}

	resp, err := svc.MarkOff(ctx, "tok", teacherAuth, &dto.MarkOffRequest{
		ClassSlotRequest: dto.ClassSlotRequest{RoutineID: 1, Date: "2024-05-01"},
	})
	if err != nil {
		t.Fatalf("当天日期期望成功，实际错误: %v", err)
	}
	if resp.Key[:10] != "2024-05-01" || svc.List(ctx).Count != 1 {
		t.Errorf("应记录在当天，实际 %s", resp.Key)
	}

	if _, err := svc.MarkOff(ctx, "tok", teacherAuth, &dto.MarkOffRequest{
		ClassSlotRequest: dto.ClassSlotRequest{RoutineID: 1, Date: "05/05/2024"},
	}); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("日期格式错误期望 ErrInvalidSlot，实际: %v", err)
	}
}

func TestClassOffService_Cleanup_RemovesOtherDays(t *testing.T) {
	svc, _, ws := setupTestClassOffService()
	ctx := context.Background()

	other := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	ws.ClassOff.MarkOff(ctx, state.SlotOf(sampleEntries()[0]), "", &other)
	if svc.List(ctx).Count != 0 {
		t.Error("非当天记录不应出现在当天列表中")
	}
	if got := svc.Cleanup(ctx); got.Removed != 1 || len(ws.ClassOff.Snapshot().OffMap) != 0 {
		t.Errorf("清理应移除非当天记录，实际 %+v", got)
	}
}

func TestClassOffService_MarkOff_OtherTeachersClass(t *testing.T) {
	svc, _, ws := setupTestClassOffService()
	ctx := context.Background()

	// 条目 4 属于 T202
	req := &dto.MarkOffRequest{ClassSlotRequest: dto.ClassSlotRequest{RoutineID: 4}}
	if _, err := svc.MarkOff(ctx, "tok", teacherAuth, req); !errors.Is(err, ErrForbidden) {
		t.Errorf("教师操作他人课程期望 ErrForbidden，实际: %v", err)
	}
	if _, err := svc.MarkOn(ctx, "tok", teacherAuth, &req.ClassSlotRequest); !errors.Is(err, ErrForbidden) {
		t.Errorf("教师恢复他人课程期望 ErrForbidden，实际: %v", err)
	}
	if n := len(ws.ClassOff.Snapshot().OffMap); n != 0 {
		t.Errorf("不应写入记录，实际 %d 条", n)
	}

	if _, err := svc.MarkOff(ctx, "tok", adminAuth, req); err != nil {
		t.Errorf("管理员可操作任意课程，实际错误: %v", err)
	}
}

func TestClassOffService_MarkOn(t *testing.T) {
	svc, _, _ := setupTestClassOffService()
	ctx := context.Background()
	req := dto.ClassSlotRequest{RoutineID: 1}

	if _, err := svc.MarkOff(ctx, "tok", teacherAuth, &dto.MarkOffRequest{ClassSlotRequest: req}); err != nil {
		t.Fatalf("标记停课失败: %v", err)
	}
	resp, err := svc.MarkOn(ctx, "tok", teacherAuth, &req)
	if err != nil {
		t.Fatalf("期望成功，实际错误: %v", err)
	}
	if resp.Status != "on" || resp.Notice.Message != "Data Structures is now ON" {
		t.Errorf("恢复上课结果不符: %+v", resp)
	}

	// 教师缺勤时课程仍为 off
	svc.SetAvailability(ctx, "T101", false)
	resp, _ = svc.MarkOn(ctx, "tok", teacherAuth, &req)
	if resp.Status != "off" || resp.Reason != state.TeacherUnavailableReason || resp.Notice.Level != dto.NoticeWarning {
		t.Errorf("教师缺勤时应仍为 off，实际 %+v", resp)
	}
}

func TestClassOffService_Availability(t *testing.T) {
	svc, _, _ := setupTestClassOffService()
	ctx := context.Background()

	got := svc.ToggleAvailability(ctx, "T101")
	if got.Map["T101"] {
		t.Error("默认出勤，切换后应为缺勤")
	}
	got = svc.ToggleAvailability(ctx, "T101")
	if !got.Map["T101"] {
		t.Error("再次切换应恢复出勤")
	}

	got = svc.BulkAvailability(ctx, map[string]bool{"T202": false, "T303": true})
	if got.Map["T202"] || !got.Map["T303"] {
		t.Errorf("批量设置不符: %v", got.Map)
	}

	got = svc.ResetAvailability(ctx)
	if len(got.Map) != 0 || len(svc.Availability().Map) != 0 {
		t.Errorf("重置后应为空，实际 %v", got.Map)
	}
}

func TestClassOffService_Reset(t *testing.T) {
	svc, _, _ := setupTestClassOffService()
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		req := &dto.MarkOffRequest{ClassSlotRequest: dto.ClassSlotRequest{RoutineID: id}}
		if _, err := svc.MarkOff(ctx, "tok", teacherAuth, req); err != nil {
			t.Fatalf("标记停课失败: %v", err)
		}
	}
	svc.Reset(ctx)
	if svc.List(ctx).Count != 0 {
		t.Error("重置后不应有停课记录")
	}
}

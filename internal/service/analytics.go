package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"routine-desk/server/internal/dto"
	"routine-desk/server/internal/model"
	"routine-desk/server/internal/state"
	"routine-desk/server/internal/table"
)

// 统计模式
const (
	AnalyticsModeStudent = "student"
	AnalyticsModeTeacher = "teacher"
)

const (
	defaultCredits  = 3
	topDistribution = 5
	topRoomUsage    = 8
	unassignedRoom  = "TBA"
)

// ═══════════════════════════════════════════════════════════
// Analytics 按学期（学生视角）或按教师统计
// ═══════════════════════════════════════════════════════════

func (s *routineService) Analytics(ctx context.Context, token string, auth state.AuthState, req *dto.AnalyticsRequest) (*dto.AnalyticsResponse, error) {
	entries, err := s.Entries(ctx, token)
	if err != nil {
		return nil, err
	}

	semesters := table.DistinctFunc(entries, func(e model.RoutineEntry) string { return e.SemesterName }, table.Natural)
	teachers := table.Distinct(entries, func(e model.RoutineEntry) string { return e.TeacherName })

	defaultMode := AnalyticsModeStudent
	if auth.Role == state.RoleTeacher {
		defaultMode = AnalyticsModeTeacher
	}
	mode := req.Mode
	if mode == "" {
		mode = defaultMode
	}

	options := semesters
	if mode == AnalyticsModeTeacher {
		options = teachers
	}
	filter := req.Filter
	if filter == "" || !contains(options, filter) {
		filter = ""
		if mode == defaultMode {
			filter = defaultAnalyticsFilter(auth, semesters, teachers)
		}
		if filter == "" && len(options) > 0 {
			filter = options[0]
		}
	}

	var selected []model.RoutineEntry
	if filter != "" {
		selected = table.Filter(entries, func(e model.RoutineEntry) bool {
			if mode == AnalyticsModeTeacher {
				return e.TeacherName == filter
			}
			return e.SemesterName == filter
		})
	}

	resp := computeAnalytics(selected, s.cfg.Days, len(s.cfg.SlotTimes), mode)
	resp.Mode = mode
	resp.Filter = filter
	resp.Semesters = semesters
	resp.Teachers = teachers
	return resp, nil
}

func defaultAnalyticsFilter(auth state.AuthState, semesters, teachers []string) string {
	switch auth.Role {
	case state.RoleAdmin:
		if len(semesters) > 0 {
			return semesters[0]
		}
	case state.RoleTeacher:
		if contains(teachers, auth.Username) {
			return auth.Username
		}
		if len(teachers) > 0 {
			return teachers[0]
		}
	default:
		if auth.SemesterName != "" {
			return auth.SemesterName
		}
		if len(semesters) > 0 {
			return semesters[0]
		}
	}
	return ""
}

// computeAnalytics 纯计算，便于单独测试
func computeAnalytics(entries []model.RoutineEntry, days []string, slotsPerDay int, mode string) *dto.AnalyticsResponse {
	resp := &dto.AnalyticsResponse{
		PerDay:       make([]dto.DayStat, 0, len(days)),
		Distribution: make([]dto.CountItem, 0),
		RoomUsage:    make([]dto.RoomUsage, 0),
	}

	byDay := make(map[string][]model.RoutineEntry)
	for _, e := range entries {
		d := state.AbbreviateDay(e.Day)
		byDay[d] = append(byDay[d], e)
	}
	for _, day := range days {
		items := byDay[state.AbbreviateDay(day)]
		minutes := 0
		for _, e := range items {
			minutes += clockMinutes(e.EndTime) - clockMinutes(e.StartTime)
		}
		free := slotsPerDay - len(items)
		if free < 0 {
			free = 0
		}
		resp.PerDay = append(resp.PerDay, dto.DayStat{
			Day:     state.AbbreviateDay(day),
			Classes: len(items),
			Free:    free,
			Hours:   math.Round(float64(minutes)/60*10) / 10,
		})
		resp.TotalFree += free
	}
	resp.TotalClasses = len(entries)

	credits := make(map[string]float64)
	var courseOrder []string
	rooms := make(map[string]*dto.RoomUsage)
	var roomOrder []string
	dist := make(map[string]int)
	var distOrder []string

	for _, e := range entries {
		lab := strings.HasSuffix(strings.ToUpper(strings.TrimSpace(e.CourseCode)), "L")
		if lab {
			resp.LabClasses++
		} else {
			resp.TheoryClasses++
		}

		if _, ok := credits[e.CourseCode]; !ok {
			c := float64(e.Credits)
			if c == 0 {
				c = defaultCredits
			}
			credits[e.CourseCode] = c
			courseOrder = append(courseOrder, e.CourseCode)
		}

		room := strings.TrimSpace(e.RoomNumber)
		if room == "" {
			room = unassignedRoom
		}
		ru, ok := rooms[room]
		if !ok {
			ru = &dto.RoomUsage{Name: room}
			rooms[room] = ru
			roomOrder = append(roomOrder, room)
		}
		if lab {
			ru.Lab++
		} else {
			ru.Theory++
		}
		ru.Total++

		key := e.CourseCode
		if mode == AnalyticsModeStudent {
			key = e.TeacherName
		}
		if _, ok := dist[key]; !ok {
			distOrder = append(distOrder, key)
		}
		dist[key]++
	}

	resp.UniqueCourses = len(courseOrder)
	for _, code := range courseOrder {
		resp.Credits += credits[code]
	}

	for _, name := range distOrder {
		resp.Distribution = append(resp.Distribution, dto.CountItem{Name: name, Count: dist[name]})
	}
	sort.SliceStable(resp.Distribution, func(i, j int) bool {
		return resp.Distribution[i].Count > resp.Distribution[j].Count
	})
	if len(resp.Distribution) > topDistribution {
		resp.Distribution = resp.Distribution[:topDistribution]
	}

	for _, name := range roomOrder {
		resp.RoomUsage = append(resp.RoomUsage, *rooms[name])
	}
	sort.SliceStable(resp.RoomUsage, func(i, j int) bool {
		return resp.RoomUsage[i].Total > resp.RoomUsage[j].Total
	})
	if len(resp.RoomUsage) > topRoomUsage {
		resp.RoomUsage = resp.RoomUsage[:topRoomUsage]
	}

	return resp
}

// clockMinutes "HH:MM[:SS]" → 当天分钟数，无法解析时为 0
func clockMinutes(t string) int {
	parts := strings.Split(strings.TrimSpace(t), ":")
	if len(parts) < 2 {
		return 0
	}
	h, m := atoi(parts[0]), atoi(parts[1])
	return h*60 + m
}

func atoi(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// Package state 保存看板的客户端状态：会话身份、教师出勤、停课记录与课表锁。
//
// 每种状态由纯函数 reducer（旧状态 + 动作 → 新状态）定义变化规则，
// 容器负责加锁、应用 reducer 并通过 kvstore 持久化。
package state

import (
	"strings"
	"time"
	"unicode/utf8"

	"routine-desk/server/internal/model"
)

const (
	// DefaultReason 未填写停课原因时的默认值
	DefaultReason = "No reason provided."

	dateLayout   = "2006-01-02"
	keySeparator = "|"
)

// Clock 返回当前时间，时区即课表时区
type Clock func() time.Time

// SystemClock 使用系统时间并转换到指定时区
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// LocalDate 本地日期 YYYY-MM-DD
func LocalDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dateLayout, s, loc)
}

// NormalizeTime 统一为 HH:MM：补齐小时前导零并丢弃秒
// "8:45" → "08:45"，"08:45:00" → "08:45"
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return s
	}
	h := strings.TrimSpace(parts[0])
	m := strings.TrimSpace(parts[1])
	if len(h) == 1 {
		h = "0" + h
	}
	if len(m) > 2 {
		m = m[:2]
	}
	return h + ":" + m
}

// AbbreviateDay 取星期名前三个字母并首字母大写："sunday" → "Sun"
func AbbreviateDay(day string) string {
	day = strings.TrimSpace(day)
	if day == "" {
		return ""
	}
	n := 0
	end := len(day)
	for i := range day {
		if n == 3 {
			end = i
			break
		}
		n++
	}
	abbr := strings.ToLower(day[:end])
	r, size := utf8.DecodeRuneInString(abbr)
	return strings.ToUpper(string(r)) + abbr[size:]
}

// Slot 唯一确定一节课（不含日期）
type Slot struct {
	Department string `json:"department"`
	Semester   string `json:"semester"`
	Day        string `json:"day"`
	TeacherID  string `json:"teacher_id"`
	StartTime  string `json:"start_time"`
}

// SlotOf 从课表条目构造 Slot，教师以 teacher_name 标识
func SlotOf(e model.RoutineEntry) Slot {
	return Slot{
		Department: e.DepartmentName,
		Semester:   e.SemesterName,
		Day:        e.Day,
		TeacherID:  e.TeacherName,
		StartTime:  e.StartTime,
	}
}

// ClassKey 停课记录键：日期|院系|学期|星期|教师|开始时间
type ClassKey struct {
	Date       string `json:"date"`
	Department string `json:"department"`
	Semester   string `json:"semester"`
	Day        string `json:"day"`
	TeacherID  string `json:"teacher_id"`
	StartTime  string `json:"start_time"`
}

// KeyFor 构造规范化的 ClassKey，所有视图都经由此函数生成键
func KeyFor(date string, s Slot) ClassKey {
	return ClassKey{
		Date:       date,
		Department: sanitize(s.Department),
		Semester:   sanitize(s.Semester),
		Day:        AbbreviateDay(s.Day),
		TeacherID:  sanitize(s.TeacherID),
		StartTime:  NormalizeTime(s.StartTime),
	}
}

// Valid 教师与开始时间必填
func (k ClassKey) Valid() bool {
	return k.Date != "" && k.TeacherID != "" && k.StartTime != ""
}

func (k ClassKey) String() string {
	return strings.Join([]string{k.Date, k.Department, k.Semester, k.Day, k.TeacherID, k.StartTime}, keySeparator)
}

// ParseClassKey 解析 String() 的输出
func ParseClassKey(s string) (ClassKey, bool) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 6 {
		return ClassKey{}, false
	}
	if _, err := time.Parse(dateLayout, parts[0]); err != nil {
		return ClassKey{}, false
	}
	k := ClassKey{
		Date:       parts[0],
		Department: parts[1],
		Semester:   parts[2],
		Day:        parts[3],
		TeacherID:  parts[4],
		StartTime:  parts[5],
	}
	return k, k.Valid()
}

// sanitize 去除首尾空白并替换分隔符
func sanitize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), keySeparator, "/")
}

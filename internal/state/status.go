package state

// Status 课程实际状态
type Status string

const (
	StatusOn  Status = "on"
	StatusOff Status = "off"
)

// EffectiveStatus 停课记录存在或教师缺勤时为 off，否则为 on
func EffectiveStatus(classOff ClassOffState, availability AvailabilityState, key ClassKey) Status {
	if _, off := classOff.Lookup(key); off {
		return StatusOff
	}
	if !availability.IsAvailable(key.TeacherID) {
		return StatusOff
	}
	return StatusOn
}

// Resolution 状态及原因
type Resolution struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// TeacherUnavailableReason 教师缺勤导致停课时的原因
const TeacherUnavailableReason = "Teacher unavailable"

// Resolve 与 EffectiveStatus 一致，同时给出原因
func Resolve(classOff ClassOffState, availability AvailabilityState, key ClassKey) Resolution {
	if rec, off := classOff.Lookup(key); off {
		return Resolution{Status: StatusOff, Reason: rec.Reason}
	}
	if !availability.IsAvailable(key.TeacherID) {
		return Resolution{Status: StatusOff, Reason: TeacherUnavailableReason}
	}
	return Resolution{Status: StatusOn}
}

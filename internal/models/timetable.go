package models

import (
	"regexp"
	"time"
)

// Weekday tokens are the canonical English day names produced by
// time.Weekday.String(). They are the single enumeration source shared by
// the schedule validator and the attendance gate; callers must send them
// verbatim.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// ValidWeekday reports whether the token is one of the seven weekday names.
func ValidWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// WeekdayName returns the canonical weekday token for an instant.
func WeekdayName(t time.Time) string {
	return t.Weekday().String()
}

// clockTimePattern accepts zero-padded 24h wall-clock values only. Slot
// times are compared lexicographically, which is correct solely because
// every stored value matches this shape; the format is enforced here, at
// the input boundary.
var clockTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidClockTime reports whether value is a zero-padded "HH:MM" string.
func ValidClockTime(value string) bool {
	return clockTimePattern.MatchString(value)
}

// ClockTimeOf formats an instant as a zero-padded "HH:MM" string.
func ClockTimeOf(t time.Time) string {
	return t.Format("15:04")
}

// LessonSlot is one scheduled occurrence of a subject: one teacher, one
// class, one room, at a fixed weekday and start time. Slots are created and
// deleted by admins and never otherwise mutated.
type LessonSlot struct {
	ID           string    `db:"id" json:"id"`
	DayOfWeek    string    `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	RoomNumber   string    `db:"room_number" json:"room_number"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// LessonSlotView is a slot decorated with display names for listings.
type LessonSlotView struct {
	LessonSlot
	SubjectName    string `db:"subject_name" json:"subject_name"`
	ClassGroupName string `db:"class_group_name" json:"class_group_name"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
}

// LessonSlotFilter describes query params for listing slots.
type LessonSlotFilter struct {
	ClassGroupID string
	TeacherID    string
	DayOfWeek    string
}

// SlotConflict describes the existing slot that blocks a proposed one.
type SlotConflict struct {
	SlotID       string `json:"slot_id"`
	DayOfWeek    string `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	RoomNumber   string `json:"room_number"`
	ClassGroupID string `json:"class_group_id"`
	TeacherID    string `json:"teacher_id"`
	Dimension    string `json:"dimension"`
}

// SlotConflictError is returned when a proposed slot collides with an
// existing one on room, teacher or class.
type SlotConflictError struct {
	Dimension string       `json:"dimension"`
	Message   string       `json:"message"`
	Conflict  SlotConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

package models

import "time"

// AttendanceStatus represents the status for attendance marks.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	default:
		return false
	}
}

// AttendanceMark is a student's status for one calendar day. The natural key
// is (student_id, date): marking the same student twice on a day overwrites
// the status instead of adding a row.
type AttendanceMark struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listing.
type AttendanceFilter struct {
	ClassGroupID string
	Date         *time.Time
}

// AttendanceRangeCounts aggregates absences and lates for one student over a
// date range.
type AttendanceRangeCounts struct {
	StudentID string `db:"student_id" json:"student_id"`
	Absent    int    `db:"absent" json:"absent"`
	Late      int    `db:"late" json:"late"`
}

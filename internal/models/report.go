package models

import "time"

// ReportType selects which per-class report is built.
type ReportType string

const (
	ReportGrades     ReportType = "grades"
	ReportAttendance ReportType = "attendance"
)

// Valid reports whether the report type is supported.
func (t ReportType) Valid() bool {
	return t == ReportGrades || t == ReportAttendance
}

// GradeReportRow summarises one student's grades over a date range.
type GradeReportRow struct {
	StudentID string  `json:"student_id"`
	FullName  string  `json:"full_name"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}

// GradeRangeStats is the aggregate the repository returns per student.
type GradeRangeStats struct {
	StudentID string  `db:"student_id"`
	Average   float64 `db:"average"`
	Count     int     `db:"count"`
}

// AttendanceReportRow summarises one student's absences over a date range.
type AttendanceReportRow struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Absent    int    `json:"absent"`
	Late      int    `json:"late"`
}

// ClassReport is the JSON report view for a class and date range.
type ClassReport struct {
	ClassGroupID   string                `json:"class_group_id"`
	ClassGroupName string                `json:"class_group_name"`
	Type           ReportType            `json:"type"`
	StartDate      time.Time             `json:"start_date"`
	EndDate        time.Time             `json:"end_date"`
	Grades         []GradeReportRow      `json:"grades,omitempty"`
	Attendance     []AttendanceReportRow `json:"attendance,omitempty"`
}

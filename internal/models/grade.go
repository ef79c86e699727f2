package models

import "time"

// GradeEntry is a daily grade. Natural key (student_id, subject_id, date);
// writing the same key again overwrites the value.
type GradeEntry struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Date      time.Time `db:"date" json:"date"`
	Value     int       `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FinalGradeEntry is a period grade ("Q1", "Q2", "YEAR"). Natural key
// (student_id, subject_id, period_name); upsert semantics as GradeEntry.
type FinalGradeEntry struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	PeriodName string    `db:"period_name" json:"period_name"`
	Value      int       `db:"value" json:"value"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// GradeMatrixRow is one student's line in the class gradebook matrix.
type GradeMatrixRow struct {
	StudentID  string         `json:"student_id"`
	FullName   string         `json:"full_name"`
	Grades     map[string]int `json:"grades"`
	Average    float64        `json:"average"`
	FinalGrade *int           `json:"final_grade"`
}

// GradeMatrix is the gradebook for a class+subject: date column headers plus
// one row per student.
type GradeMatrix struct {
	Dates    []string         `json:"dates"`
	Students []GradeMatrixRow `json:"students"`
}

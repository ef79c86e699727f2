package models

import "time"

// ClassGroup is a named class roster, e.g. "9-B".
type ClassGroup struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject is a taught discipline, e.g. "Mathematics".
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Student belongs to exactly one class group.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StudentFilter scopes student listing.
type StudentFilter struct {
	ClassGroupID string
}

// BellPeriod is one entry of the school bell schedule: lesson N runs
// start..end. Orders are unique.
type BellPeriod struct {
	ID        string `db:"id" json:"id"`
	Order     int    `db:"lesson_order" json:"order"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

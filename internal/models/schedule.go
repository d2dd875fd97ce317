package models

import "time"

// Schedule is a named time slot ("shift") students can be assigned to.
type Schedule struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleWithStudents groups a schedule with its assigned students.
type ScheduleWithStudents struct {
	Schedule
	Students []Student `json:"students"`
}

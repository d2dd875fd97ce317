package models

import "time"

// MembershipStatus is the status persisted on a student record.
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipExpired MembershipStatus = "expired"
)

// StatusFilterAll disables the status predicate on filtered lists.
const StatusFilterAll = "all"

// Valid reports whether the status may be stored.
func (s MembershipStatus) Valid() bool {
	return s == MembershipActive || s == MembershipExpired
}

// Student represents a member with an optional shift assignment.
type Student struct {
	ID              int64            `db:"id" json:"id"`
	Name            string           `db:"name" json:"name"`
	Email           string           `db:"email" json:"email"`
	Phone           string           `db:"phone" json:"phone"`
	MembershipStart Date             `db:"membership_start" json:"membership_start"`
	MembershipEnd   Date             `db:"membership_end" json:"membership_end"`
	ShiftID         *int64           `db:"shift_id" json:"shift_id"`
	Status          MembershipStatus `db:"status" json:"status"`
	DerivedStatus   DerivedStatus    `db:"-" json:"derived_status,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentDetail carries the student with its joined shift information.
type StudentDetail struct {
	Student
	ShiftTitle       *string `db:"shift_title" json:"shift_title"`
	ShiftDescription *string `db:"shift_description" json:"shift_description"`
}

// StudentFilter narrows a shift roster. Search matches name or phone;
// Status equal to StatusFilterAll or empty is ignored.
type StudentFilter struct {
	ShiftID int64
	Search  string
	Status  string
}

// DashboardCounts holds the stored-status aggregates.
type DashboardCounts struct {
	Total   int `db:"total"`
	Active  int `db:"active"`
	Expired int `db:"expired"`
}

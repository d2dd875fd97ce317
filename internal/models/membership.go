package models

import "time"

// DerivedStatus is the read-path status computed from dates. It is never
// persisted.
type DerivedStatus string

const (
	DerivedActive       DerivedStatus = "active"
	DerivedExpiringSoon DerivedStatus = "expiring_soon"
	DerivedExpired      DerivedStatus = "expired"
)

// Today returns the calendar day of now in UTC.
func Today(now time.Time) Date {
	return DateOf(now.UTC())
}

// ExpiryThreshold is the last day that still counts as "expiring soon" for a
// lookahead window of windowDays.
func ExpiryThreshold(today Date, windowDays int) Date {
	return today.AddDays(windowDays)
}

// HasLapsed reports whether the membership window [start, end) is over.
func HasLapsed(end Date, today Date) bool {
	return !end.After(today)
}

// IsExpiringSoon reports whether a stored-active membership ends after today
// and on or before today+windowDays.
func IsExpiringSoon(status MembershipStatus, end Date, today Date, windowDays int) bool {
	if status != MembershipActive {
		return false
	}
	return end.After(today) && !end.After(ExpiryThreshold(today, windowDays))
}

// DeriveStatus classifies a membership. An explicit expired status or a
// lapsed end date wins over the stored active status.
func DeriveStatus(status MembershipStatus, end Date, today Date, windowDays int) DerivedStatus {
	switch {
	case status == MembershipExpired, HasLapsed(end, today):
		return DerivedExpired
	case IsExpiringSoon(status, end, today, windowDays):
		return DerivedExpiringSoon
	default:
		return DerivedActive
	}
}

// WithDerivedStatus returns a copy of the student with DerivedStatus filled.
func (s Student) WithDerivedStatus(today Date, windowDays int) Student {
	s.DerivedStatus = DeriveStatus(s.Status, s.MembershipEnd, today, windowDays)
	return s
}

// FilterExpiringSoon keeps the students whose derived status is expiring
// soon, preserving order.
func FilterExpiringSoon(students []Student, today Date, windowDays int) []Student {
	out := make([]Student, 0, len(students))
	for _, student := range students {
		if HasLapsed(student.MembershipEnd, today) {
			continue
		}
		if IsExpiringSoon(student.Status, student.MembershipEnd, today, windowDays) {
			out = append(out, student.WithDerivedStatus(today, windowDays))
		}
	}
	return out
}

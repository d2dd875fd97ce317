package dto

import "github.com/noah-isme/membership-api/internal/models"

// ScheduleListResponse wraps schedule lists.
type ScheduleListResponse struct {
	Schedules []models.Schedule `json:"schedules"`
}

// ScheduleRosterResponse lists schedules with their assigned students.
type ScheduleRosterResponse struct {
	Schedules []models.ScheduleWithStudents `json:"schedules"`
}

// ScheduleMutationResponse is returned by schedule deletes.
type ScheduleMutationResponse struct {
	Message  string          `json:"message"`
	Schedule models.Schedule `json:"schedule"`
}

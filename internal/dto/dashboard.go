package dto

// DashboardStatsResponse is the admin dashboard summary. Counts use the stored
// status only.
type DashboardStatsResponse struct {
	TotalStudents      int `json:"totalStudents"`
	ActiveStudents     int `json:"activeStudents"`
	ExpiredMemberships int `json:"expiredMemberships"`
}

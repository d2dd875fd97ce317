package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Student mirrors the API student payload.
type Student struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	MembershipStart  string    `json:"membership_start"`
	MembershipEnd    string    `json:"membership_end"`
	ShiftID          *int64    `json:"shift_id"`
	Status           string    `json:"status"`
	DerivedStatus    string    `json:"derived_status"`
	ShiftTitle       *string   `json:"shift_title,omitempty"`
	ShiftDescription *string   `json:"shift_description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StudentInput is the create payload.
type StudentInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	MembershipStart string `json:"membership_start"`
	MembershipEnd   string `json:"membership_end"`
	ShiftID         *int64 `json:"shift_id,omitempty"`
}

// StudentPatch is a partial update; nil fields are not sent.
type StudentPatch struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	MembershipStart *string `json:"membership_start,omitempty"`
	MembershipEnd   *string `json:"membership_end,omitempty"`
	ShiftID         *int64  `json:"shift_id,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// Schedule mirrors a shift.
type Schedule struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Students    []Student `json:"students,omitempty"`
}

// DashboardStats mirrors the dashboard totals.
type DashboardStats struct {
	TotalStudents      int `json:"totalStudents"`
	ActiveStudents     int `json:"activeStudents"`
	ExpiredMemberships int `json:"expiredMemberships"`
}

// Pagination is the page metadata returned with paged lists.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	Limit      int  `json:"limit"`
	ViewAll    bool `json:"view_all"`
}

// PageOptions selects a page or a truncated prefix. Zero values are omitted.
type PageOptions struct {
	Page     int
	PageSize int
	Limit    int
}

// StudentPage is one page of students. Pagination is nil when the full list
// was returned.
type StudentPage struct {
	Students   []Student
	Pagination *Pagination
}

type studentList struct {
	Students []Student `json:"students"`
}

type studentMutation struct {
	Message string  `json:"message"`
	Student Student `json:"student"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

// Students lists every student.
func (c *Client) Students(ctx context.Context, page PageOptions) (*StudentPage, error) {
	return c.studentList(ctx, "/students", pageQuery(page))
}

// ActiveStudents lists students whose stored status is active.
func (c *Client) ActiveStudents(ctx context.Context, page PageOptions) (*StudentPage, error) {
	return c.studentList(ctx, "/students/active", pageQuery(page))
}

// ExpiredStudents lists students whose stored status is expired.
func (c *Client) ExpiredStudents(ctx context.Context, page PageOptions) (*StudentPage, error) {
	return c.studentList(ctx, "/students/expired", pageQuery(page))
}

// ExpiringSoon lists memberships ending within days (0 uses the server
// default).
func (c *Client) ExpiringSoon(ctx context.Context, days int, page PageOptions) (*StudentPage, error) {
	q := pageQuery(page)
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	return c.studentList(ctx, "/students/expiring-soon", q)
}

// StudentsByShift lists a shift roster filtered by search text and status.
func (c *Client) StudentsByShift(ctx context.Context, shiftID int64, search, status string, page PageOptions) (*StudentPage, error) {
	q := pageQuery(page)
	if search != "" {
		q.Set("search", search)
	}
	if status != "" {
		q.Set("status", status)
	}
	return c.studentList(ctx, "/students/shift/"+strconv.FormatInt(shiftID, 10), q)
}

func (c *Client) studentList(ctx context.Context, path string, q url.Values) (*StudentPage, error) {
	var out studentList
	env, err := c.do(ctx, http.MethodGet, path, q, nil, &out)
	if err != nil {
		return nil, err
	}
	return &StudentPage{Students: out.Students, Pagination: env.Pagination}, nil
}

// Student fetches one student with its shift details.
func (c *Client) Student(ctx context.Context, id int64) (*Student, error) {
	var out Student
	if _, err := c.do(ctx, http.MethodGet, studentPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStudent creates a student.
func (c *Client) CreateStudent(ctx context.Context, in StudentInput) (*Student, error) {
	var out Student
	if _, err := c.do(ctx, http.MethodPost, "/students", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStudent applies a partial update.
func (c *Client) UpdateStudent(ctx context.Context, id int64, patch StudentPatch) (*Student, error) {
	var out Student
	if _, err := c.do(ctx, http.MethodPut, studentPath(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteStudent deletes a student and returns the removed record.
func (c *Client) DeleteStudent(ctx context.Context, id int64) (*Student, error) {
	var out studentMutation
	if _, err := c.do(ctx, http.MethodDelete, studentPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Student, nil
}

// RenewMembership sets a new membership window.
func (c *Client) RenewMembership(ctx context.Context, id int64, start, end string) (*Student, error) {
	var out studentMutation
	body := map[string]string{"membership_start": start, "membership_end": end}
	if _, err := c.do(ctx, http.MethodPost, studentPath(id)+"/renew", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Student, nil
}

// DashboardStats returns the membership totals.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if _, err := c.do(ctx, http.MethodGet, "/students/stats/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Schedules lists shifts, with their rosters when withStudents is set.
func (c *Client) Schedules(ctx context.Context, withStudents bool) ([]Schedule, error) {
	path := "/schedules"
	if withStudents {
		path += "/with-students"
	}
	var out struct {
		Schedules []Schedule `json:"schedules"`
	}
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Schedules, nil
}

func studentPath(id int64) string {
	return "/students/" + strconv.FormatInt(id, 10)
}

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/membership-api/internal/dto"
	"github.com/noah-isme/membership-api/internal/models"
	"github.com/noah-isme/membership-api/internal/service"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
	"github.com/noah-isme/membership-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context) ([]models.Student, error)
	ListActive(ctx context.Context) ([]models.Student, error)
	ListExpired(ctx context.Context) ([]models.Student, error)
	ListExpiringSoon(ctx context.Context, days int) ([]models.Student, error)
	ListByShift(ctx context.Context, rawShiftID, search, status string) ([]models.Student, error)
	Get(ctx context.Context, rawID string) (*models.StudentDetail, error)
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.Student, error)
	Update(ctx context.Context, rawID string, req service.UpdateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, rawID string) (*models.Student, error)
	Renew(ctx context.Context, rawID string, req service.RenewMembershipRequest) (*models.Student, error)
}

type studentExporter interface {
	ExportStudents(ctx context.Context, req service.StudentExportRequest) (*service.ExportFile, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
	exports  studentExporter
	cfg      listConfig
}

// NewStudentHandler constructs StudentHandler. exports may be nil when the
// export endpoint is disabled.
func NewStudentHandler(students studentService, exports studentExporter, defaultPageSize, maxPageSize int) *StudentHandler {
	return &StudentHandler{
		students: students,
		exports:  exports,
		cfg:      listConfig{DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize},
	}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param limit query int false "Truncate to the first N records"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	h.respondList(c, h.students.List)
}

// Active godoc
// @Summary List students with an active stored status
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/active [get]
func (h *StudentHandler) Active(c *gin.Context) {
	h.respondList(c, h.students.ListActive)
}

// Expired godoc
// @Summary List students with an expired stored status
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/expired [get]
func (h *StudentHandler) Expired(c *gin.Context) {
	h.respondList(c, h.students.ListExpired)
}

// ExpiringSoon godoc
// @Summary List memberships ending within the window
// @Tags Students
// @Produce json
// @Param days query int false "Window in days, defaults to the configured window"
// @Param limit query int false "Truncate to the first N records"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/expiring-soon [get]
func (h *StudentHandler) ExpiringSoon(c *gin.Context) {
	days := 0
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Validation("days must be a positive integer"))
			return
		}
		days = parsed
	}
	h.respondList(c, func(ctx context.Context) ([]models.Student, error) {
		return h.students.ListExpiringSoon(ctx, days)
	})
}

// ByShift godoc
// @Summary List students assigned to a shift
// @Tags Students
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Param search query string false "Case-insensitive match on name or phone"
// @Param status query string false "active, expired or all"
// @Success 200 {object} response.Envelope
// @Router /students/shift/{shiftId} [get]
func (h *StudentHandler) ByShift(c *gin.Context) {
	h.respondList(c, func(ctx context.Context) ([]models.Student, error) {
		return h.students.ListByShift(ctx, c.Param("shiftId"), c.Query("search"), c.Query("status"))
	})
}

func (h *StudentHandler) respondList(c *gin.Context, load func(ctx context.Context) ([]models.Student, error)) {
	students, err := load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	page, meta, err := paginate(c, students, h.cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StudentListResponse{Students: page}, meta)
}

// Get godoc
// @Summary Get student detail with shift information
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, bindError(err, service.MsgPhoneRequired))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, bindError(err, service.MsgPhoneIfProvided))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	student, err := h.students.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StudentMutationResponse{Message: service.MsgStudentDeleted, Student: *student}, nil)
}

// Renew godoc
// @Summary Renew a membership
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.RenewMembershipRequest true "New membership window"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/renew [post]
func (h *StudentHandler) Renew(c *gin.Context) {
	var req service.RenewMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(service.MsgRenewDatesRequired))
		return
	}
	student, err := h.students.Renew(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StudentMutationResponse{Message: service.MsgMembershipRenewed, Student: *student}, nil)
}

// Export godoc
// @Summary Export students as csv, xlsx or pdf
// @Tags Students
// @Produce octet-stream
// @Param format query string false "csv (default), xlsx or pdf"
// @Param shift_id query string false "Restrict to a shift"
// @Param search query string false "Name or phone match, with shift_id"
// @Param status query string false "active, expired or all, with shift_id"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	file, err := h.exports.ExportStudents(c.Request.Context(), service.StudentExportRequest{
		Format:  c.Query("format"),
		ShiftID: c.Query("shift_id"),
		Search:  c.Query("search"),
		Status:  c.Query("status"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Package httpapi exposes the service over HTTP with gin.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"course_followup_service/internal/app"
	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/notification"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// The handler depends on these narrow views of the app services.

type NotificationAPI interface {
	RunDailyScan(ctx context.Context, now time.Time) (*app.DailySummary, error)
	SendCheckpoint(ctx context.Context, req app.CheckpointSend) (notification.Outcome, error)
}

type AdminAPI interface {
	FinishCourse(ctx context.Context, courseID, courseTitle string) (*app.FinishResult, error)
}

type EnrollmentAPI interface {
	RegisterWithKey(ctx context.Context, traineeID, courseID, key string) (app.RegisterResult, error)
	RegenerateKey(ctx context.Context, courseID string) (string, error)
}

type ReportAPI interface {
	Completion(ctx context.Context, courseID string, q app.CompletionQuery) (*app.CompletionReport, error)
	ExportXLSX(ctx context.Context, courseID string) (*bytes.Buffer, string, error)
}

type Handler struct {
	notifications NotificationAPI
	admin         AdminAPI
	enrollment    EnrollmentAPI
	reports       ReportAPI
	now           func() time.Time
	logger        *logrus.Entry
}

func NewHandler(n NotificationAPI, a AdminAPI, e EnrollmentAPI, r ReportAPI, logger *logrus.Entry) *Handler {
	return &Handler{
		notifications: n,
		admin:         a,
		enrollment:    e,
		reports:       r,
		now:           time.Now,
		logger:        logger.WithField("component", "http_api"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// statusFor maps application errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrMissingFields), errors.Is(err, course.ErrInvalidCheckpoint):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrInvalidRegistrationKey):
		return http.StatusForbidden
	case errors.Is(err, course.ErrCourseNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error, fields logrus.Fields) {
	status := statusFor(err)
	entry := h.logger.WithError(err).WithFields(fields)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	_ = c.Error(err)
	abortError(c, status, err.Error())
}

// Notify runs the daily checkpoint scan.
// POST|GET /api/cron/notify
func (h *Handler) Notify(c *gin.Context) {
	summary, err := h.notifications.RunDailyScan(c.Request.Context(), h.now())
	if err != nil {
		h.fail(c, err, logrus.Fields{"route": "cron_notify"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type finishRequest struct {
	CourseID    string `json:"courseId"`
	CourseTitle string `json:"courseTitle"`
}

// FinishCourse is the manual trigger.
// POST /api/courses/finish
func (h *Handler) FinishCourse(c *gin.Context) {
	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID == "" || req.CourseTitle == "" {
		abortError(c, http.StatusBadRequest, app.ErrMissingFields.Error())
		return
	}

	res, err := h.admin.FinishCourse(c.Request.Context(), req.CourseID, req.CourseTitle)
	if err != nil {
		h.fail(c, err, logrus.Fields{"course_id": req.CourseID, "course_title": req.CourseTitle})
		return
	}
	success := res.AlreadyFinished || (res.Notification != nil && res.Notification.Status != notification.StatusFailed)
	c.JSON(http.StatusOK, gin.H{"success": success, "result": res})
}

// SendCheckpoint dispatches one checkpoint on operator request.
// POST /api/notifications/checkpoint
func (h *Handler) SendCheckpoint(c *gin.Context) {
	var req app.CheckpointSend
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.notifications.SendCheckpoint(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, logrus.Fields{"course_id": req.CourseID, "checkpoint": req.Checkpoint})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": outcome.Status == notification.StatusSent, "result": outcome})
}

// RegenerateKey replaces the course registration key.
// POST /api/courses/:id/registration-key
func (h *Handler) RegenerateKey(c *gin.Context) {
	courseID := c.Param("id")
	key, err := h.enrollment.RegenerateKey(c.Request.Context(), courseID)
	if err != nil {
		h.fail(c, err, logrus.Fields{"course_id": courseID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courseId": courseID, "registrationKey": key})
}

type registerRequest struct {
	TraineeID       string `json:"traineeId"`
	RegistrationKey string `json:"registrationKey"`
}

// Register validates the key and enrolls the trainee.
// POST /api/courses/:id/registrations
func (h *Handler) Register(c *gin.Context) {
	courseID := c.Param("id")
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.enrollment.RegisterWithKey(c.Request.Context(), req.TraineeID, courseID, req.RegistrationKey)
	if err != nil {
		h.fail(c, err, logrus.Fields{"course_id": courseID, "trainee_id": req.TraineeID})
		return
	}
	status := http.StatusCreated
	if result == app.ResultAlreadyRegistered {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"result": result})
}

// Completion returns the filtered completion matrix.
// GET /api/courses/:id/completion?q=&class=&sort=
func (h *Handler) Completion(c *gin.Context) {
	courseID := c.Param("id")
	report, err := h.reports.Completion(c.Request.Context(), courseID, app.CompletionQuery{
		Search: c.Query("q"),
		Class:  c.Query("class"),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		h.fail(c, err, logrus.Fields{"course_id": courseID})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportCompletion downloads the completion workbook.
// GET /api/courses/:id/completion/export
func (h *Handler) ExportCompletion(c *gin.Context) {
	courseID := c.Param("id")
	buf, filename, err := h.reports.ExportXLSX(c.Request.Context(), courseID)
	if err != nil {
		h.fail(c, err, logrus.Fields{"course_id": courseID})
		return
	}
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

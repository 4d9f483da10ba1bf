package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/academyhq/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProgressService is the interface that wraps methods for progress business logic.
type ProgressService interface {
	// UpdateProgress marks a lesson completed for a user and recomputes the
	// course completion percentage over the currently accessible lessons.
	UpdateProgress(ctx context.Context, userID, courseID, lessonID int) (*models.CourseProgress, error)
	// SaveCourseProgress replaces a user's completed set in bulk, dropping
	// unknown and locked lessons before persisting.
	SaveCourseProgress(ctx context.Context, userID, courseID int, completedIDs []int, lastLessonID *int) (*models.CourseProgress, error)
	// RecordLessonProgressTick records one playback report and returns the
	// merged snapshot.
	RecordLessonProgressTick(ctx context.Context, userID, lessonID int, req *models.RecordTickRequest) (*models.LessonProgressSnapshot, error)
	// GetLessonProgressSnapshot returns the current playback state of a
	// lesson, zero-valued when nothing was recorded.
	GetLessonProgressSnapshot(ctx context.Context, userID, lessonID int) (*models.LessonProgressSnapshot, error)
	// GetCourseProgress returns a user's course progress, zero-valued when
	// no record exists yet.
	GetCourseProgress(ctx context.Context, userID, courseID int) (*models.CourseProgress, error)
	// GetCourseOutline returns the course tree annotated with per-lesson
	// access and completion flags.
	GetCourseOutline(ctx context.Context, userID, courseID int) (*models.CourseOutline, error)
}

// ProgressHandler handles HTTP requests for course and lesson progress
type ProgressHandler struct {
	BaseHandler
	service ProgressService
	authMw  func(http.Handler) http.Handler
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(svc ProgressService, logger *zap.Logger, authMw func(http.Handler) http.Handler) *ProgressHandler {
	return &ProgressHandler{
		service:     svc,
		BaseHandler: BaseHandler{logger: logger},
		authMw:      authMw,
	}
}

// RegisterRoutes registers all progress handler routes. The router is
// expected to be mounted at the API version prefix.
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authMw)
		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Get("/outline", h.GetOutline)
			r.Get("/progress", h.GetCourseProgress)
			r.Put("/progress", h.SaveCourseProgress)
			r.Post("/lessons/{lessonID}/complete", h.CompleteLesson)
		})
		r.Route("/lessons/{lessonID}/progress", func(r chi.Router) {
			r.Get("/", h.GetLessonProgress)
			r.Post("/ticks", h.RecordTick)
		})
	})
}

// CompleteLesson handles POST /api/v1/courses/{courseID}/lessons/{lessonID}/complete
// @Summary Mark a lesson completed
// @Description Mark a lesson completed and recompute the course percentage
// @Tags progress
// @Accept json
// @Produce json
// @Param courseID path int true "Course ID"
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} models.CourseProgress
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/courses/{courseID}/lessons/{lessonID}/complete [post]
func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.userAndCourse(w, r)
	if !ok {
		return
	}
	lessonID, err := strconv.Atoi(chi.URLParam(r, "lessonID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	progress, err := h.service.UpdateProgress(r.Context(), userID, courseID, lessonID)
	if err != nil {
		h.respondDomainError(w, err, "failed to update progress")
		return
	}

	h.respondJSON(w, http.StatusOK, progress)
}

// SaveCourseProgress handles PUT /api/v1/courses/{courseID}/progress
// @Summary Save course progress in bulk
// @Description Replace the completed lesson set; unknown and locked lessons are dropped
// @Tags progress
// @Accept json
// @Produce json
// @Param courseID path int true "Course ID"
// @Param request body models.SaveCourseProgressRequest true "Completed lesson IDs"
// @Success 200 {object} models.CourseProgress
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/courses/{courseID}/progress [put]
func (h *ProgressHandler) SaveCourseProgress(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.userAndCourse(w, r)
	if !ok {
		return
	}

	var req models.SaveCourseProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	progress, err := h.service.SaveCourseProgress(r.Context(), userID, courseID, req.CompletedLessonIDs, req.LastLessonID)
	if err != nil {
		h.respondDomainError(w, err, "failed to save progress")
		return
	}

	h.respondJSON(w, http.StatusOK, progress)
}

// GetCourseProgress handles GET /api/v1/courses/{courseID}/progress
// @Summary Get course progress
// @Description Get a user's completion state for a course
// @Tags progress
// @Produce json
// @Param courseID path int true "Course ID"
// @Success 200 {object} models.CourseProgress
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/courses/{courseID}/progress [get]
func (h *ProgressHandler) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.userAndCourse(w, r)
	if !ok {
		return
	}

	progress, err := h.service.GetCourseProgress(r.Context(), userID, courseID)
	if err != nil {
		h.respondDomainError(w, err, "failed to get progress")
		return
	}

	h.respondJSON(w, http.StatusOK, progress)
}

// GetOutline handles GET /api/v1/courses/{courseID}/outline
// @Summary Get course outline
// @Description Get the course tree annotated with access and completion flags
// @Tags progress
// @Produce json
// @Param courseID path int true "Course ID"
// @Success 200 {object} models.CourseOutline
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/courses/{courseID}/outline [get]
func (h *ProgressHandler) GetOutline(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.userAndCourse(w, r)
	if !ok {
		return
	}

	outline, err := h.service.GetCourseOutline(r.Context(), userID, courseID)
	if err != nil {
		h.respondDomainError(w, err, "failed to get outline")
		return
	}

	h.respondJSON(w, http.StatusOK, outline)
}

// RecordTick handles POST /api/v1/lessons/{lessonID}/progress/ticks
// @Summary Record a playback tick
// @Description Record one playback progress report and return the merged snapshot
// @Tags progress
// @Accept json
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Param request body models.RecordTickRequest true "Playback report"
// @Success 200 {object} models.LessonProgressSnapshot
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/progress/ticks [post]
func (h *ProgressHandler) RecordTick(w http.ResponseWriter, r *http.Request) {
	userID, lessonID, ok := h.userAndLesson(w, r)
	if !ok {
		return
	}

	var req models.RecordTickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := h.service.RecordLessonProgressTick(r.Context(), userID, lessonID, &req)
	if err != nil {
		h.respondDomainError(w, err, "failed to record tick")
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

// GetLessonProgress handles GET /api/v1/lessons/{lessonID}/progress
// @Summary Get lesson playback state
// @Description Get the merged playback snapshot of a lesson
// @Tags progress
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} models.LessonProgressSnapshot
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/progress [get]
func (h *ProgressHandler) GetLessonProgress(w http.ResponseWriter, r *http.Request) {
	userID, lessonID, ok := h.userAndLesson(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.GetLessonProgressSnapshot(r.Context(), userID, lessonID)
	if err != nil {
		h.respondDomainError(w, err, "failed to get lesson progress")
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

// userAndCourse extracts the authenticated user and the courseID path param
func (h *ProgressHandler) userAndCourse(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	userID, ok := userFromContext(w, r)
	if !ok {
		return 0, 0, false
	}
	courseID, err := strconv.Atoi(chi.URLParam(r, "courseID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid course id")
		return 0, 0, false
	}
	return userID, courseID, true
}

// userAndLesson extracts the authenticated user and the lessonID path param
func (h *ProgressHandler) userAndLesson(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	userID, ok := userFromContext(w, r)
	if !ok {
		return 0, 0, false
	}
	lessonID, err := strconv.Atoi(chi.URLParam(r, "lessonID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return 0, 0, false
	}
	return userID, lessonID, true
}

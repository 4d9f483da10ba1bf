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

// RatingService is the interface that wraps methods for lesson rating business logic.
type RatingService interface {
	// RateLesson records or replaces a user's 1..5 rating of an accessible
	// lesson.
	RateLesson(ctx context.Context, userID, lessonID, rating int) (*models.LessonRating, error)
	// GetRating returns a user's rating of a lesson, nil when none exists.
	GetRating(ctx context.Context, userID, lessonID int) (*models.LessonRating, error)
	// GetRatingSummary returns the aggregate rating of a lesson.
	GetRatingSummary(ctx context.Context, lessonID int) (*models.LessonRatingSummary, error)
	// DeleteRating removes a user's rating of a lesson.
	DeleteRating(ctx context.Context, userID, lessonID int) error
}

// RatingHandler handles HTTP requests for lesson ratings
type RatingHandler struct {
	BaseHandler
	service RatingService
	authMw  func(http.Handler) http.Handler
}

// NewRatingHandler creates a new rating handler
func NewRatingHandler(svc RatingService, logger *zap.Logger, authMw func(http.Handler) http.Handler) *RatingHandler {
	return &RatingHandler{
		service:     svc,
		BaseHandler: BaseHandler{logger: logger},
		authMw:      authMw,
	}
}

// RegisterRoutes registers all rating handler routes. The router is
// expected to be mounted at the API version prefix.
func (h *RatingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/lessons/{lessonID}/rating", func(r chi.Router) {
		r.Use(h.authMw)
		r.Get("/", h.GetRating)
		r.Put("/", h.RateLesson)
		r.Delete("/", h.DeleteRating)
		r.Get("/summary", h.GetSummary)
	})
}

// RateLesson handles PUT /api/v1/lessons/{lessonID}/rating
// @Summary Rate a lesson
// @Description Record or replace a 1..5 rating of an accessible lesson
// @Tags ratings
// @Accept json
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Param request body models.RateLessonRequest true "Rating value"
// @Success 200 {object} models.LessonRating
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/rating [put]
func (h *RatingHandler) RateLesson(w http.ResponseWriter, r *http.Request) {
	userID, lessonID, ok := h.userAndLesson(w, r)
	if !ok {
		return
	}

	var req models.RateLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rating, err := h.service.RateLesson(r.Context(), userID, lessonID, req.Rating)
	if err != nil {
		h.respondDomainError(w, err, "failed to rate lesson")
		return
	}

	h.respondJSON(w, http.StatusOK, rating)
}

// GetRating handles GET /api/v1/lessons/{lessonID}/rating
// @Summary Get own rating
// @Description Get the caller's rating of a lesson
// @Tags ratings
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} models.LessonRating
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/rating [get]
func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	userID, lessonID, ok := h.userAndLesson(w, r)
	if !ok {
		return
	}

	rating, err := h.service.GetRating(r.Context(), userID, lessonID)
	if err != nil {
		h.respondDomainError(w, err, "failed to get rating")
		return
	}
	if rating == nil {
		h.respondError(w, http.StatusNotFound, "rating not found")
		return
	}

	h.respondJSON(w, http.StatusOK, rating)
}

// GetSummary handles GET /api/v1/lessons/{lessonID}/rating/summary
// @Summary Get rating summary
// @Description Get the aggregate rating of a lesson
// @Tags ratings
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Success 200 {object} models.LessonRatingSummary
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/rating/summary [get]
func (h *RatingHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	lessonID, err := strconv.Atoi(chi.URLParam(r, "lessonID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	summary, err := h.service.GetRatingSummary(r.Context(), lessonID)
	if err != nil {
		h.respondDomainError(w, err, "failed to get rating summary")
		return
	}

	h.respondJSON(w, http.StatusOK, summary)
}

// DeleteRating handles DELETE /api/v1/lessons/{lessonID}/rating
// @Summary Delete own rating
// @Description Remove the caller's rating of a lesson
// @Tags ratings
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/rating [delete]
func (h *RatingHandler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	userID, lessonID, ok := h.userAndLesson(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteRating(r.Context(), userID, lessonID); err != nil {
		h.respondDomainError(w, err, "failed to delete rating")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// userAndLesson extracts the authenticated user and the lessonID path param
func (h *RatingHandler) userAndLesson(w http.ResponseWriter, r *http.Request) (int, int, bool) {
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

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/academyhq/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ModerationService is the interface that wraps methods for the moderation queue.
type ModerationService interface {
	// ListPendingModerationItems returns one page of the flattened
	// moderation feed, enriched with lesson/course/user metadata.
	ListPendingModerationItems(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.ModerationQueueItem, error)
}

// ModerationHandler handles HTTP requests for the moderation queue
type ModerationHandler struct {
	BaseHandler
	service         ModerationService
	modMw           func(http.Handler) http.Handler
	defaultPageSize int
}

// NewModerationHandler creates a new moderation queue handler
func NewModerationHandler(svc ModerationService, logger *zap.Logger, modMw func(http.Handler) http.Handler, defaultPageSize int) *ModerationHandler {
	return &ModerationHandler{
		service:         svc,
		BaseHandler:     BaseHandler{logger: logger},
		modMw:           modMw,
		defaultPageSize: defaultPageSize,
	}
}

// RegisterRoutes registers all moderation queue routes. The router is
// expected to be mounted at the API version prefix.
func (h *ModerationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/moderation", func(r chi.Router) {
		r.Use(h.modMw)
		r.Get("/queue", h.GetQueue)
	})
}

// GetQueue handles GET /api/v1/moderation/queue
// @Summary Get the moderation queue
// @Description Get one page of pending comments and replies awaiting moderation
// @Tags moderation
// @Produce json
// @Param status query string false "Moderation status filter, default: pending"
// @Param page query int false "Page number, default: 1"
// @Param pageSize query int false "Page size per sub-query"
// @Success 200 {array} models.ModerationQueueItem
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/moderation/queue [get]
func (h *ModerationHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	status := models.ModerationStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.ModerationStatusPending
	}
	switch status {
	case models.ModerationStatusPending, models.ModerationStatusApproved, models.ModerationStatusRejected:
	default:
		h.respondError(w, http.StatusBadRequest, "invalid status parameter")
		return
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			h.respondError(w, http.StatusBadRequest, "invalid page parameter")
			return
		}
		page = parsed
	}

	pageSize := h.defaultPageSize
	if sizeStr := r.URL.Query().Get("pageSize"); sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil || parsed < 1 {
			h.respondError(w, http.StatusBadRequest, "invalid pageSize parameter")
			return
		}
		pageSize = parsed
	}

	items, err := h.service.ListPendingModerationItems(r.Context(), status, page, pageSize)
	if err != nil {
		h.respondDomainError(w, err, "failed to get moderation queue")
		return
	}

	h.respondJSON(w, http.StatusOK, items)
}

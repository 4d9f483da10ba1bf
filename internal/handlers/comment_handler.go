package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/academyhq/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CommentService is the interface that wraps methods for comment business logic.
type CommentService interface {
	// AddComment posts a comment on a lesson; it starts pending when the
	// lesson requires moderation.
	AddComment(ctx context.Context, userID, lessonID int, body string) (*models.LessonComment, error)
	// AddReply posts a reply under a comment, optionally nested under
	// another reply up to the depth cap.
	AddReply(ctx context.Context, userID, commentID int, body string, parentReplyID *int) (*models.LessonCommentReply, error)
	// ListLessonComments returns the comments of a lesson with bounded
	// reply trees and rendered bodies.
	ListLessonComments(ctx context.Context, userID, lessonID int) ([]models.LessonComment, error)
	// ApproveComment approves a comment, cascading to its pending replies.
	ApproveComment(ctx context.Context, moderatorID, commentID int) error
	// RejectComment rejects a comment, cascading to every non-rejected reply.
	RejectComment(ctx context.Context, moderatorID, commentID int) error
	// ApproveReply approves a reply, cascading to its pending descendants.
	ApproveReply(ctx context.Context, moderatorID, replyID int) error
	// RejectReply rejects a reply, cascading to its descendant subtree.
	RejectReply(ctx context.Context, moderatorID, replyID int) error
}

// CommentHandler handles HTTP requests for lesson comments
type CommentHandler struct {
	BaseHandler
	service CommentService
	authMw  func(http.Handler) http.Handler
	modMw   func(http.Handler) http.Handler
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(svc CommentService, logger *zap.Logger, authMw, modMw func(http.Handler) http.Handler) *CommentHandler {
	return &CommentHandler{
		service:     svc,
		BaseHandler: BaseHandler{logger: logger},
		authMw:      authMw,
		modMw:       modMw,
	}
}

// RegisterRoutes registers all comment handler routes. The router is
// expected to be mounted at the API version prefix.
func (h *CommentHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authMw)
		r.Route("/lessons/{lessonID}/comments", func(r chi.Router) {
			r.Get("/", h.ListComments)
			r.Post("/", h.AddComment)
		})
		r.Post("/comments/{commentID}/replies", h.AddReply)
	})

	// Moderation decisions require the moderator role.
	r.Group(func(r chi.Router) {
		r.Use(h.modMw)
		r.Post("/comments/{commentID}/moderation", h.ModerateComment)
		r.Post("/replies/{replyID}/moderation", h.ModerateReply)
	})
}

// moderationDecision is the request body of a moderation endpoint
type moderationDecision struct {
	Decision string `json:"decision"`
}

// ListComments handles GET /api/v1/lessons/{lessonID}/comments
// @Summary List lesson comments
// @Description Get the comments of a lesson with their reply trees
// @Tags comments
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Success 200 {array} models.LessonComment
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/comments [get]
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(w, r)
	if !ok {
		return
	}
	lessonID, err := strconv.Atoi(chi.URLParam(r, "lessonID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	comments, err := h.service.ListLessonComments(r.Context(), userID, lessonID)
	if err != nil {
		h.respondDomainError(w, err, "failed to list comments")
		return
	}

	h.respondJSON(w, http.StatusOK, comments)
}

// AddComment handles POST /api/v1/lessons/{lessonID}/comments
// @Summary Post a comment
// @Description Post a comment on an accessible lesson
// @Tags comments
// @Accept json
// @Produce json
// @Param lessonID path int true "Lesson ID"
// @Param request body models.AddCommentRequest true "Comment body"
// @Success 201 {object} models.LessonComment
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/lessons/{lessonID}/comments [post]
func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(w, r)
	if !ok {
		return
	}
	lessonID, err := strconv.Atoi(chi.URLParam(r, "lessonID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	var req models.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		h.respondError(w, http.StatusBadRequest, "comment body is required")
		return
	}

	comment, err := h.service.AddComment(r.Context(), userID, lessonID, req.Body)
	if err != nil {
		h.respondDomainError(w, err, "failed to add comment")
		return
	}

	h.respondJSON(w, http.StatusCreated, comment)
}

// AddReply handles POST /api/v1/comments/{commentID}/replies
// @Summary Post a reply
// @Description Post a reply under a comment, optionally nested under another reply
// @Tags comments
// @Accept json
// @Produce json
// @Param commentID path int true "Comment ID"
// @Param request body models.AddReplyRequest true "Reply body and optional parent"
// @Success 201 {object} models.LessonCommentReply
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/comments/{commentID}/replies [post]
func (h *CommentHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromContext(w, r)
	if !ok {
		return
	}
	commentID, err := strconv.Atoi(chi.URLParam(r, "commentID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	var req models.AddReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		h.respondError(w, http.StatusBadRequest, "reply body is required")
		return
	}

	reply, err := h.service.AddReply(r.Context(), userID, commentID, req.Body, req.ParentReplyID)
	if err != nil {
		h.respondDomainError(w, err, "failed to add reply")
		return
	}

	h.respondJSON(w, http.StatusCreated, reply)
}

// ModerateComment handles POST /api/v1/comments/{commentID}/moderation
// @Summary Moderate a comment
// @Description Approve or reject a comment; the decision cascades to its replies
// @Tags moderation
// @Accept json
// @Produce json
// @Param commentID path int true "Comment ID"
// @Param request body moderationDecision true "Decision: approve or reject"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/comments/{commentID}/moderation [post]
func (h *CommentHandler) ModerateComment(w http.ResponseWriter, r *http.Request) {
	moderatorID, ok := userFromContext(w, r)
	if !ok {
		return
	}
	commentID, err := strconv.Atoi(chi.URLParam(r, "commentID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	var req moderationDecision
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Decision {
	case "approve":
		err = h.service.ApproveComment(r.Context(), moderatorID, commentID)
	case "reject":
		err = h.service.RejectComment(r.Context(), moderatorID, commentID)
	default:
		h.respondError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}
	if err != nil {
		h.respondDomainError(w, err, "failed to moderate comment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ModerateReply handles POST /api/v1/replies/{replyID}/moderation
// @Summary Moderate a reply
// @Description Approve or reject a reply; the decision cascades to its subtree
// @Tags moderation
// @Accept json
// @Produce json
// @Param replyID path int true "Reply ID"
// @Param request body moderationDecision true "Decision: approve or reject"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/replies/{replyID}/moderation [post]
func (h *CommentHandler) ModerateReply(w http.ResponseWriter, r *http.Request) {
	moderatorID, ok := userFromContext(w, r)
	if !ok {
		return
	}
	replyID, err := strconv.Atoi(chi.URLParam(r, "replyID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid reply id")
		return
	}

	var req moderationDecision
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Decision {
	case "approve":
		err = h.service.ApproveReply(r.Context(), moderatorID, replyID)
	case "reject":
		err = h.service.RejectReply(r.Context(), moderatorID, replyID)
	default:
		h.respondError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}
	if err != nil {
		h.respondDomainError(w, err, "failed to moderate reply")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

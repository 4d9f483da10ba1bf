package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/academyhq/backend/internal/apperrors"
	"github.com/academyhq/backend/internal/auth"
	"go.uber.org/zap"
)

// userFromContext reads the authenticated user ID set by the auth middleware,
// responding 401 when it is absent
func userFromContext(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"authentication required"}`))
		return 0, false
	}
	return userID, true
}

type BaseHandler struct {
	logger *zap.Logger
}

// respondJSON sends a JSON response
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error JSON response
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondDomainError maps a typed domain fault to its HTTP status and stable
// code; anything else is logged and reported as a 500.
func (h *BaseHandler) respondDomainError(w http.ResponseWriter, err error, fallback string) {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(domainErr.Status)
		json.NewEncoder(w).Encode(map[string]string{
			"error": domainErr.Message,
			"code":  domainErr.Code,
		})
		return
	}

	h.logger.Error(fallback, zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, fallback)
}

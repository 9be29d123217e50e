package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/validation"
)

// Response helpers

type apiResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(apiResponse{Message: message, Data: data}); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, message, nil)
}

// respondInternal logs err and hides it from the caller
func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.logger.Error(message, zap.Error(err), zap.String("path", r.URL.Path))
	respondError(w, http.StatusInternalServerError, message)
}

// decodeForm decodes a JSON body and validates it. On failure the error
// response has already been written.
func decodeForm(w http.ResponseWriter, r *http.Request, form interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}

	if err := validation.Struct(form); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			respondJSON(w, http.StatusBadRequest, "validation failed", verrs)
			return false
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// pathID parses a positive integer path parameter
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "healthy", map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, "ready", map[string]string{
		"status": "ready",
	})
}

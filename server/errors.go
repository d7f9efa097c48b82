package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/quickrag/answer"
	"github.com/poiesic/quickrag/core"
)

// Error codes returned in JSON error bodies.
const (
	CodeUnauthorized      = "unauthorized"
	CodeUnknownProvider   = "unknown_provider"
	CodeInvalidArguments  = "invalid_arguments"
	CodeMalformedRequest  = "malformed_request"
	CodeInvalidIdentifier = "invalid_identifier"
	CodeInvalidQuestion   = "invalid_question"
	CodeUploadTooLarge    = "upload_too_large"
	CodeConversionFailed  = "conversion_failed"
	CodePersistenceFailed = "persistence_failed"
	CodeInternal          = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Key   string `json:"key,omitempty"`
}

// classify maps an error to its HTTP status and code.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, CodeUploadTooLarge
	case errors.Is(err, core.ErrUnknownProvider):
		return http.StatusBadRequest, CodeUnknownProvider
	case errors.Is(err, core.ErrInvalidArguments):
		return http.StatusBadRequest, CodeInvalidArguments
	case errors.Is(err, core.ErrMalformedRequest):
		return http.StatusBadRequest, CodeMalformedRequest
	case errors.Is(err, core.ErrInvalidIdentifier):
		return http.StatusBadRequest, CodeInvalidIdentifier
	case errors.Is(err, answer.ErrEmptyQuestion),
		errors.Is(err, answer.ErrInvalidTopK),
		errors.Is(err, answer.ErrInvalidTemperature):
		return http.StatusBadRequest, CodeInvalidQuestion
	case errors.Is(err, core.ErrConversion):
		return http.StatusUnprocessableEntity, CodeConversionFailed
	case errors.Is(err, core.ErrPersistence):
		return http.StatusInternalServerError, CodePersistenceFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	resp := errorResponse{Error: err.Error(), Code: code}

	var argErr *core.ArgumentError
	if errors.As(err, &argErr) {
		resp.Key = argErr.Key
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "code", code, "err", err)
		resp.Error = http.StatusText(status)
		if code == CodePersistenceFailed {
			resp.Error = core.ErrPersistence.Error()
		}
	} else {
		s.logger.Info("request rejected", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", "err", err)
	}
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

type apiError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type errorBody struct {
	Errors []apiError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, errs ...apiError) {
	writeJSON(w, status, errorBody{Errors: errs})
}

// writeServiceError maps domain errors to HTTP statuses. Unexpected errors are
// logged and answered with a generic 500; their text never reaches the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		out := make([]apiError, len(verr.Fields))
		for i, f := range verr.Fields {
			out[i] = apiError{Field: f.Field, Message: f.Message}
		}
		writeErrors(w, http.StatusBadRequest, out...)
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeErrors(w, http.StatusUnauthorized, apiError{Message: "invalid e-mail or password"})
	case errors.Is(err, domain.ErrUnauthenticated):
		writeErrors(w, http.StatusUnauthorized, apiError{Message: "authentication required"})
	case errors.Is(err, domain.ErrNotFound):
		writeErrors(w, http.StatusNotFound, apiError{Message: "report not found"})
	case errors.Is(err, domain.ErrGeocodeUpstream):
		s.logger.WarnContext(r.Context(), "geocoding unavailable", "error", err,
			"request_id", middleware.GetReqID(r.Context()))
		writeErrors(w, http.StatusBadGateway, apiError{Message: "address resolution unavailable"})
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeErrors(w, http.StatusInternalServerError, apiError{Message: "internal server error"})
	}
}

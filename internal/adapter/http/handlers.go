package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/reports"
)

const maxBodyBytes = 1 << 20

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c domain.Credentials
	if !s.decode(w, r, &c) {
		return
	}
	token, err := s.auth.Register(r.Context(), c)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c domain.Credentials
	if !s.decode(w, r, &c) {
		return
	}
	token, err := s.auth.Login(r.Context(), c)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	out, err := s.reports.ListAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request) {
	out, err := s.reports.ListMine(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	radius := 0.0
	var errRadius error
	if v := q.Get("radius_km"); v != "" {
		radius, errRadius = strconv.ParseFloat(v, 64)
	}

	var fields []apiError
	if errLat != nil {
		fields = append(fields, apiError{Field: "lat", Message: "must be a number"})
	}
	if errLon != nil {
		fields = append(fields, apiError{Field: "lon", Message: "must be a number"})
	}
	if errRadius != nil {
		fields = append(fields, apiError{Field: "radius_km", Message: "must be a number"})
	}
	if len(fields) > 0 {
		writeErrors(w, http.StatusBadRequest, fields...)
		return
	}

	out, err := s.reports.ListNearby(r.Context(), lat, lon, radius)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	rep, err := s.reports.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in domain.ReportInput
	if !s.decode(w, r, &in) {
		return
	}
	rep, err := s.reports.Create(r.Context(), userIDFromContext(r.Context()), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/reports/"+strconv.FormatInt(rep.ID, 10))
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	var in domain.ReportInput
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.reports.Update(r.Context(), userIDFromContext(r.Context()), id, in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	if err := s.reports.Delete(r.Context(), userIDFromContext(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v. Unknown fields such as ownerId or id are
// ignored; identity always comes from the token and the path.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "malformed JSON"
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		case errors.As(err, &maxErr):
			msg = "request body too large"
		}
		var timeErr *time.ParseError
		if errors.As(err, &timeErr) {
			writeErrors(w, http.StatusBadRequest, apiError{Field: "date", Message: "must be an RFC 3339 timestamp"})
			return false
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeErrors(w, http.StatusBadRequest, apiError{Field: typeErr.Field, Message: "has the wrong type"})
			return false
		}
		writeErrors(w, http.StatusBadRequest, apiError{Field: "body", Message: msg})
		return false
	}
	return true
}

func reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrors(w, http.StatusBadRequest, apiError{Field: "id", Message: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

var _ ReportService = (*reports.Service)(nil)

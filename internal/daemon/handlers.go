package daemon

import (
	"errors"
	"net/http"
	"strings"

	"facephrase/internal/api"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/services"
)

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.daemon.service.Status(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleResult(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.daemon.service.Result(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := jobs.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "Unknown status "+strings.TrimSpace(value))
			return
		}
		statuses = append(statuses, status)
	}
	items, err := s.daemon.service.List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []api.JobSummary{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *apiServer) jobIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("jobId"))
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Missing jobId")
		return "", false
	}
	return id, true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, services.ErrNotReady):
		s.writeError(w, http.StatusConflict, "Not ready")
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "http_internal_error",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

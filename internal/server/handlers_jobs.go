package server

import (
	"net/http"
	"strconv"

	"dartsight/internal/common/errors"
	"dartsight/internal/common/metrics"
)

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 1000
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	limit := defaultJobsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxJobsLimit {
			s.errs.WriteError(w, errors.NewValidationFailedError("Invalid limit parameter"))
			return
		}
		limit = parsed
	}

	listing, err := s.backend.ListJobs(r.Context(), user.ID, limit)
	if err != nil {
		s.errs.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	jobID := r.PathValue("jobID")

	w.Header().Set("Cache-Control", "private, max-age=5")

	if data, ok := s.cache.Get(user.ID, jobID); ok {
		metrics.JobCacheHits.Inc()
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	metrics.JobCacheMisses.Inc()

	resp, err := s.backend.GetStatus(r.Context(), user.ID, jobID)
	if err != nil {
		s.errs.WriteError(w, err)
		return
	}

	w.Header().Set("X-Cache", "MISS")

	if !resp.OK() {
		// Upstream errors pass through uncached.
		passThrough(w, resp)
		return
	}

	s.cache.Put(user.ID, jobID, resp.Body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}

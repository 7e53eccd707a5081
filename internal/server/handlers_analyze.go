package server

import (
	"net/http"
)

// handleAnalyze gates the upload by quota, then streams the multipart body
// to the analysis engine untouched. File presence is not validated here; the
// upload form validates before submitting and the engine rejects empty
// submissions with its own 400.
//
// The quota is consumed before the forward, so an upload the engine then
// rejects still counts against the cycle.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	if _, err := s.profiles.IncrementUsage(r.Context(), user.ID); err != nil {
		s.errs.WriteError(w, err)
		return
	}

	model := r.URL.Query().Get("model")

	resp, err := s.backend.Analyze(r.Context(), user.ID, r.Body, r.Header.Get("Content-Type"), model)
	if err != nil {
		s.errs.WriteError(w, err)
		return
	}

	passThrough(w, resp)
}

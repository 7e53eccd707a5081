package server

import (
	"encoding/json"
	"io"
	"net/http"

	"dartsight/internal/common/errors"
)

type checkoutRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errs.WriteError(w, errors.NewValidationFailedError("invalid request body: "+err.Error()))
		return
	}

	url, err := s.billing.CreateCheckoutSession(r.Context(), user.ID, user.Email, req.Plan)
	if err != nil {
		s.errs.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleCreatePortalSession(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	url, err := s.billing.CreatePortalSession(r.Context(), user.ID)
	if err != nil {
		s.errs.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// webhookBodyLimit caps the raw payload read for signature verification.
const webhookBodyLimit = 1 << 20

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		s.errs.WriteError(w, errors.NewValidationFailedError("unable to read webhook payload: "+err.Error()))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := s.webhooks.HandleEvent(r.Context(), payload, signature); err != nil {
		s.errs.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

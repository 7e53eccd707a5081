// Package server wires the API routes over the auth facade, profile store,
// billing service, and analysis-backend client.
package server

import (
	"net/http"

	"dartsight/internal/billing"
	"dartsight/internal/common/auth"
	"dartsight/internal/common/config"
	"dartsight/internal/common/errors"
	"dartsight/internal/common/logger"
	"dartsight/internal/common/observability"
	"dartsight/internal/jobs"
	"dartsight/internal/profile"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg      *config.Config
	verifier auth.TokenVerifier
	profiles profile.Store
	billing  *billing.Service
	webhooks *billing.WebhookDispatcher
	backend  *jobs.Client
	cache    *jobs.StatusCache
	obs      *observability.Observability
	errs     *errors.ErrorHandler
	logger   logger.Logger
	ready    func() error
}

type Options struct {
	Config   *config.Config
	Verifier auth.TokenVerifier
	Profiles profile.Store
	Billing  *billing.Service
	Webhooks *billing.WebhookDispatcher
	Backend  *jobs.Client
	Cache    *jobs.StatusCache
	Obs      *observability.Observability
	Logger   logger.Logger
	// Ready reports whether backing dependencies are reachable; used by /ready.
	Ready func() error
}

func New(opts Options) *Server {
	log := opts.Logger.WithFields(map[string]interface{}{"component": "api-server"})
	return &Server{
		cfg:      opts.Config,
		verifier: opts.Verifier,
		profiles: opts.Profiles,
		billing:  opts.Billing,
		webhooks: opts.Webhooks,
		backend:  opts.Backend,
		cache:    opts.Cache,
		obs:      opts.Obs,
		errs:     errors.NewErrorHandler(log),
		logger:   log,
		ready:    opts.Ready,
	}
}

// Routes assembles the route table. Method+path patterns need go1.22 mux
// matching.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/create-checkout-session", s.requireAuth(s.handleCreateCheckoutSession))
	mux.HandleFunc("POST /api/create-portal-session", s.requireAuth(s.handleCreatePortalSession))
	mux.HandleFunc("GET /api/jobs", s.requireAuth(s.handleListJobs))
	mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	mux.HandleFunc("POST /api/proxy/analyze", s.requireAuth(s.handleAnalyze))
	mux.HandleFunc("GET /api/proxy/jobs/{jobID}", s.requireAuth(s.handleJobStatus))
	mux.HandleFunc("OPTIONS /api/", s.handlePreflight)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withLogging(s.withCORS(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"ready": false,
				"error": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
}

package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dartsight/internal/common/auth"
	"dartsight/internal/common/errors"
	"dartsight/internal/common/metrics"

	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "authenticated-user"

// UserFromContext returns the authenticated user attached by requireAuth.
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(userContextKey).(*auth.User)
	return user, ok
}

// requireAuth extracts the bearer token, verifies it against Supabase, and
// attaches the resolved user to the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.errs.WriteError(w, errors.NewUnauthorizedError("missing Authorization header"))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.errs.WriteError(w, errors.NewUnauthorizedError("Authorization header is not a bearer token"))
			return
		}

		user, err := s.verifier.VerifyToken(r.Context(), token)
		if err != nil {
			s.errs.WriteError(w, err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Method + " " + r.URL.Path

		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		if s.obs != nil {
			s.obs.RecordRequest(r.Context(), route, strconv.Itoa(rec.status))
			s.obs.RecordDuration(r.Context(), route, float64(elapsed.Milliseconds()))
		}

		s.logger.Info("request handled", map[string]interface{}{
			"requestId": requestID,
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"durationMs": elapsed.Milliseconds(),
		})
	})
}

func (s *Server) allowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if len(s.cfg.Server.AllowedOrigins) == 0 {
		return "*"
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return origin
		}
	}
	return ""
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allowed := s.allowOrigin(r.Header.Get("Origin")); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

// handlePreflight answers CORS preflight for all /api routes.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Stripe-Signature")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dartsight/internal/common/errors"
)

// TokenVerifier resolves a bearer token to an authenticated user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*User, error)
}

// SupabaseClient verifies session tokens against the Supabase Auth (GoTrue)
// REST endpoint. It never mints or refreshes tokens itself.
type SupabaseClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// User represents the authenticated Supabase user attached to a request.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Aud   string `json:"aud,omitempty"`
}

// NewSupabaseClient creates a new instance of SupabaseClient.
func NewSupabaseClient(baseURL, anonKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyToken calls GET /auth/v1/user with the caller's bearer token and
// returns the resolved user. Any non-200 response maps to UNAUTHORIZED.
func (s *SupabaseClient) VerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, errors.NewUnauthorizedError("empty bearer token")
	}

	userURL := fmt.Sprintf("%s/auth/v1/user", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}

	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalServiceError("supabase", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewUnauthorizedError(
			fmt.Sprintf("token verification failed with status %d: %s", resp.StatusCode, string(body)),
		)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	if user.ID == "" {
		return nil, errors.NewUnauthorizedError("user response missing id")
	}

	return &user, nil
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dartsight/internal/common/config"
	"dartsight/internal/common/errors"
	commonhttp "dartsight/internal/common/http"
	"dartsight/internal/common/logger"
	"dartsight/internal/common/metrics"
)

// UpstreamResponse carries a backend response verbatim so handlers can pass
// status code and body through to the caller unchanged.
type UpstreamResponse struct {
	Status int
	Body   []byte
}

// OK reports whether the upstream answered with a 2xx.
func (r *UpstreamResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client talks to the external analysis engine. It owns no job state; the
// engine owns jobs end to end and this client only reads snapshots and
// forwards uploads.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *commonhttp.Client
	logger     logger.Logger
}

func NewClient(cfg config.BackendConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		logger:     log.WithFields(map[string]interface{}{"component": "backend-client"}),
	}
}

func (c *Client) setAuthHeaders(req *http.Request, userID string) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("X-User-Id", userID)
}

// GetStatus fetches the status snapshot for one job. The payload is returned
// as raw bytes so cached responses stay byte-identical; the typed schema
// check is advisory only.
func (c *Client) GetStatus(ctx context.Context, userID, jobID string) (*UpstreamResponse, error) {
	statusURL := fmt.Sprintf("%s/jobs/%s", c.baseURL, url.PathEscape(jobID))

	req, err := http.NewRequest("GET", statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	c.setAuthHeaders(req, userID)

	resp, err := c.do(ctx, req, "job-status")
	if err != nil {
		return nil, err
	}

	if resp.OK() {
		if verr := ValidateStatusPayload(resp.Body); verr != nil {
			c.logger.Warn("job status payload failed schema check", map[string]interface{}{
				"jobId": jobID,
				"error": verr.Error(),
			})
		}
	}

	return resp, nil
}

// ListJobs fetches the caller's job history. The response is decoded into
// the typed listing so malformed upstream rows surface here instead of in
// the dashboard.
func (c *Client) ListJobs(ctx context.Context, userID string, limit int) (*Listing, error) {
	listURL := fmt.Sprintf("%s/users/%s/jobs?limit=%s",
		c.baseURL, url.PathEscape(userID), strconv.Itoa(limit))

	req, err := http.NewRequest("GET", listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	c.setAuthHeaders(req, userID)

	resp, err := c.do(ctx, req, "list-jobs")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errors.NewUpstreamFailureError(resp.Status, string(resp.Body))
	}

	var listing Listing
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		return nil, errors.NewUpstreamFailureError(resp.Status,
			fmt.Sprintf("malformed listing payload: %v", err))
	}
	if listing.UserID == "" {
		listing.UserID = userID
	}
	if listing.Jobs == nil {
		listing.Jobs = []ListItem{}
	}

	return &listing, nil
}

// Analyze streams a multipart upload to the engine without buffering the
// videos in memory. contentType must be the original multipart boundary
// header. The proxy does not check file presence; the engine rejects empty
// submissions itself.
func (c *Client) Analyze(ctx context.Context, userID string, body io.Reader, contentType, model string) (*UpstreamResponse, error) {
	analyzeURL := c.baseURL + "/analyze"
	if model != "" {
		analyzeURL += "?model=" + url.QueryEscape(model)
	}

	req, err := http.NewRequest("POST", analyzeURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.setAuthHeaders(req, userID)

	return c.do(ctx, req, "analyze")
}

func (c *Client) do(ctx context.Context, req *http.Request, operation string) (*UpstreamResponse, error) {
	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "transport_error").Inc()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewUpstreamTimeoutError(err)
		}
		return nil, errors.NewExternalServiceError("analysis-backend", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "read_error").Inc()
		return nil, errors.NewExternalServiceError("analysis-backend", err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	return &UpstreamResponse{Status: resp.StatusCode, Body: body}, nil
}

package jobs

import "encoding/json"

// Job status values reported by the analysis backend.
const (
	StatusQueued   = "queued"
	StatusRunning  = "running"
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusNotFound = "not_found"
)

// Status is the job-status payload served by the backend's /jobs/{id}
// endpoint. Every section beyond job_id and status is optional and parsed
// defensively; the dashboard tolerates missing pieces.
type Status struct {
	JobID          string       `json:"job_id"`
	Status         string       `json:"status"`
	Progress       *float64     `json:"progress,omitempty"`
	Stage          *string      `json:"stage,omitempty"`
	StartedAtUnix  *float64     `json:"started_at_unix,omitempty"`
	FinishedAtUnix *float64     `json:"finished_at_unix,omitempty"`
	Error          *StatusError `json:"error,omitempty"`
	Result         *Result      `json:"result,omitempty"`
}

type StatusError struct {
	Message string `json:"message"`
}

// Result carries the finished-job artifacts. The practice and lesson plans
// are backend-owned documents with no stable schema, so they stay raw.
type Result struct {
	OverlayURL         *string          `json:"overlay_url,omitempty"`
	OverlaySideURL     *string          `json:"overlay_side_url,omitempty"`
	OverlayFrontURL    *string          `json:"overlay_front_url,omitempty"`
	AnalysisURL        *string          `json:"analysis_url,omitempty"`
	LessonPlanURL      *string          `json:"lesson_plan_url,omitempty"`
	PracticePlanPDFURL *string          `json:"practice_plan_pdf_url,omitempty"`
	PracticePlanTxtURL *string          `json:"practice_plan_txt_url,omitempty"`
	PracticePlan       json.RawMessage  `json:"practice_plan,omitempty"`
	LessonPlan         json.RawMessage  `json:"lesson_plan,omitempty"`
	AnalysisSummary    *AnalysisSummary `json:"analysis_summary,omitempty"`
	Views              *Views           `json:"views,omitempty"`
}

type AnalysisSummary struct {
	ThrowsDetected *int `json:"throws_detected,omitempty"`
}

type Views struct {
	Side  bool `json:"side"`
	Front bool `json:"front"`
}

// ListItem is one row of a user's job history.
type ListItem struct {
	JobID              string   `json:"job_id"`
	UserID             string   `json:"user_id"`
	CreatedAtUnix      float64  `json:"created_at_unix"`
	OriginalFilename   *string  `json:"original_filename,omitempty"`
	Status             string   `json:"status"`
	Progress           *float64 `json:"progress,omitempty"`
	Stage              *string  `json:"stage,omitempty"`
	ErrorMessage       *string  `json:"error_message,omitempty"`
	OverlayURL         *string  `json:"overlay_url,omitempty"`
	AnalysisURL        *string  `json:"analysis_url,omitempty"`
	PracticePlanURL    *string  `json:"practice_plan_url,omitempty"`
	PracticePlanTxtURL *string  `json:"practice_plan_txt_url,omitempty"`
	LessonPlanURL      *string  `json:"lesson_plan_url,omitempty"`
	ThrowsDetected     *int     `json:"throws_detected,omitempty"`
}

// Listing is the response shape of the jobs-list endpoint.
type Listing struct {
	UserID string     `json:"user_id"`
	Count  int        `json:"count"`
	Jobs   []ListItem `json:"jobs"`
}

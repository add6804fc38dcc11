package core

import "time"

// FetchOutcome is the result of one successful endpoint fetch.
type FetchOutcome struct {
	StatusCode int               `json:"status_code"`
	Body       any               `json:"data"`
	Headers    map[string]string `json:"headers,omitempty"`
	FinalURL   string            `json:"url"`
}

// EndpointCapture is the per-endpoint payload stored in a job result.
type EndpointCapture struct {
	Data       any               `json:"data"`
	StatusCode int               `json:"status_code"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers,omitempty"`
	FetchedAt  time.Time         `json:"timestamp"`
}

// JobStatus is the terminal status of a scraping run.
type JobStatus string

const (
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobResult summarizes one scraping run. A run with skipped endpoints still
// completes; failure is reserved for job-level errors.
type JobResult struct {
	JobID            string                      `json:"job_id"`
	ConfigName       string                      `json:"config_name"`
	ExecutionID      string                      `json:"execution_id"`
	Status           JobStatus                   `json:"status"`
	StartedAt        time.Time                   `json:"started_at"`
	CompletedAt      time.Time                   `json:"completed_at"`
	DurationSeconds  float64                     `json:"duration_seconds"`
	EndpointsScraped int                         `json:"endpoints_scraped"`
	EndpointsSkipped int                         `json:"endpoints_skipped"`
	RecordsProcessed int                         `json:"records_processed"`
	DataSizeBytes    int                         `json:"data_size_bytes"`
	ErrorMessage     string                      `json:"error_message,omitempty"`
	OutputLocation   string                      `json:"output_location,omitempty"`
	Captures         map[string]*EndpointCapture `json:"captures,omitempty"`
}

// ConfigInfo is a display summary of a scrape configuration.
type ConfigInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	BaseURL     string          `json:"base_url"`
	Endpoints   int             `json:"endpoints_count"`
	AuthKind    AuthKind        `json:"authentication_type"`
	Enabled     bool            `json:"enabled"`
	Schedule    string          `json:"schedule,omitempty"`
	RateLimit   RateLimitPolicy `json:"rate_limit"`
	Error       string          `json:"error,omitempty"`
}

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrapeline/scrapeline/internal/core"
	apperrors "github.com/scrapeline/scrapeline/internal/errors"
)

// Orchestrator runs one scraping job: every configured endpoint is fetched
// sequentially through a single executor, fetched payloads are transformed
// when mapping rules exist, and the run is summarized in a JobResult.
//
// Per-endpoint failures (rate limit rejections, HTTP errors, exhausted
// retries, decode errors) are logged and skipped; the job itself still
// completes with a summary.
type Orchestrator struct {
	Config    *core.ScrapeConfig
	Client    *http.Client
	UserAgent string
	Logger    *zap.Logger
	Clock     func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
}

// Run executes the scraping job. jobID is caller-supplied for tracking; an
// execution id is generated per run.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (*core.JobResult, error) {
	if o == nil || o.Config == nil {
		return nil, fmt.Errorf("orchestrator is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	startedAt := o.now()
	if jobID == "" {
		jobID = "job_" + startedAt.Format("20060102_150405")
	}
	executionID := uuid.New().String()

	logger := o.logger().With(
		zap.String("config", o.Config.Name),
		zap.String("job_id", jobID),
		zap.String("execution_id", executionID),
	)
	logger.Info("starting scraping job", zap.Int("endpoints", len(o.Config.Endpoints)))

	executor := NewExecutor(o.Config.BaseURL, o.Config.Auth, o.Config.RateLimit, o.Client, logger)
	executor.UserAgent = o.UserAgent
	executor.Clock = o.Clock
	executor.Sleep = o.Sleep
	executor.Limiter.Clock = o.Clock
	executor.Retrier.Sleep = o.Sleep

	transformer := &Transformer{Logger: logger}

	result := &core.JobResult{
		JobID:       jobID,
		ConfigName:  o.Config.Name,
		ExecutionID: executionID,
		Status:      core.JobCompleted,
		StartedAt:   startedAt,
		Captures:    map[string]*core.EndpointCapture{},
	}

	for _, endpoint := range o.Config.Endpoints {
		if err := ctx.Err(); err != nil {
			result.Status = core.JobFailed
			result.ErrorMessage = err.Error()
			break
		}

		logger.Info("scraping endpoint", zap.String("endpoint", endpoint.Name))

		outcome, err := executor.Fetch(ctx, endpoint)
		if err != nil {
			if apperrors.IsSkippable(err) {
				logger.Warn("skipping endpoint",
					zap.String("endpoint", endpoint.Name),
					zap.Error(err),
				)
				result.EndpointsSkipped++
				continue
			}
			result.Status = core.JobFailed
			result.ErrorMessage = err.Error()
			o.finish(result)
			return result, err
		}

		data := outcome.Body
		if data != nil && !o.Config.Transform.Empty() {
			data = transformer.Apply(data, o.Config.Transform)
		}

		if data != nil {
			result.RecordsProcessed += countRecords(data)
			if encoded, err := json.Marshal(data); err == nil {
				result.DataSizeBytes += len(encoded)
			}
			result.Captures[endpoint.Name] = &core.EndpointCapture{
				Data:       data,
				StatusCode: outcome.StatusCode,
				URL:        outcome.FinalURL,
				Headers:    outcome.Headers,
				FetchedAt:  o.now(),
			}
		}

		result.EndpointsScraped++
	}

	o.finish(result)
	logger.Info("scraping job finished",
		zap.String("status", string(result.Status)),
		zap.Int("endpoints_scraped", result.EndpointsScraped),
		zap.Int("endpoints_skipped", result.EndpointsSkipped),
		zap.Int("records_processed", result.RecordsProcessed),
		zap.Int("data_size_bytes", result.DataSizeBytes),
	)

	return result, nil
}

func (o *Orchestrator) finish(result *core.JobResult) {
	result.CompletedAt = o.now()
	result.DurationSeconds = result.CompletedAt.Sub(result.StartedAt).Seconds()
}

func countRecords(data any) int {
	if list, ok := data.([]any); ok {
		return len(list)
	}
	return 1
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) logger() *zap.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/scrapeline/scrapeline/internal/core"
	apperrors "github.com/scrapeline/scrapeline/internal/errors"
)

const defaultEndpointTimeout = 30 * time.Second

// Executor fetches configured endpoints from one API target. It owns the
// transport client and the rate limiter's timestamp log, and is not
// reentrant: requests from one executor are strictly sequential.
type Executor struct {
	Client    *http.Client
	Limiter   *RateLimiter
	Retrier   *Retrier
	Auth      core.AuthSpec
	BaseURL   string
	UserAgent string
	Logger    *zap.Logger
	Clock     func() time.Time
	// Sleep suspends for pacing delays. Injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor builds an executor for one API target with its own rate-limit
// window state.
func NewExecutor(baseURL string, auth core.AuthSpec, policy core.RateLimitPolicy, client *http.Client, logger *zap.Logger) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	return &Executor{
		Client:  client,
		Limiter: NewRateLimiter(policy),
		Retrier: &Retrier{Logger: logger},
		Auth:    auth,
		BaseURL: baseURL,
		Logger:  logger,
	}
}

// Fetch performs one endpoint fetch: admission, retry loop around a single
// HTTP exchange, content-type decode, and optional path extraction.
//
// On admission rejection a RateLimitError is returned; the caller treats it
// as a per-endpoint skip, never as a job failure.
func (e *Executor) Fetch(ctx context.Context, endpoint core.EndpointSpec) (*core.FetchOutcome, error) {
	target, err := e.resolveURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoint url: %w", err)
	}

	switch decision := e.Limiter.Admit(); decision.Admission {
	case AdmitReject:
		return nil, &apperrors.RateLimitError{Reason: decision.Reason, Wait: decision.Wait}
	case AdmitWait:
		e.logger().Info("rate limiting: pacing before request",
			zap.String("endpoint", endpoint.Name),
			zap.Duration("wait", decision.Wait),
		)
		if err := e.sleep(ctx, decision.Wait); err != nil {
			return nil, err
		}
	}

	headers := e.buildHeaders(endpoint)

	var body []byte
	method := core.NormalizeMethod(endpoint.Method)
	if endpoint.Body != nil && method != http.MethodGet && method != http.MethodDelete {
		body, err = json.Marshal(endpoint.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}

	var outcome *core.FetchOutcome
	err = e.Retrier.Do(ctx, endpoint.MaxRetries, endpoint.Name, func(attempt int) error {
		e.logger().Info("making request",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
		)

		result, attemptErr := e.attempt(ctx, method, target, headers, body, endpoint)
		if attemptErr != nil {
			return attemptErr
		}
		outcome = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger().Info("request succeeded",
		zap.String("endpoint", endpoint.Name),
		zap.Int("status", outcome.StatusCode),
		zap.String("url", outcome.FinalURL),
	)

	return outcome, nil
}

// attempt runs exactly one HTTP exchange under the endpoint timeout. A
// timestamp is recorded once per received response, regardless of status;
// transport failures that never produce a response are not recorded.
func (e *Executor) attempt(ctx context.Context, method, target string, headers map[string]string, body []byte, endpoint core.EndpointSpec) (*core.FetchOutcome, error) {
	timeout := endpoint.Timeout
	if timeout <= 0 {
		timeout = defaultEndpointTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if e.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, &apperrors.TransportError{Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	e.Limiter.Record(e.now())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.TransportError{Err: err}
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 400 {
		return nil, &apperrors.HTTPError{StatusCode: resp.StatusCode, Body: string(raw), URL: finalURL}
	}

	decoded, err := Decode(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	if endpoint.DataPath != "" {
		decoded = Extract(e.logger(), decoded, endpoint.DataPath)
	}

	return &core.FetchOutcome{
		StatusCode: resp.StatusCode,
		Body:       decoded,
		Headers:    flattenHeaders(resp.Header),
		FinalURL:   finalURL,
	}, nil
}

// buildHeaders merges auth-derived headers with the endpoint's declared
// headers. Endpoint headers are applied last and win on key conflict.
func (e *Executor) buildHeaders(endpoint core.EndpointSpec) map[string]string {
	headers := authHeaders(e.Auth)
	for key, value := range endpoint.Headers {
		headers[key] = value
	}
	return headers
}

func authHeaders(auth core.AuthSpec) map[string]string {
	headers := map[string]string{}

	switch auth.Kind {
	case core.AuthAPIKey:
		if auth.HeaderName != "" && auth.APIKey != "" {
			headers[auth.HeaderName] = auth.APIKey
		}
	case core.AuthBearer:
		if auth.BearerToken != "" {
			headers["Authorization"] = "Bearer " + auth.BearerToken
		}
	case core.AuthBasic:
		if auth.Username != "" && auth.Password != "" {
			credentials := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
			headers["Authorization"] = "Basic " + credentials
		}
	}

	return headers
}

// resolveURL joins the endpoint URL against the base URL and appends query
// parameters. Absolute endpoint URLs replace the base entirely.
func (e *Executor) resolveURL(endpoint core.EndpointSpec) (string, error) {
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return "", err
	}

	ref, err := url.Parse(endpoint.URL)
	if err != nil {
		return "", err
	}

	resolved := base.ResolveReference(ref)

	if len(endpoint.Query) > 0 {
		query := resolved.Query()
		for key, value := range endpoint.Query {
			query.Set(key, fmt.Sprint(value))
		}
		resolved.RawQuery = query.Encode()
	}

	return resolved.String(), nil
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key := range header {
		flat[key] = header.Get(key)
	}
	return flat
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e != nil && e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (e *Executor) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *Executor) logger() *zap.Logger {
	if e != nil && e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

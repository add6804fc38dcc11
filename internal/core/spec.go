package core

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// AuthKind identifies the authentication scheme for an API target.
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthAPIKey AuthKind = "api_key"
	AuthBearer AuthKind = "bearer_token"
	AuthBasic  AuthKind = "basic_auth"
)

// FilterKind identifies the filter applied to a transformed field.
type FilterKind string

const (
	FilterString FilterKind = "string"
	FilterNumber FilterKind = "number"
	FilterDate   FilterKind = "date"
)

// RateLimitPolicy configures the sliding-window admission policy for one
// API target. Supplied once per executor and never mutated afterwards.
type RateLimitPolicy struct {
	RequestsPerMinute int           `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int           `mapstructure:"requests_per_hour" json:"requests_per_hour"`
	MinDelay          time.Duration `mapstructure:"delay_between_requests" json:"delay_between_requests"`
}

// DefaultRateLimitPolicy mirrors the documented scraping defaults.
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		RequestsPerMinute: 60,
		RequestsPerHour:   1000,
		MinDelay:          time.Second,
	}
}

// AuthSpec is a closed tagged variant over the supported auth schemes.
// Only the fields for the declared Kind are consulted.
type AuthSpec struct {
	Kind        AuthKind `mapstructure:"type" json:"type"`
	HeaderName  string   `mapstructure:"api_key_name" json:"api_key_name,omitempty"`
	APIKey      string   `mapstructure:"api_key_value" json:"-"`
	BearerToken string   `mapstructure:"bearer_token" json:"-"`
	Username    string   `mapstructure:"username" json:"-"`
	Password    string   `mapstructure:"password" json:"-"`
}

// EndpointSpec describes one endpoint fetch. Immutable per call.
type EndpointSpec struct {
	Name       string            `mapstructure:"name" json:"name"`
	URL        string            `mapstructure:"url" json:"url"`
	Method     string            `mapstructure:"method" json:"method"`
	Headers    map[string]string `mapstructure:"headers" json:"headers,omitempty"`
	Query      map[string]any    `mapstructure:"params" json:"params,omitempty"`
	Body       any               `mapstructure:"body" json:"body,omitempty"`
	Timeout    time.Duration     `mapstructure:"timeout" json:"timeout"`
	MaxRetries int               `mapstructure:"retry_attempts" json:"retry_attempts"`
	DataPath   string            `mapstructure:"data_path" json:"data_path,omitempty"`
}

// FilterSpec is a closed tagged variant; exactly one kind applies and only
// that kind's fields are consulted.
type FilterSpec struct {
	Kind FilterKind `mapstructure:"type" json:"type"`

	// string
	Lowercase bool `mapstructure:"lowercase" json:"lowercase,omitempty"`
	Uppercase bool `mapstructure:"uppercase" json:"uppercase,omitempty"`
	Strip     bool `mapstructure:"strip" json:"strip,omitempty"`

	// number
	Min *float64 `mapstructure:"min" json:"min,omitempty"`
	Max *float64 `mapstructure:"max" json:"max,omitempty"`

	// date
	OutputFormat string `mapstructure:"format" json:"format,omitempty"`
}

// ValidationSpec constrains one transformed field. A failed check nulls the
// field in the output record; it never rejects the record.
type ValidationSpec struct {
	Required     bool   `mapstructure:"required" json:"required,omitempty"`
	ExpectedType string `mapstructure:"type" json:"type,omitempty"`
	Pattern      string `mapstructure:"pattern" json:"pattern,omitempty"`
	MinLength    *int   `mapstructure:"min_length" json:"min_length,omitempty"`
	MaxLength    *int   `mapstructure:"max_length" json:"max_length,omitempty"`

	patternOnce sync.Once
	patternRe   *regexp.Regexp
	patternErr  error
}

// PatternRegexp compiles the validation pattern anchored at the start of the
// value, preserving prefix-match semantics. The compiled form is cached.
func (v *ValidationSpec) PatternRegexp() (*regexp.Regexp, error) {
	if v == nil || v.Pattern == "" {
		return nil, nil
	}
	v.patternOnce.Do(func() {
		v.patternRe, v.patternErr = regexp.Compile(`\A(?:` + v.Pattern + `)`)
	})
	return v.patternRe, v.patternErr
}

// TransformRule bundles mapping, filters and validation for one job.
type TransformRule struct {
	FieldMapping map[string]string          `mapstructure:"field_mapping" json:"field_mapping,omitempty"`
	FieldFilters map[string]FilterSpec      `mapstructure:"field_filters" json:"field_filters,omitempty"`
	Validation   map[string]*ValidationSpec `mapstructure:"data_validation" json:"data_validation,omitempty"`
}

// Empty reports whether the rule has no mapping configured. Transformation is
// skipped entirely for empty rules.
func (r TransformRule) Empty() bool {
	return len(r.FieldMapping) == 0
}

// OutputSpec controls where and how job captures are written.
type OutputSpec struct {
	Format   string `mapstructure:"format" json:"format"`
	Filename string `mapstructure:"filename" json:"filename,omitempty"`
}

// ScrapeConfig is one scraping job definition, loaded from a YAML file and
// read-only for the duration of a run.
type ScrapeConfig struct {
	Name        string          `mapstructure:"name" json:"name"`
	Description string          `mapstructure:"description" json:"description"`
	BaseURL     string          `mapstructure:"base_url" json:"base_url"`
	Auth        AuthSpec        `mapstructure:"authentication" json:"authentication"`
	Endpoints   []EndpointSpec  `mapstructure:"endpoints" json:"endpoints"`
	RateLimit   RateLimitPolicy `mapstructure:"rate_limit" json:"rate_limit"`
	Transform   TransformRule   `mapstructure:"transformation" json:"transformation"`
	Output      OutputSpec      `mapstructure:"output" json:"output"`
	Schedule    string          `mapstructure:"schedule" json:"schedule,omitempty"`
	Enabled     bool            `mapstructure:"enabled" json:"enabled"`
}

// ValidAuthKind reports whether the kind is a member of the closed set.
func ValidAuthKind(kind AuthKind) bool {
	switch kind {
	case AuthNone, AuthAPIKey, AuthBearer, AuthBasic:
		return true
	default:
		return false
	}
}

// ValidFilterKind reports whether the kind is a member of the closed set.
func ValidFilterKind(kind FilterKind) bool {
	switch kind {
	case FilterString, FilterNumber, FilterDate:
		return true
	default:
		return false
	}
}

// ValidExpectedType reports whether the validation type name is supported.
func ValidExpectedType(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string", "number", "boolean":
		return true
	default:
		return false
	}
}

// NormalizeMethod upper-cases an HTTP method, defaulting to GET.
func NormalizeMethod(method string) string {
	value := strings.ToUpper(strings.TrimSpace(method))
	if value == "" {
		return "GET"
	}
	return value
}

func (s ScrapeConfig) String() string {
	return fmt.Sprintf("%s (%d endpoints)", s.Name, len(s.Endpoints))
}

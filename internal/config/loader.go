package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/scrapeline/scrapeline/internal/core"
	apperrors "github.com/scrapeline/scrapeline/internal/errors"
)

const apisSubdir = "apis"

// Loader reads scraping job definitions from {ConfigDir}/apis/<name>.yaml.
// Definitions are validated on load: unknown auth or filter kinds, missing
// credentials and uncompilable patterns are rejected here, not at use time.
type Loader struct {
	ConfigDir string
	Logger    *zap.Logger
}

// NewLoader builds a loader rooted at the given config directory.
func NewLoader(configDir string, logger *zap.Logger) *Loader {
	return &Loader{ConfigDir: configDir, Logger: logger}
}

// Load reads, decodes and validates one scrape configuration by name
// (filename without extension).
func (l *Loader) Load(name string) (*core.ScrapeConfig, error) {
	path, err := l.findConfigFile(name)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- path is derived from the configured directory
	if err != nil {
		return nil, &apperrors.ConfigError{Name: name, Err: err}
	}

	var document map[string]any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, apperrors.NewConfigError(name, "invalid YAML: %w", err)
	}

	cfg := &core.ScrapeConfig{
		RateLimit: core.DefaultRateLimitPolicy(),
		Enabled:   true,
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			floatSecondsToDurationHook(),
		),
	})
	if err != nil {
		return nil, apperrors.NewConfigError(name, "create decoder: %w", err)
	}
	if err := decoder.Decode(document); err != nil {
		return nil, apperrors.NewConfigError(name, "decode failed: %w", err)
	}

	applyEndpointDefaults(cfg)
	resolveAuthSecrets(&cfg.Auth)

	if err := validate(name, cfg); err != nil {
		return nil, err
	}

	l.logger().Debug("loaded scrape configuration",
		zap.String("name", name),
		zap.String("path", path),
		zap.Int("endpoints", len(cfg.Endpoints)),
	)

	return cfg, nil
}

// List returns the names of all available scrape configurations, sorted.
func (l *Loader) List() ([]string, error) {
	dir := filepath.Join(l.ConfigDir, apisSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list configurations: %w", err)
	}

	seen := map[string]bool{}
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ext)
		if !seen[stem] {
			seen[stem] = true
			names = append(names, stem)
		}
	}

	sort.Strings(names)
	return names, nil
}

// Info returns a display summary for one configuration. Load failures are
// reported inside the summary rather than as an error so listings can show
// broken configs alongside valid ones.
func (l *Loader) Info(name string) core.ConfigInfo {
	cfg, err := l.Load(name)
	if err != nil {
		return core.ConfigInfo{Name: name, Error: err.Error()}
	}

	return core.ConfigInfo{
		Name:        cfg.Name,
		Description: cfg.Description,
		BaseURL:     cfg.BaseURL,
		Endpoints:   len(cfg.Endpoints),
		AuthKind:    cfg.Auth.Kind,
		Enabled:     cfg.Enabled,
		Schedule:    cfg.Schedule,
		RateLimit:   cfg.RateLimit,
	}
}

// Validate loads the named configuration and reports the first problem.
func (l *Loader) Validate(name string) error {
	cfg, err := l.Load(name)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		l.logger().Warn("configuration is disabled", zap.String("name", name))
	}
	return nil
}

func (l *Loader) findConfigFile(name string) (string, error) {
	dir := filepath.Join(l.ConfigDir, apisSubdir)
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", apperrors.NewConfigError(name, "configuration file not found under %s", dir)
}

// validate enforces the closed variant sets and the per-kind required fields.
func validate(name string, cfg *core.ScrapeConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return apperrors.NewConfigError(name, "name is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return apperrors.NewConfigError(name, "base_url must be an absolute URL, got %q", cfg.BaseURL)
	}

	if len(cfg.Endpoints) == 0 {
		return apperrors.NewConfigError(name, "at least one endpoint must be configured")
	}

	if cfg.Auth.Kind == "" {
		cfg.Auth.Kind = core.AuthNone
	}
	if !core.ValidAuthKind(cfg.Auth.Kind) {
		return apperrors.NewConfigError(name, "unknown authentication type %q", cfg.Auth.Kind)
	}
	switch cfg.Auth.Kind {
	case core.AuthAPIKey:
		if cfg.Auth.HeaderName == "" || cfg.Auth.APIKey == "" {
			return apperrors.NewConfigError(name, "api key name and value are required for api_key authentication")
		}
	case core.AuthBearer:
		if cfg.Auth.BearerToken == "" {
			return apperrors.NewConfigError(name, "bearer token is required for bearer_token authentication")
		}
	case core.AuthBasic:
		if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
			return apperrors.NewConfigError(name, "username and password are required for basic_auth authentication")
		}
	}

	for _, endpoint := range cfg.Endpoints {
		if strings.TrimSpace(endpoint.Name) == "" {
			return apperrors.NewConfigError(name, "endpoint name is required")
		}
		if strings.TrimSpace(endpoint.URL) == "" {
			return apperrors.NewConfigError(name, "endpoint %q: url is required", endpoint.Name)
		}
		if endpoint.DataPath != "" && !strings.HasPrefix(endpoint.DataPath, "$.") {
			return apperrors.NewConfigError(name, "endpoint %q: data_path must start with \"$.\"", endpoint.Name)
		}
	}

	for field, filter := range cfg.Transform.FieldFilters {
		if !core.ValidFilterKind(filter.Kind) {
			return apperrors.NewConfigError(name, "field %q: unknown filter type %q", field, filter.Kind)
		}
	}

	for field, validation := range cfg.Transform.Validation {
		if validation == nil {
			continue
		}
		if !core.ValidExpectedType(validation.ExpectedType) {
			return apperrors.NewConfigError(name, "field %q: unknown validation type %q", field, validation.ExpectedType)
		}
		if _, err := validation.PatternRegexp(); err != nil {
			return apperrors.NewConfigError(name, "field %q: invalid pattern: %v", field, err)
		}
	}

	return nil
}

func applyEndpointDefaults(cfg *core.ScrapeConfig) {
	for i := range cfg.Endpoints {
		endpoint := &cfg.Endpoints[i]
		endpoint.Method = core.NormalizeMethod(endpoint.Method)
		if endpoint.Timeout <= 0 {
			endpoint.Timeout = 30 * time.Second
		}
		if endpoint.MaxRetries == 0 {
			endpoint.MaxRetries = 3
		}
	}
}

// resolveAuthSecrets replaces $NAME credential values with the named
// environment variable, so secrets stay out of config files.
func resolveAuthSecrets(auth *core.AuthSpec) {
	auth.APIKey = resolveEnvRef(auth.APIKey)
	auth.BearerToken = resolveEnvRef(auth.BearerToken)
	auth.Username = resolveEnvRef(auth.Username)
	auth.Password = resolveEnvRef(auth.Password)
}

func resolveEnvRef(value string) string {
	if strings.HasPrefix(value, "$") {
		return os.Getenv(value[1:])
	}
	return value
}

var durationType = reflect.TypeOf(time.Duration(0))

// floatSecondsToDurationHook converts bare numeric config values (seconds)
// into durations, so `timeout: 30` and `timeout: 30s` both work.
func floatSecondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}

func (l *Loader) logger() *zap.Logger {
	if l != nil && l.Logger != nil {
		return l.Logger
	}
	return zap.NewNop()
}

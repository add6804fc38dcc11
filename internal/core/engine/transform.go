package engine

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scrapeline/scrapeline/internal/core"
)

// dateParseLayouts are tried in order when a date filter parses its input.
// A trailing Z is covered by RFC 3339; zone-less timestamps and bare dates
// match the remaining layouts.
var dateParseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Transformer applies field mapping, filters and validation to decoded
// records. It is a pure pipeline stage: no retries, no suspension, no shared
// state beyond the logger.
type Transformer struct {
	Logger *zap.Logger
}

// Apply transforms one value or, for sequences, each element in order. The
// output has the same shape as the input.
func (t *Transformer) Apply(data any, rule core.TransformRule) any {
	if list, ok := data.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = t.transformRecord(item, rule)
		}
		return out
	}
	return t.transformRecord(data, rule)
}

// transformRecord maps, filters and validates a single record. Non-map
// records pass through unchanged.
func (t *Transformer) transformRecord(record any, rule core.TransformRule) any {
	fields, ok := record.(map[string]any)
	if !ok {
		return record
	}

	// Mapping: only mapped targets survive; missing sources are skipped
	// silently, not nulled.
	transformed := make(map[string]any, len(rule.FieldMapping))
	for source, target := range rule.FieldMapping {
		if value, ok := fields[source]; ok {
			transformed[target] = value
		}
	}

	for field, filter := range rule.FieldFilters {
		if value, ok := transformed[field]; ok {
			transformed[field] = t.applyFilter(value, filter)
		}
	}

	for field, validation := range rule.Validation {
		value, ok := transformed[field]
		if !ok {
			continue
		}
		if !t.validateField(value, validation) {
			t.logger().Warn("field failed validation, set to null", zap.String("field", field))
			transformed[field] = nil
		}
	}

	return transformed
}

func (t *Transformer) applyFilter(value any, filter core.FilterSpec) any {
	switch filter.Kind {
	case core.FilterString:
		text, ok := value.(string)
		if !ok {
			return value
		}
		if filter.Lowercase {
			text = strings.ToLower(text)
		}
		if filter.Uppercase {
			text = strings.ToUpper(text)
		}
		if filter.Strip {
			text = strings.TrimSpace(text)
		}
		return text

	case core.FilterNumber:
		number, ok := toFloat(value)
		if !ok {
			return value
		}
		clamped := number
		if filter.Min != nil && clamped < *filter.Min {
			clamped = *filter.Min
		}
		if filter.Max != nil && clamped > *filter.Max {
			clamped = *filter.Max
		}
		if clamped == number {
			return value
		}
		return normalizeNumber(value, clamped)

	case core.FilterDate:
		text, ok := value.(string)
		if !ok {
			return value
		}
		parsed, ok := parseDate(text)
		if !ok {
			t.logger().Warn("failed to parse date, leaving unchanged", zap.String("value", text))
			return value
		}
		layout := filter.OutputFormat
		if layout == "" {
			layout = time.RFC3339
		}
		return parsed.Format(layout)

	default:
		return value
	}
}

func (t *Transformer) validateField(value any, validation *core.ValidationSpec) bool {
	if validation == nil {
		return true
	}

	if validation.Required {
		if value == nil {
			return false
		}
		if text, ok := value.(string); ok && text == "" {
			return false
		}
	}

	switch strings.ToLower(validation.ExpectedType) {
	case "string":
		if _, ok := value.(string); !ok {
			return false
		}
	case "number":
		if _, ok := toFloat(value); !ok {
			return false
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return false
		}
	}

	if text, ok := value.(string); ok {
		re, err := validation.PatternRegexp()
		if err != nil {
			t.logger().Warn("invalid validation pattern", zap.String("pattern", validation.Pattern), zap.Error(err))
		} else if re != nil && !re.MatchString(text) {
			return false
		}

		if validation.MinLength != nil && len(text) < *validation.MinLength {
			return false
		}
		if validation.MaxLength != nil && len(text) > *validation.MaxLength {
			return false
		}
	}

	return true
}

func (t *Transformer) logger() *zap.Logger {
	if t != nil && t.Logger != nil {
		return t.Logger
	}
	return zap.NewNop()
}

// toFloat widens the numeric types a decoded record can carry. Booleans are
// deliberately not numbers.
func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// normalizeNumber keeps integer inputs integral when the clamp bound itself
// is a whole number.
func normalizeNumber(original any, clamped float64) any {
	switch original.(type) {
	case int, int64:
		if clamped == math.Trunc(clamped) {
			return int(clamped)
		}
	}
	return clamped
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateParseLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

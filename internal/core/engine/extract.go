package engine

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Extract navigates a decoded value along a restricted dotted path. The path
// must start with "$."; each remaining segment descends into a map key or a
// non-negative sequence index. Any miss fails open: the original value is
// returned unchanged and the failure is logged, never raised. A misconfigured
// extraction path must not abort an otherwise-successful fetch.
func Extract(logger *zap.Logger, value any, path string) any {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !strings.HasPrefix(path, "$.") {
		logger.Warn("unsupported extraction path format", zap.String("path", path))
		return value
	}

	current := value
	for _, segment := range strings.Split(path[2:], ".") {
		next, ok := descend(current, segment)
		if !ok {
			logger.Warn("could not extract path", zap.String("path", path), zap.String("segment", segment))
			return value
		}
		current = next
	}

	return current
}

func descend(value any, segment string) (any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		child, ok := typed[segment]
		return child, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(typed) {
			return nil, false
		}
		return typed[idx], true
	default:
		return nil, false
	}
}

// Package output writes job captures to files and renders CLI summaries.
package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scrapeline/scrapeline/internal/core"
)

// Format represents an output file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates and normalizes a format string. Empty defaults to
// JSON, matching the original output behavior.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatJSON):
		return FormatJSON, nil
	case string(FormatCSV):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Write persists a job's captures under dir according to the job's output
// spec and returns the written file path. Jobs without captures still
// produce a file so downstream consumers see the run happened.
func Write(dir string, spec core.OutputSpec, result *core.JobResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no job result to write")
	}

	format, err := ParseFormat(spec.Format)
	if err != nil {
		return "", err
	}

	filename := spec.Filename
	if filename == "" {
		filename = fmt.Sprintf("%s_%s", result.ConfigName, result.ExecutionID)
	}
	path := filepath.Join(dir, filename+"."+string(format))

	switch format {
	case FormatCSV:
		err = writeCSV(path, result)
	default:
		err = writeJSON(path, result)
	}
	if err != nil {
		return "", err
	}

	return path, nil
}

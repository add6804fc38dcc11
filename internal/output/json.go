package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scrapeline/scrapeline/internal/core"
)

func writeJSON(path string, result *core.JobResult) error {
	data, err := json.MarshalIndent(result.Captures, "", "  ")
	if err != nil {
		return fmt.Errorf("encode captures: %w", err)
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	// #nosec G306 -- output files are regular artifacts, not secrets
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	// #nosec G301 -- output directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

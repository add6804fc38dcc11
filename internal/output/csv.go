package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/scrapeline/scrapeline/internal/core"
)

// writeCSV flattens captured records into one table. Each row is tagged with
// the endpoint it came from and the fetch timestamp; the column set is the
// sorted union of all record fields.
func writeCSV(path string, result *core.JobResult) error {
	rows := flattenCaptures(result.Captures)

	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path) // #nosec G304 -- path is derived from the configured output directory
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close() // nolint:errcheck // best-effort cleanup; Flush error is checked below

	writer := csv.NewWriter(file)

	fieldSet := map[string]bool{}
	for _, row := range rows {
		for key := range row {
			fieldSet[key] = true
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for key := range fieldSet {
		fields = append(fields, key)
	}
	sort.Strings(fields)

	if len(fields) > 0 {
		if err := writer.Write(fields); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	for _, row := range rows {
		record := make([]string, len(fields))
		for i, field := range fields {
			if value, ok := row[field]; ok && value != nil {
				record[i] = fmt.Sprint(value)
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}

	return nil
}

func flattenCaptures(captures map[string]*core.EndpointCapture) []map[string]any {
	names := make([]string, 0, len(captures))
	for name := range captures {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []map[string]any
	for _, name := range names {
		capture := captures[name]
		if capture == nil {
			continue
		}

		switch data := capture.Data.(type) {
		case []any:
			for _, item := range data {
				if record, ok := item.(map[string]any); ok {
					rows = append(rows, tagRow(record, name, capture.FetchedAt))
				}
			}
		case map[string]any:
			rows = append(rows, tagRow(data, name, capture.FetchedAt))
		}
	}

	return rows
}

func tagRow(record map[string]any, endpoint string, fetchedAt time.Time) map[string]any {
	row := make(map[string]any, len(record)+2)
	for key, value := range record {
		row[key] = value
	}
	row["_endpoint"] = endpoint
	row["_timestamp"] = fetchedAt.Format(time.RFC3339)
	return row
}

package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scrapeline/scrapeline/internal/core"
)

func sampleResult() *core.JobResult {
	fetched := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	return &core.JobResult{
		JobID:       "job_1",
		ConfigName:  "users-api",
		ExecutionID: "exec-1",
		Status:      core.JobCompleted,
		Captures: map[string]*core.EndpointCapture{
			"users": {
				Data: []any{
					map[string]any{"user_id": float64(1), "user_name": "Ann"},
					map[string]any{"user_id": float64(2), "user_name": "Bob", "email": "bob@example.com"},
				},
				StatusCode: 200,
				URL:        "https://api.example.com/users",
				FetchedAt:  fetched,
			},
			"stats": {
				Data:       map[string]any{"total": float64(2)},
				StatusCode: 200,
				URL:        "https://api.example.com/stats",
				FetchedAt:  fetched,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("CSV")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, format)

	_, err = ParseFormat("parquet")
	require.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult()

	path, err := Write(dir, core.OutputSpec{Format: "json"}, result)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "users-api_exec-1.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var captures map[string]*core.EndpointCapture
	require.NoError(t, json.Unmarshal(raw, &captures))
	require.Len(t, captures, 2)
	require.Len(t, captures["users"].Data, 2)
}

func TestWriteJSONCustomFilename(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, core.OutputSpec{Format: "json", Filename: "snapshot"}, sampleResult())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "snapshot.json"), path)
}

func TestWriteCSVFlattensRecords(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, core.OutputSpec{Format: "csv"}, sampleResult())
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close() // nolint:errcheck // test cleanup

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	// Header plus one row per list element plus one for the single map.
	require.Len(t, rows, 4)

	header := rows[0]
	require.Equal(t, []string{"_endpoint", "_timestamp", "email", "total", "user_id", "user_name"}, header)

	// Captures are flattened in endpoint name order.
	require.Equal(t, "stats", rows[1][0])
	require.Equal(t, "users", rows[2][0])
	require.Contains(t, rows[2], "Ann")
	require.Contains(t, rows[3], "bob@example.com")
}

func TestWriteCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := Write(dir, core.OutputSpec{}, sampleResult())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, dir))

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestWriteNilResult(t *testing.T) {
	_, err := Write(t.TempDir(), core.OutputSpec{}, nil)
	require.Error(t, err)
}

func TestTableFormatterResult(t *testing.T) {
	result := sampleResult()
	result.DurationSeconds = 1.5
	result.EndpointsScraped = 2
	result.RecordsProcessed = 3
	result.OutputLocation = "output/users-api_exec-1.json"

	rendered := (&TableFormatter{}).FormatResult(result)
	require.Contains(t, rendered, "users-api")
	require.Contains(t, rendered, "completed")
	require.Contains(t, rendered, "1.50s")
	require.Contains(t, rendered, "output/users-api_exec-1.json")
}

func TestTableFormatterConfigs(t *testing.T) {
	infos := []*core.ConfigInfo{
		{Name: "users", BaseURL: "https://api.example.com", Endpoints: 2, AuthKind: core.AuthBearer, Enabled: true},
		{Name: "broken", Error: "base_url must be an absolute URL"},
	}

	rendered := (&TableFormatter{}).FormatConfigs(infos)
	require.Contains(t, rendered, "users")
	require.Contains(t, rendered, "https://api.example.com")
	require.Contains(t, rendered, "invalid: base_url must be an absolute URL")
}

package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/scrapeline/scrapeline/internal/core"
)

// TableFormatter renders run summaries and config listings as ASCII tables.
type TableFormatter struct{}

// FormatResult renders a job result summary as a table.
func (f *TableFormatter) FormatResult(result *core.JobResult) string {
	if result == nil {
		return ""
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Job ID", result.JobID},
		{"Config", result.ConfigName},
		{"Execution", result.ExecutionID},
		{"Status", string(result.Status)},
		{"Duration", fmt.Sprintf("%.2fs", result.DurationSeconds)},
		{"Endpoints scraped", result.EndpointsScraped},
		{"Endpoints skipped", result.EndpointsSkipped},
		{"Records processed", result.RecordsProcessed},
		{"Data size", formatBytes(result.DataSizeBytes)},
	})
	if result.OutputLocation != "" {
		t.AppendRow(table.Row{"Output", result.OutputLocation})
	}
	if result.ErrorMessage != "" {
		t.AppendRow(table.Row{"Error", result.ErrorMessage})
	}

	return t.Render()
}

// FormatConfigs renders config summaries as a table.
func (f *TableFormatter) FormatConfigs(infos []*core.ConfigInfo) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Description", "Base URL", "Endpoints", "Auth", "Enabled"})

	for _, info := range infos {
		if info == nil {
			continue
		}
		if info.Error != "" {
			t.AppendRow(table.Row{info.Name, "invalid: " + info.Error, "", "", "", ""})
			continue
		}
		t.AppendRow(table.Row{
			info.Name,
			truncateCell(info.Description, 40),
			info.BaseURL,
			info.Endpoints,
			string(info.AuthKind),
			info.Enabled,
		})
	}

	return t.Render()
}

// FormatRuns renders run history rows as a table, newest first.
func (f *TableFormatter) FormatRuns(runs []*core.JobResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Started", "Config", "Status", "Duration", "Scraped", "Skipped", "Records"})

	for _, run := range runs {
		if run == nil {
			continue
		}
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.DateTime),
			run.ConfigName,
			string(run.Status),
			fmt.Sprintf("%.2fs", run.DurationSeconds),
			run.EndpointsScraped,
			run.EndpointsSkipped,
			run.RecordsProcessed,
		})
	}

	return t.Render()
}

func formatBytes(size int) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func truncateCell(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

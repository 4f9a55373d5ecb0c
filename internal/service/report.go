package service

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary prints the counts of a run and a table of failed folders
// with advice.
func RenderSummary(w io.Writer, summary Summary) error {
	counts := table.NewWriter()
	counts.SetStyle(table.StyleRounded)
	counts.AppendHeader(table.Row{"Folders", "Succeeded", "Skipped", "Failed", "Duration"})
	counts.AppendRow(table.Row{
		summary.Total(),
		summary.Succeeded,
		summary.Skipped,
		summary.Failed,
		summary.Duration.Round(time.Second).String(),
	})
	counts.SetColumnConfigs(rightAligned(5))
	if _, err := fmt.Fprintln(w, counts.Render()); err != nil {
		return err
	}

	if summary.Failed == 0 {
		return nil
	}

	failed := table.NewWriter()
	failed.SetStyle(table.StyleRounded)
	failed.AppendHeader(table.Row{"Folder", "Reason", "Error", "Advice"})
	for _, r := range summary.Results {
		if r.Status != StatusFailed {
			continue
		}
		var message, advice string
		var ctxErr *CTXTransError
		if errors.As(r.Err, &ctxErr) {
			message = ctxErr.Message
			advice = GetAdvice(ctxErr)
		} else if r.Err != nil {
			message = r.Err.Error()
		}
		failed.AppendRow(table.Row{filepath.Base(r.Folder), string(r.Reason), message, advice})
	}
	failed.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 60},
		{Number: 4, WidthMax: 60},
	})
	_, err := fmt.Fprintln(w, failed.Render())
	return err
}

func rightAligned(columns int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, columns)
	for i := 1; i <= columns; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	return configs
}

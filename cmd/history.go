package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/batch-sub-translator/internal/persistence"
)

func newHistoryCommand() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run_id]",
		Short: "Show recorded runs, or the folder results of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("--history_db is required")
			}
			store, err := persistence.NewSQLiteStore(dbPath)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				results, err := store.ListResults(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(results) == 0 {
					return fmt.Errorf("run %s has no recorded results", args[0])
				}
				return renderResults(out, results)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			return renderRuns(out, runs)
		},
	}
	cmd.Flags().StringVar(&dbPath, "history_db", "", "SQLite file recording run history")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	return cmd
}

func renderRuns(w io.Writer, runs []persistence.RunRecord) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run", "Trigger", "Languages", "Model", "Started", "Duration", "OK", "Skipped", "Failed"})
	for _, r := range runs {
		duration := "running"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			r.ID,
			r.Trigger,
			r.SourceLang + " -> " + r.TargetLang,
			r.Model,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			r.Succeeded,
			r.Skipped,
			r.Failed,
		})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderResults(w io.Writer, results []persistence.ResultRecord) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Folder", "Status", "Reason", "Entries", "Fallback", "Duration", "Error"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Folder,
			r.Status,
			r.Reason,
			r.EntriesTotal,
			r.EntriesFallback,
			r.Duration.Round(time.Millisecond).String(),
			r.Error,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 7, WidthMax: 60}})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

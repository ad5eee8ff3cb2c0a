package main

import (
	"fmt"

	"github.com/Veraticus/packflow/internal/cli"
	"github.com/Veraticus/packflow/internal/config"
	"github.com/Veraticus/packflow/internal/storage"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
		Long:  `List recorded runs and show the defects and output tables of one run.`,
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyDefectsCmd())

	return cmd
}

func openHistory(cmd *cobra.Command) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.LoadOutputConfig().HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return store, nil
}

func historyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run with its output tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			outputs, err := store.GetOutputs(ctx, run.ID)
			if err != nil {
				return err
			}

			content := fmt.Sprintf("Started:   %s\nDuration:  %s\nStatus:    %s\nPipelines: %v\nDefects:   %d",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Duration(), run.Status, run.Pipelines, run.DefectCount)
			if run.Error != "" {
				content += "\n" + cli.FormatError(run.Error)
			}
			if len(run.StreamRows) > 0 {
				content += "\n\nInput rows:"
				for kind, n := range run.StreamRows {
					content += fmt.Sprintf("\n  • %-18s %d", kind, n)
				}
			}
			if len(outputs) > 0 {
				content += "\n\nOutputs:"
				for _, o := range outputs {
					content += fmt.Sprintf("\n  • %-18s %6d rows  %s", o.Table, o.Rows, o.Digest[:min(12, len(o.Digest))])
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Run "+run.ID, content))
			return nil
		},
	}
}

func historyDefectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defects RUN_ID",
		Short: "List the data defects of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := store.GetRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			report, err := store.GetDefects(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDefects(report, limit))
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "Maximum defects to list (0 for all)")
	return cmd
}

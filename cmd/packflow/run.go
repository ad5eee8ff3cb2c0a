package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/packflow/internal/blob"
	"github.com/Veraticus/packflow/internal/cli"
	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/config"
	"github.com/Veraticus/packflow/internal/engine"
	"github.com/Veraticus/packflow/internal/loader"
	"github.com/Veraticus/packflow/internal/metrics"
	"github.com/Veraticus/packflow/internal/runner"
	"github.com/Veraticus/packflow/internal/service"
	"github.com/Veraticus/packflow/internal/sheets"
	"github.com/Veraticus/packflow/internal/source"
	"github.com/Veraticus/packflow/internal/storage"
	"github.com/Veraticus/packflow/internal/xlsx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile the input streams and publish the reports",
		Long: `Read the packing-line streams, run the selected pipelines and write
every output table to the enabled sinks.

Inputs come from CSV files in a directory (one file per stream, named
after the stream) or from the tabs of a Google Sheets workbook. Outputs go
to xlsx workbooks (on disk, in a blob directory or in S3), Google Sheets
tabs and Postgres tables. Every run is recorded in the local history.`,
		Example: `  packflow run --input-dir ./exports --output-dir ./reports
  packflow run --pipeline mass-balance --start 2025-07-01 --postgres
  packflow run --source sheets --sheets --only-changed`,
		RunE: runRun,
	}

	cmd.Flags().StringSlice("pipeline", nil, "pipelines to run (time-trace, mass-balance, production); default all")
	cmd.Flags().String("source", "", "input source (csv, sheets)")
	cmd.Flags().String("input-dir", "", "directory holding one CSV per stream")
	cmd.Flags().String("delimiter", "", "CSV delimiter")
	cmd.Flags().String("taxonomy", "", "taxonomy YAML file")
	cmd.Flags().String("start", "", "drop events before this date (YYYY-MM-DD)")
	cmd.Flags().Float64("shrinkage-threshold", 0, "overweight fraction tolerated before shrinkage")
	cmd.Flags().String("output-dir", "", "write one xlsx workbook per table to this directory")
	cmd.Flags().String("blob-dir", "", "upload xlsx workbooks to this directory store")
	cmd.Flags().Bool("s3", false, "upload xlsx workbooks to S3")
	cmd.Flags().Bool("sheets", false, "write output tables to Google Sheets")
	cmd.Flags().Bool("postgres", false, "reload output tables into Postgres")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().Bool("only-changed", false, "skip tables unchanged since the last successful run")
	cmd.Flags().Bool("no-history", false, "do not record the run in the history database")

	_ = viper.BindPFlag("pipeline.pipelines", cmd.Flags().Lookup("pipeline"))
	_ = viper.BindPFlag("source.kind", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("source.dir", cmd.Flags().Lookup("input-dir"))
	_ = viper.BindPFlag("source.delimiter", cmd.Flags().Lookup("delimiter"))
	_ = viper.BindPFlag("pipeline.taxonomy_file", cmd.Flags().Lookup("taxonomy"))
	_ = viper.BindPFlag("pipeline.reporting_start", cmd.Flags().Lookup("start"))
	_ = viper.BindPFlag("output.xlsx_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("output.blob_dir", cmd.Flags().Lookup("blob-dir"))
	_ = viper.BindPFlag("output.s3.enabled", cmd.Flags().Lookup("s3"))
	_ = viper.BindPFlag("output.sheets", cmd.Flags().Lookup("sheets"))
	_ = viper.BindPFlag("output.postgres", cmd.Flags().Lookup("postgres"))
	_ = viper.BindPFlag("output.metrics_file", cmd.Flags().Lookup("metrics-file"))
	_ = viper.BindPFlag("output.only_changed", cmd.Flags().Lookup("only-changed"))
	_ = viper.BindPFlag("history.disabled", cmd.Flags().Lookup("no-history"))

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()
	out := config.LoadOutputConfig()

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), !out.SkipHistory)

	// The flag only overrides the configured threshold when given.
	if cmd.Flags().Changed("shrinkage-threshold") {
		v, _ := cmd.Flags().GetFloat64("shrinkage-threshold")
		viper.Set("pipeline.shrinkage_threshold", v)
	}

	pipelines, err := config.LoadPipelines()
	if err != nil {
		return err
	}
	engCfg, err := config.LoadPipelineConfig(logger)
	if err != nil {
		return common.NewUserError("invalid pipeline configuration", err)
	}
	eng, err := engine.New(engCfg)
	if err != nil {
		return err
	}

	src, err := openSource(ctx, logger)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := openSinks(ctx, out, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	if len(sinks) == 0 {
		logger.Warn("No sinks enabled; results are only summarized")
	}

	r := &runner.Runner{
		Source:      src,
		Engine:      eng,
		Sinks:       sinks,
		Logger:      logger,
		Metrics:     metrics.NewRecorder(),
		OnlyChanged: viper.GetBool("output.only_changed"),
	}

	if !out.SkipHistory {
		store, err := storage.NewSQLiteStorage(out.HistoryPath)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer func() { _ = store.Close() }()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate history: %w", err)
		}
		r.Store = store
	}

	report, runErr := r.Run(ctx, pipelines...)

	if out.MetricsFile != "" {
		if err := r.Metrics.WriteTextfile(out.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics textfile", "path", out.MetricsFile, "error", err)
		}
	}

	if report.Result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRunSummary(report.Result, report.Delivered, report.Run.Duration()))
		if report.Result.Defects.Len() > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDefects(report.Result.Defects, 10))
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Full list: packflow history defects "+report.Run.ID))
		}
	}
	if len(report.Unchanged) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Unchanged, not republished: %v", report.Unchanged)))
	}

	if runErr != nil && handler.WasInterrupted() {
		return common.NewUserError("run interrupted", runErr)
	}
	return runErr
}

func openSource(ctx context.Context, logger *slog.Logger) (service.Source, error) {
	cfg, err := config.LoadSourceConfig()
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case config.SourceSheets:
		sheetsCfg, err := config.LoadSheetsConfig()
		if err != nil {
			return nil, common.NewUserError("Google Sheets is not configured; run 'packflow auth sheets'", err)
		}
		reader, err := sheets.NewReader(ctx, *sheetsCfg, logger)
		if err != nil {
			return nil, err
		}
		return reader, nil
	default:
		csv := source.NewCSVDir(cfg.Dir)
		csv.Delimiter = cfg.Delimiter
		logger.Debug("Reading CSV streams", "dir", cfg.Dir)
		return csv, nil
	}
}

// openSinks builds the enabled sinks. The returned func releases their
// connections.
func openSinks(ctx context.Context, out config.OutputConfig, progress io.Writer, logger *slog.Logger) ([]service.Sink, func(), error) {
	var (
		sinks   []service.Sink
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var store blob.Store
	switch {
	case out.S3Enabled:
		s3cfg, err := config.LoadS3Config()
		if err != nil {
			return nil, closeAll, err
		}
		s3store, err := blob.NewS3Store(ctx, s3cfg)
		if err != nil {
			return nil, closeAll, err
		}
		store = s3store
	case out.FSBlobRoot != "":
		fsStore, err := blob.NewFSStore(out.FSBlobRoot)
		if err != nil {
			return nil, closeAll, err
		}
		store = fsStore
	}
	if out.XLSXDir != "" || store != nil {
		sinks = append(sinks, xlsx.NewWriter(out.XLSXDir, store, logger))
	}

	if out.Sheets {
		sheetsCfg, err := config.LoadSheetsConfig()
		if err != nil {
			return nil, closeAll, common.NewUserError("Google Sheets is not configured; run 'packflow auth sheets'", err)
		}
		w, err := sheets.NewWriter(ctx, *sheetsCfg, logger)
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, w)
	}

	if out.Postgres {
		pgCfg, err := config.LoadPostgresConfig()
		if err != nil {
			return nil, closeAll, err
		}
		pg, err := loader.NewPostgres(ctx, pgCfg, logger)
		if err != nil {
			return nil, closeAll, err
		}
		pg.Progress = cli.LoadProgress(progress, "Loading Postgres")
		closers = append(closers, func() { _ = pg.Close() })
		sinks = append(sinks, pg)
	}

	return sinks, closeAll, nil
}

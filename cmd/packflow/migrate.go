package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/packflow/internal/cli"
	"github.com/Veraticus/packflow/internal/config"
	"github.com/Veraticus/packflow/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run history database migrations",
		Long: `Initialize or update the run history schema to the latest version.

'packflow run' migrates automatically; use this command to check the
schema version or to take a backup before upgrading.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	cmd.Flags().String("backup", "", "Write a copy of the database to this path before migrating")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	backup, _ := cmd.Flags().GetString("backup")
	ctx := cmd.Context()

	dbPath := config.LoadOutputConfig().HistoryPath
	slog.Info("Opening run history", "database", dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		content := fmt.Sprintf("Database:        %s\nCurrent version: %d\nLatest version:  %d",
			dbPath, current, storage.ExpectedSchemaVersion)
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Migration Status", content))
		return nil
	}

	if backup != "" {
		backup = config.ExpandPath(backup)
		start := time.Now()
		if err := store.Backup(ctx, backup); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		slog.Info("Backup written", "path", backup, "duration", time.Since(start))
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if current == storage.ExpectedSchemaVersion {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Schema already at version %d", current)))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Migrated schema from version %d to %d", current, storage.ExpectedSchemaVersion)))
	}
	return nil
}

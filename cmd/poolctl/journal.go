package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolPilot/internal/model"
	"poolPilot/internal/storage"
	"poolPilot/internal/storage/postgres"
)

func runJournal(cmd *cobra.Command, _ []string) error {
	runID, _ := cmd.Flags().GetString("run")
	path, _ := cmd.Flags().GetString("journal")
	dsn, _ := cmd.Flags().GetString("pg-dsn")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var records []model.TxRecord
	if dsn != "" {
		if runID == "" {
			return fmt.Errorf("--run is required with --pg-dsn")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if records, err = store.LoadRun(ctx, runID); err != nil {
			return err
		}
	} else {
		if path == "" {
			return fmt.Errorf("journal path is required")
		}
		if records, err = storage.ReadJsonlJournal(path, runID); err != nil {
			return err
		}
	}

	logger.Debug("journal loaded", zap.Int("records", len(records)), zap.String("run", runID))
	return printJSON(records)
}

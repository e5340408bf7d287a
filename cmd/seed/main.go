package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clanhub/api/internal/repository"
	"github.com/clanhub/api/internal/seed"
	"github.com/clanhub/api/pkg/config"
	"github.com/clanhub/api/pkg/database"
	"github.com/clanhub/api/pkg/logger"
	"github.com/clanhub/api/pkg/utils"
)

const (
	exitFailure   = 1
	exitRowErrors = 2
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

type seedOptions struct {
	csvPath string
	verbose bool
}

func newSeedCmd(cfg *config.Config) *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:           "seed [path]",
		Short:         "Load clans from a CSV file, skipping names that already exist",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.csvPath = args[0]
			}
			return runSeed(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", cfg.SeedCSVPath, "CSV file with name,region[,created_at] columns")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print the outcome of every row")

	return cmd
}

func runSeed(ctx context.Context, cfg *config.Config, opts seedOptions) error {
	log := logger.L()

	if _, err := os.Stat(opts.csvPath); err != nil {
		return withCode(exitFailure, fmt.Errorf("csv file not found: %s", opts.csvPath))
	}
	sum, err := utils.FileSHA256Hex(opts.csvPath)
	if err != nil {
		return withCode(exitFailure, err)
	}
	log.Info("seeding clans", zap.String("path", opts.csvPath), zap.String("sha256", sum))

	db, err := database.Open(cfg)
	if err != nil {
		return withCode(exitFailure, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.NewInitializer(db, cfg.DBInitRetries).Run(ctx); err != nil {
		return withCode(exitFailure, err)
	}

	report, err := seed.New(repository.NewClanRepository(db)).RunFile(ctx, opts.csvPath)
	if err != nil {
		return withCode(exitFailure, err)
	}

	if opts.verbose {
		for _, row := range report.Rows {
			fmt.Fprintf(os.Stdout, "line %d: %s %q %s (created_at: %s)\n", row.Line, row.Outcome, row.Name, row.Reason, row.Timestamp)
		}
	}
	fmt.Fprintf(os.Stdout, "seed complete: %s\n", report)
	if report.TimestampFallbacks > 0 {
		log.Warn("rows used the current time for an unparseable created_at", zap.Int("rows", report.TimestampFallbacks))
	}
	if !report.OK() {
		return withCode(exitRowErrors, fmt.Errorf("%d rows failed", report.Errors))
	}
	return nil
}

func main() {
	cfg := config.MustLoad()
	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newSeedCmd(cfg).ExecuteContext(ctx); err != nil {
		code := exitFailure
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintln(os.Stderr, "seed:", err)
		logger.Sync()
		stop()
		os.Exit(code)
	}
}

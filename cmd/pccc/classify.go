package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/pccc/internal/classify"
	"github.com/gyeh/pccc/internal/codes"
	"github.com/gyeh/pccc/internal/db"
	"github.com/gyeh/pccc/internal/exitcode"
	"github.com/gyeh/pccc/internal/logging"
	"github.com/gyeh/pccc/internal/model"
	"github.com/gyeh/pccc/internal/pipeline"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify an encounter file and write the CCC flag matrix",
	RunE:  runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&cfg.InputPath, "in", "", "Encounter file, .parquet or .csv (required)")
	f.StringVar(&cfg.OutputPath, "out", "", "Result file, .parquet or .csv")
	f.StringVar(&cfg.OutputFormat, "out-format", "", "Result format: parquet or csv (default: from --out extension)")
	f.IntVar(&cfg.ReadBatch, "read-batch", pipeline.DefaultReadBatch, "Input rows classified per batch")
	f.BoolVar(&cfg.Normalize, "normalize", false, "Trim, upper-case and strip punctuation from input codes")
	f.BoolVar(&cfg.Store, "store", false, "COPY results into Postgres (requires --dsn)")
	f.BoolVar(&cfg.Force, "force", false, "Store again even if this input was already stored")
	f.DurationVar(&cfg.Timeout, "timeout", 0, "Abort the run after this long (0 = no limit)")
	_ = classifyCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(classifyCmd)
}

// runContext returns a context cancelled on SIGINT/SIGTERM and after cfg.Timeout.
func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if cfg.Timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	return ctx, func() { cancel(); stop() }
}

func runClassify(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx, cancel := runContext()
	defer cancel()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	var store pipeline.Store
	if cfg.Store {
		pool, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()
		store = pipeline.NewPGStore(pool, log)
	}

	summary, err := pipeline.Run(ctx, log, &cfg, store)
	if err != nil {
		log.Error().Err(err).Msg("classification failed")
		os.Exit(exitCodeFor(err))
	}

	fmt.Printf("Classified %d rows (%.1fs)\n", summary.RowsClassified, summary.DurationTotal.Seconds())
	for _, col := range model.ResultColumns() {
		fmt.Printf("  %-16s %d\n", col, summary.CategoryCounts[col])
	}
	if summary.OutputPath != "" {
		fmt.Printf("Results: %s\n", summary.OutputPath)
	}
	if summary.RunID != "" {
		fmt.Printf("Run:     %s (%d rows stored)\n", summary.RunID, summary.RowsStored)
	}
	return nil
}

// exitCodeFor maps a pipeline failure to a process exit code.
func exitCodeFor(err error) int {
	var (
		ce  *classify.CancelledError
		cfe *codes.ConfigError
		pe  *pipeline.PipelineError
	)
	switch {
	case errors.As(err, &ce):
		return exitcode.Cancelled
	case errors.As(err, &cfe):
		return exitcode.ValidationError
	case errors.As(err, &pe):
		switch pe.Phase {
		case "open", "read":
			return exitcode.ValidationError
		case "write", "store":
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return exitcode.Cancelled
			}
			return exitcode.CopyError
		}
	}
	return exitcode.ClassifyError
}

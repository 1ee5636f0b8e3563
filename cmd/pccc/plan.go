package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/pccc/internal/exitcode"
	"github.com/gyeh/pccc/internal/logging"
	"github.com/gyeh/pccc/internal/model"
	"github.com/gyeh/pccc/internal/pipeline"
)

var planSample int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run: validate an input and project CCC prevalence (no writes)",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&cfg.InputPath, "in", "", "Encounter file, .parquet or .csv (required)")
	f.IntVar(&planSample, "sample", 1000, "Rows to classify")
	f.BoolVar(&cfg.Normalize, "normalize", false, "Trim, upper-case and strip punctuation from input codes")
	_ = planCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx, cancel := runContext()
	defer cancel()

	if cfg.InputPath == "" {
		log.Error().Msg("--in is required")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.ValidateVersion(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	report, err := pipeline.Plan(ctx, log, &cfg, planSample)
	if err != nil {
		log.Error().Err(err).Msg("plan failed")
		os.Exit(exitCodeFor(err))
	}

	fmt.Println("=== pccc plan ===")
	fmt.Printf("File:        %s\n", report.InputPath)
	fmt.Printf("SHA-256:     %s\n", report.InputSHA256)
	fmt.Printf("Size:        %d bytes\n", report.SizeBytes)
	fmt.Printf("Total rows:  %d\n", report.TotalRows)
	fmt.Printf("ICD version: %d\n", cfg.Version)
	fmt.Printf("Sampled:     %d rows\n", report.Sampled)
	fmt.Println()
	fmt.Println("Prevalence (sampled → projected):")
	for _, col := range model.ResultColumns() {
		n := report.Counts[col]
		pct := 0.0
		if report.Sampled > 0 {
			pct = 100 * float64(n) / float64(report.Sampled)
		}
		fmt.Printf("  %-16s %6d (%5.1f%%) → ~%d\n", col, n, pct, report.Projected(col))
	}
	fmt.Println("\nSchema validation: OK")
	return nil
}

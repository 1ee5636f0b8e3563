package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/pccc/internal/config"
	"github.com/gyeh/pccc/internal/exitcode"
)

var (
	cfg        config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "pccc",
	Short: "Pediatric complex chronic condition classifier",
	Long: "Flags encounters with the twelve pediatric complex chronic condition categories " +
		"from their ICD-9-CM or ICD-10 diagnosis and procedure codes.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfigFile,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("PCCC_DB_URL"), "Postgres connection string (or set PCCC_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&configPath, "config", "", "Optional YAML config file")
	pf.IntVar(&cfg.Version, "icd-version", 10, "ICD version of the input codes: 9 or 10")
	pf.IntVar(&cfg.Workers, "workers", 0, "Classification workers (0 = number of CPUs)")
	pf.IntVar(&cfg.ChunkSize, "chunk-size", 0, "Rows per worker chunk (0 = default)")
}

// loadConfigFile merges --config into cfg. Flags given on the command line
// win over the file.
func loadConfigFile(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return nil
	}
	flagged := cfg
	if err := cfg.LoadFromFile(configPath); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("icd-version") {
		cfg.Version = flagged.Version
	}
	if flags.Changed("workers") {
		cfg.Workers = flagged.Workers
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = flagged.ChunkSize
	}
	if flags.Lookup("read-batch") != nil && flags.Changed("read-batch") {
		cfg.ReadBatch = flagged.ReadBatch
	}
	if flags.Lookup("normalize") != nil && flags.Changed("normalize") {
		cfg.Normalize = flagged.Normalize
	}
	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		cfg.Timeout = flagged.Timeout
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.UsageError)
	}
}

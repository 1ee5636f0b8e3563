package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/pccc/internal/codes"
	"github.com/gyeh/pccc/internal/exitcode"
	"github.com/gyeh/pccc/internal/logging"
	"github.com/gyeh/pccc/internal/model"
)

var codesFormat string

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Print the reference code tables for an ICD version",
	RunE:  runCodes,
}

func init() {
	codesCmd.Flags().StringVar(&codesFormat, "format", "yaml", "Output format: yaml or json")
	rootCmd.AddCommand(codesCmd)
}

// codesDoc is the printed form of a table set.
type codesDoc struct {
	Version int               `yaml:"version" json:"version"`
	Tables  []codes.TableInfo `yaml:"tables" json:"tables"`
}

func runCodes(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	ts, err := codes.Build(cfg.Version)
	if err != nil {
		log.Error().Err(err).Msg("build code tables")
		os.Exit(exitcode.ValidationError)
	}
	cats, err := cfg.SelectedCategories()
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if err := writeCodes(os.Stdout, ts, cats, codesFormat); err != nil {
		log.Error().Err(err).Msg("write code tables")
		os.Exit(exitcode.UsageError)
	}
	return nil
}

func writeCodes(w io.Writer, ts *codes.TableSet, cats []model.Category, format string) error {
	doc := codesDoc{Version: ts.Version(), Tables: ts.TablesFor(cats...)}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unknown format %q: want yaml or json", format)
	}
}

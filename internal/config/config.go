package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gyeh/pccc/internal/model"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a pccc run.
type Config struct {
	DSN          string
	InputPath    string
	OutputPath   string
	OutputFormat string // "parquet" or "csv"; inferred from OutputPath when empty
	LogFormat    string // "text" or "json"
	ListenAddr   string

	Version    int
	Workers    int
	ChunkSize  int
	ReadBatch  int  // rows read from the input per classify call
	Normalize  bool // trim, upper-case and strip punctuation from input codes
	Timeout    time.Duration
	Categories []string // categories printed by the codes command

	Store bool // COPY results into Postgres
	Force bool // store again even if this input was already stored
}

// yamlConfig is the on-disk YAML structure. Zero values leave flags untouched.
type yamlConfig struct {
	Version    int      `yaml:"version"`
	Workers    int      `yaml:"workers"`
	ChunkSize  int      `yaml:"chunk_size"`
	ReadBatch  int      `yaml:"read_batch"`
	Normalize  *bool    `yaml:"normalize"`
	Timeout    string   `yaml:"timeout"`
	Categories []string `yaml:"categories"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if yc.Version != 0 {
		c.Version = yc.Version
	}
	if yc.Workers != 0 {
		c.Workers = yc.Workers
	}
	if yc.ChunkSize != 0 {
		c.ChunkSize = yc.ChunkSize
	}
	if yc.ReadBatch != 0 {
		c.ReadBatch = yc.ReadBatch
	}
	if yc.Normalize != nil {
		c.Normalize = *yc.Normalize
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout %q: %w", yc.Timeout, err)
		}
		c.Timeout = d
	}
	c.Categories = yc.Categories
	return c.validateCategories()
}

// validateCategories checks that every entry in Categories is a known category
// name. If Categories is empty, it defaults to all twelve.
func (c *Config) validateCategories() error {
	if len(c.Categories) == 0 {
		c.Categories = make([]string, len(model.AllCategories))
		for i, cat := range model.AllCategories {
			c.Categories[i] = cat.String()
		}
		return nil
	}
	for _, name := range c.Categories {
		if _, ok := model.CategoryByName(name); !ok {
			return fmt.Errorf("unknown category %q in config", name)
		}
	}
	return nil
}

// SelectedCategories returns Categories resolved to model values, defaulting
// to all twelve.
func (c *Config) SelectedCategories() ([]model.Category, error) {
	if err := c.validateCategories(); err != nil {
		return nil, err
	}
	out := make([]model.Category, len(c.Categories))
	for i, name := range c.Categories {
		out[i], _ = model.CategoryByName(name)
	}
	return out, nil
}

// ValidateVersion checks that Version is a supported ICD version.
func (c *Config) ValidateVersion() error {
	if c.Version != 9 && c.Version != 10 {
		return fmt.Errorf("--icd-version must be 9 or 10, got %d", c.Version)
	}
	return nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("--in is required")
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		return fmt.Errorf("input not accessible: %w", err)
	}
	if err := c.ValidateVersion(); err != nil {
		return err
	}
	if c.OutputPath != "" {
		if _, err := c.ResolvedOutputFormat(); err != nil {
			return err
		}
	}
	if c.OutputPath == "" && !c.Store {
		return fmt.Errorf("--out or --store is required")
	}
	return nil
}

// ValidateWithDSN checks the run fields and, when storing, the DSN.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Store && c.DSN == "" {
		return fmt.Errorf("--dsn or PCCC_DB_URL is required with --store")
	}
	return nil
}

// ResolvedOutputFormat returns OutputFormat, or infers it from the output
// file extension.
func (c *Config) ResolvedOutputFormat() (string, error) {
	f := strings.ToLower(c.OutputFormat)
	if f == "" {
		switch {
		case strings.HasSuffix(strings.ToLower(c.OutputPath), ".parquet"):
			f = "parquet"
		case strings.HasSuffix(strings.ToLower(c.OutputPath), ".csv"):
			f = "csv"
		default:
			return "", fmt.Errorf("cannot infer output format from %q; set --out-format", c.OutputPath)
		}
	}
	if f != "parquet" && f != "csv" {
		return "", fmt.Errorf("unknown output format %q", f)
	}
	return f, nil
}

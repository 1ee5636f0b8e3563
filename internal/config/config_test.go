package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("version: 10\nworkers: 3\nchunk_size: 512\nnormalize: true\ntimeout: 30s\ncategories:\n  - cvd\n  - renal\n"), 0644)

	c := Config{Version: 9}
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.Version != 10 || c.Workers != 3 || c.ChunkSize != 512 || !c.Normalize {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", c.Timeout)
	}
	if len(c.Categories) != 2 || c.Categories[0] != "cvd" || c.Categories[1] != "renal" {
		t.Errorf("unexpected categories: %v", c.Categories)
	}
}

func TestLoadFromFile_KeepsFlagValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("chunk_size: 128\n"), 0644)

	c := Config{Version: 9, Workers: 8, Normalize: true}
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.Version != 9 || c.Workers != 8 || !c.Normalize || c.ChunkSize != 128 {
		t.Errorf("unexpected config: %+v", c)
	}
}

func TestLoadFromFile_UnknownCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("categories:\n  - cvd\n  - BOGUS\n"), 0644)

	var c Config
	if err := c.LoadFromFile(path); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestLoadFromFile_BadTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("timeout: soon\n"), 0644)

	var c Config
	if err := c.LoadFromFile(path); err == nil {
		t.Fatal("expected error for bad timeout")
	}
}

func TestLoadFromFile_EmptyDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("categories: []\n"), 0644)

	var c Config
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if len(c.Categories) != 12 {
		t.Errorf("expected 12 default categories, got %d: %v", len(c.Categories), c.Categories)
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	var c Config
	if err := c.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSelectedCategories(t *testing.T) {
	c := Config{Categories: []string{"neonatal", "gi"}}
	cats, err := c.SelectedCategories()
	if err != nil {
		t.Fatalf("SelectedCategories: %v", err)
	}
	if len(cats) != 2 || cats[0].String() != "neonatal" || cats[1].String() != "gi" {
		t.Errorf("unexpected categories: %v", cats)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.parquet")
	os.WriteFile(in, []byte("x"), 0644)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok parquet", Config{InputPath: in, OutputPath: "out.parquet", Version: 9}, false},
		{"ok csv store", Config{InputPath: in, OutputPath: "out.CSV", Version: 10, Store: true}, false},
		{"ok store only", Config{InputPath: in, Version: 10, Store: true}, false},
		{"missing input", Config{OutputPath: "out.csv", Version: 9}, true},
		{"input not found", Config{InputPath: filepath.Join(dir, "nope"), OutputPath: "out.csv", Version: 9}, true},
		{"bad version", Config{InputPath: in, OutputPath: "out.csv", Version: 7}, true},
		{"no output", Config{InputPath: in, Version: 9}, true},
		{"unknown extension", Config{InputPath: in, OutputPath: "out.txt", Version: 9}, true},
		{"explicit format", Config{InputPath: in, OutputPath: "out.txt", OutputFormat: "csv", Version: 9}, false},
		{"bad format", Config{InputPath: in, OutputPath: "out.csv", OutputFormat: "xlsx", Version: 9}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWithDSN(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	os.WriteFile(in, []byte("x"), 0644)

	c := Config{InputPath: in, Version: 9, Store: true}
	if err := c.ValidateWithDSN(); err == nil {
		t.Error("expected DSN error")
	}
	c.DSN = "postgres://localhost/db"
	if err := c.ValidateWithDSN(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

package recordio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/pccc/internal/model"
)

// RowReader streams encounter rows from an input file.
type RowReader interface {
	// Read fills rows and returns the number read. It returns io.EOF once the
	// input is exhausted, possibly together with a final n > 0.
	Read(rows []model.EncounterRow) (int, error)
	Close() error
}

// Open picks a reader by file extension: .parquet or .csv.
func Open(path string) (RowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		r, err := OpenParquet(path)
		if err != nil {
			return nil, err
		}
		if err := ValidateSchema(r.Schema()); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	case ".csv":
		return OpenCSV(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q: want .parquet or .csv", filepath.Ext(path))
	}
}

// ParquetReader wraps a parquet GenericReader for streaming EncounterRow records.
type ParquetReader struct {
	file   *os.File
	reader *parquet.GenericReader[model.EncounterRow]
}

// OpenParquet opens a Parquet file and returns a streaming reader.
func OpenParquet(path string) (*ParquetReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := parquet.NewGenericReader[model.EncounterRow](pf)
	return &ParquetReader{file: f, reader: r}, nil
}

// NumRows returns the total number of rows in the Parquet file.
func (r *ParquetReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records into the provided slice.
func (r *ParquetReader) Read(rows []model.EncounterRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// Schema returns the file's Parquet schema.
func (r *ParquetReader) Schema() *parquet.Schema {
	return r.reader.Schema()
}

// Close releases all resources.
func (r *ParquetReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// NormalizingReader applies fn to every row's codes as it is read.
type NormalizingReader struct {
	RowReader
	fn func(model.Record) model.Record
}

// WithNormalizer wraps r so that each row's dx and pc lists pass through fn.
func WithNormalizer(r RowReader, fn func(model.Record) model.Record) *NormalizingReader {
	return &NormalizingReader{RowReader: r, fn: fn}
}

func (r *NormalizingReader) Read(rows []model.EncounterRow) (int, error) {
	n, err := r.RowReader.Read(rows)
	for i := range n {
		rec := r.fn(rows[i].Record())
		rows[i].Dx, rows[i].Pc = rec.Dx, rec.Pc
	}
	return n, err
}

package recordio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/gyeh/pccc/internal/model"
)

// ResultWriter receives classified rows in input order.
type ResultWriter interface {
	// Write appends one row per result. ids may be nil or shorter than
	// results; missing ids are written empty.
	Write(ids []string, results []model.Result) error
	Close() error
	Count() int64
}

// Create opens a writer for path in the given format ("parquet" or "csv").
func Create(path, format string) (ResultWriter, error) {
	switch format {
	case "parquet":
		return NewParquetWriter(path)
	case "csv":
		return NewCSVWriter(path)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ParquetWriter writes ResultRow records with zstd compression.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[model.ResultRow]
	buf    []model.ResultRow
	count  int64
}

// NewParquetWriter creates path and returns a writer for result rows.
func NewParquetWriter(path string) (*ParquetWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}
	writer := parquet.NewGenericWriter[model.ResultRow](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.CreatedBy("pccc", "1.0", ""),
	)
	return &ParquetWriter{file: file, writer: writer}, nil
}

func (w *ParquetWriter) Write(ids []string, results []model.Result) error {
	w.buf = w.buf[:0]
	for i, r := range results {
		w.buf = append(w.buf, model.NewResultRow(idAt(ids, i), r))
	}
	n, err := w.writer.Write(w.buf)
	w.count += int64(n)
	if err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return nil
}

// Close flushes the final row group and closes the file.
func (w *ParquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

func (w *ParquetWriter) Count() int64 { return w.count }

// CSVWriter writes an id column followed by the 13 result columns as 0/1.
type CSVWriter struct {
	file   *os.File
	csv    *csv.Writer
	record []string
	count  int64
}

// NewCSVWriter creates path and writes the header row.
func NewCSVWriter(path string) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}
	w := &CSVWriter{file: file, csv: csv.NewWriter(file)}
	if err := w.csv.Write(append([]string{"id"}, model.ResultColumns()...)); err != nil {
		file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return w, nil
}

func (w *CSVWriter) Write(ids []string, results []model.Result) error {
	for i, r := range results {
		w.record = append(w.record[:0], idAt(ids, i))
		for _, v := range r.Values() {
			w.record = append(w.record, strconv.Itoa(v))
		}
		if err := w.csv.Write(w.record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		w.count++
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (w *CSVWriter) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return w.file.Close()
}

func (w *CSVWriter) Count() int64 { return w.count }

func idAt(ids []string, i int) string {
	if i < len(ids) {
		return ids[i]
	}
	return ""
}

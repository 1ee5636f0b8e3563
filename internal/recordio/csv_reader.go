package recordio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gyeh/pccc/internal/model"
)

var codeColRe = regexp.MustCompile(`^(dx|pc)_?\d*$`)

// CSVReader streams a wide encounter CSV: one row per encounter, an optional
// id column, and any number of dx* and pc* code columns. Empty cells are dropped.
type CSVReader struct {
	file   *os.File
	csv    *csv.Reader
	rowNum int64
	idIdx  int // -1 if there is no id column
	dxIdx  []int
	pcIdx  []int
}

// OpenCSV opens path and parses its header.
func OpenCSV(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	r, err := newCSVReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

func newCSVReader(src io.Reader) (*CSVReader, error) {
	br := bufio.NewReaderSize(src, 256*1024)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	r := &CSVReader{csv: cr, idIdx: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case name == "id":
			r.idIdx = i
		case codeColRe.MatchString(name) && strings.HasPrefix(name, "dx"):
			r.dxIdx = append(r.dxIdx, i)
		case codeColRe.MatchString(name):
			r.pcIdx = append(r.pcIdx, i)
		}
	}
	if len(r.dxIdx) == 0 && len(r.pcIdx) == 0 {
		return nil, fmt.Errorf("no dx or pc columns in csv header")
	}
	return r, nil
}

// Read fills rows with the next encounters.
func (r *CSVReader) Read(rows []model.EncounterRow) (int, error) {
	for n := range rows {
		rec, err := r.csv.Read()
		if err == io.EOF {
			return n, io.EOF
		}
		if err != nil {
			return n, fmt.Errorf("read csv row %d: %w", r.rowNum+1, err)
		}
		r.rowNum++

		row := model.EncounterRow{Dx: cells(rec, r.dxIdx), Pc: cells(rec, r.pcIdx)}
		if r.idIdx >= 0 && r.idIdx < len(rec) {
			row.ID = rec[r.idIdx]
		}
		rows[n] = row
	}
	return len(rows), nil
}

// cells copies the non-empty fields at idx. Short rows are tolerated.
func cells(rec []string, idx []int) []string {
	var out []string
	for _, i := range idx {
		if i < len(rec) && rec[i] != "" {
			out = append(out, rec[i])
		}
	}
	return out
}

// Close releases the underlying file.
func (r *CSVReader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// header maps lower-cased column names to their positions in a CSV header row.
type header map[string]int

// readHeader consumes the first record of r and verifies that every required
// column is present.
func readHeader(r *csv.Reader, required ...string) (header, error) {
	record, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	h := make(header, len(record))
	for i, name := range record {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return h, nil
}

func (h header) get(record []string, name string) string {
	return strings.TrimSpace(record[h[name]])
}

func (h header) getFloat(record []string, name string) (float64, error) {
	s := h.get(record, name)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: invalid number %q", name, s)
	}
	return v, nil
}

func (h header) getInt(record []string, name string) (int, error) {
	s := h.get(record, name)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %q: invalid integer %q", name, s)
	}
	return v, nil
}

// forEachRow opens path as CSV, reads its header, and invokes fn once per
// data row. Row numbers in errors are 1-based and include the header.
func forEachRow(path string, required []string, fn func(h header, record []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	h, err := readHeader(r, required...)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for row := 2; ; row++ {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}
		if err := fn(h, record); err != nil {
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}
	}
}

// internal/datalogger/output.go
package datalogger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimestampLayout is the wall-clock format written with every row.
const TimestampLayout = "2006-01-02 15:04:05"

// Output is one sink of measurement rows. The header is written once
// before the first row; every row is positionally aligned with it.
type Output interface {
	WriteHeader(names []string) error
	Log(timestamp time.Time, values []*float64) error
}

// CSVOutput appends measurement rows to a CSV file. The first column
// is the row timestamp. Rows whose length does not match the header
// are skipped, not written.
type CSVOutput struct {
	path      string
	delimiter rune
	headerLen int
	mutex     sync.Mutex
	logger    *zap.Logger
}

// NewCSVOutput creates a CSV sink, creating the file's directory if
// needed. The file itself is created when the header is written.
func NewCSVOutput(path string, delimiter rune, logger *zap.Logger) (*CSVOutput, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if delimiter == 0 {
		delimiter = ';'
	}

	return &CSVOutput{
		path:      path,
		delimiter: delimiter,
		logger:    logger.With(zap.String("component", "csv-output"), zap.String("path", path)),
	}, nil
}

// WriteHeader truncates the file and writes the header row, with the
// timestamp column first.
func (o *CSVOutput) WriteHeader(names []string) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	f, err := os.Create(o.path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = o.delimiter

	header := append([]string{"Time"}, names...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv header: %w", err)
	}

	o.headerLen = len(header)
	o.logger.Info("CSV header written", zap.Int("columns", o.headerLen))
	return nil
}

// Log appends one row. A length mismatch against the header skips the
// row with an error log instead of corrupting the file.
func (o *CSVOutput) Log(timestamp time.Time, values []*float64) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if len(values)+1 != o.headerLen {
		o.logger.Error("Mismatched row length, skipping row",
			zap.Int("row_length", len(values)+1),
			zap.Int("header_length", o.headerLen),
		)
		return nil
	}

	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = o.delimiter

	if err := w.Write(formatRow(timestamp, values)); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv row: %w", err)
	}

	return nil
}

// formatRow renders a measurement row; absent values become empty
// cells.
func formatRow(timestamp time.Time, values []*float64) []string {
	row := make([]string, 0, len(values)+1)
	row = append(row, timestamp.Format(TimestampLayout))
	for _, value := range values {
		if value == nil {
			row = append(row, "")
		} else {
			row = append(row, strconv.FormatFloat(*value, 'f', -1, 64))
		}
	}
	return row
}

// LatestStore keeps the most recent row for read-side consumers such
// as the HTTP API.
type LatestStore struct {
	mutex     sync.RWMutex
	header    []string
	values    []*float64
	timestamp time.Time
	cycles    int64
	seen      bool
}

// NewLatestStore creates an empty latest-row store.
func NewLatestStore() *LatestStore {
	return &LatestStore{}
}

// WriteHeader stores the header.
func (s *LatestStore) WriteHeader(names []string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.header = append([]string(nil), names...)
	return nil
}

// Log stores the row as the latest one.
func (s *LatestStore) Log(timestamp time.Time, values []*float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.values = append([]*float64(nil), values...)
	s.timestamp = timestamp
	s.cycles++
	s.seen = true
	return nil
}

// Latest returns the stored header, row and timestamp. ok is false
// until the first row arrives.
func (s *LatestStore) Latest() (header []string, values []*float64, timestamp time.Time, ok bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.seen {
		return nil, nil, time.Time{}, false
	}
	return s.header, s.values, s.timestamp, true
}

// Cycles returns the number of rows seen so far.
func (s *LatestStore) Cycles() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.cycles
}

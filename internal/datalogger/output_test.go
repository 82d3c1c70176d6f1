// internal/datalogger/output_test.go
package datalogger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readCSV(t *testing.T, path string, delimiter rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func floatPtr(f float64) *float64 { return &f }

func TestCSVOutputHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	output, err := NewCSVOutput(path, ';', zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, output.WriteHeader([]string{"t_a_5", "v_5", "vstar_5"}))

	timestamp := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, output.Log(timestamp, []*float64{floatPtr(21.5), floatPtr(0.32), floatPtr(0.04)}))
	require.NoError(t, output.Log(timestamp.Add(time.Second), []*float64{floatPtr(21.6), nil, floatPtr(0.05)}))

	records := readCSV(t, path, ';')
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Time", "t_a_5", "v_5", "vstar_5"}, records[0])
	assert.Equal(t, []string{"2026-03-15 10:30:00", "21.5", "0.32", "0.04"}, records[1])
	assert.Equal(t, []string{"2026-03-15 10:30:01", "21.6", "", "0.05"}, records[2])
}

func TestCSVOutputRewriteHeaderTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	output, err := NewCSVOutput(path, ';', zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, output.WriteHeader([]string{"t_a_5"}))
	require.NoError(t, output.Log(time.Now(), []*float64{floatPtr(1)}))
	require.NoError(t, output.WriteHeader([]string{"t_a_5"}))

	records := readCSV(t, path, ';')
	require.Len(t, records, 1)
}

func TestCSVOutputSkipsMismatchedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	output, err := NewCSVOutput(path, ';', zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, output.WriteHeader([]string{"t_a_5", "v_5"}))
	require.NoError(t, output.Log(time.Now(), []*float64{floatPtr(1)}))

	records := readCSV(t, path, ';')
	require.Len(t, records, 1)
}

func TestCSVOutputCustomDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	output, err := NewCSVOutput(path, ',', zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, output.WriteHeader([]string{"t_a_5"}))

	records := readCSV(t, path, ',')
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Time", "t_a_5"}, records[0])
}

func TestLatestStore(t *testing.T) {
	store := NewLatestStore()

	_, _, _, ok := store.Latest()
	assert.False(t, ok)
	assert.Equal(t, int64(0), store.Cycles())

	require.NoError(t, store.WriteHeader([]string{"t_a_5"}))
	timestamp := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.Log(timestamp, []*float64{floatPtr(21.5)}))

	header, values, got, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, []string{"t_a_5"}, header)
	require.Len(t, values, 1)
	assert.Equal(t, 21.5, *values[0])
	assert.Equal(t, timestamp, got)
	assert.Equal(t, int64(1), store.Cycles())

	require.NoError(t, store.Log(timestamp.Add(time.Second), []*float64{floatPtr(21.6)}))
	_, values, _, _ = store.Latest()
	assert.Equal(t, 21.6, *values[0])
	assert.Equal(t, int64(2), store.Cycles())
}

func TestLatestStoreEmptyRow(t *testing.T) {
	store := NewLatestStore()
	require.NoError(t, store.WriteHeader(nil))

	timestamp := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.Log(timestamp, nil))

	_, values, got, ok := store.Latest()
	require.True(t, ok)
	assert.Empty(t, values)
	assert.Equal(t, timestamp, got)
	assert.Equal(t, int64(1), store.Cycles())
}

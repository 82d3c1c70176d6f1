// internal/scanner/scanner_test.go
package scanner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensolog/internal/model"
)

// fakeBus simulates responders on a handful of addresses. Any address
// not present in the maps stays silent.
type fakeBus struct {
	names        map[int]string
	serials      map[int]string
	dates        map[int]string
	batteries    map[int]string
	configs      map[int]string
	indicators   map[int]float64
	thermChans   map[int]map[int]float64
	hygbarConfig map[int]int
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }

func (b *fakeBus) lookupStr(m map[int]string, address int) (*string, error) {
	if v, ok := m[address]; ok {
		return strPtr(v), nil
	}
	return nil, nil
}

func (b *fakeBus) ReadInstrumentName(_ context.Context, address int) (*string, error) {
	return b.lookupStr(b.names, address)
}

func (b *fakeBus) ReadSerialNumber(_ context.Context, address int) (*string, error) {
	return b.lookupStr(b.serials, address)
}

func (b *fakeBus) ReadCalibrationDate(_ context.Context, address int) (*string, error) {
	return b.lookupStr(b.dates, address)
}

func (b *fakeBus) ReadBatteryState(_ context.Context, address int) (*string, error) {
	return b.lookupStr(b.batteries, address)
}

func (b *fakeBus) AnemoReadConfiguration(_ context.Context, address int) (*string, error) {
	return b.lookupStr(b.configs, address)
}

func (b *fakeBus) AnemoReadIndicator(_ context.Context, address int) (*float64, error) {
	if v, ok := b.indicators[address]; ok {
		return f64Ptr(v), nil
	}
	return nil, nil
}

func (b *fakeBus) ThermReadConfiguration(_ context.Context, address int) (*string, error) {
	return b.lookupStr(b.configs, address)
}

func (b *fakeBus) ThermReadIndicator(_ context.Context, address, channel int) (*float64, error) {
	if channels, ok := b.thermChans[address]; ok {
		if v, ok := channels[channel]; ok {
			return f64Ptr(v), nil
		}
	}
	return nil, nil
}

func (b *fakeBus) HygBarReadConfiguration(_ context.Context, address int) (*int, error) {
	if v, ok := b.hygbarConfig[address]; ok {
		return intPtr(v), nil
	}
	return nil, nil
}

func TestScanSkipsSilentAddresses(t *testing.T) {
	bus := &fakeBus{
		names: map[int]string{
			5:  "ANEMO-2000",
			20: "THERM-AIR",
		},
		serials:    map[int]string{5: "A-001", 20: "T-007"},
		dates:      map[int]string{5: "15-03-26"},
		batteries:  map[int]string{5: "OK", 20: "LOW"},
		thermChans: map[int]map[int]float64{20: {1: 0.1, 2: 0.2, 3: 0.3, 4: 0.4}},
	}

	result, err := NewScanner(bus, zap.NewNop()).Scan(context.Background(), []int{0, 5, 10, 20})
	require.NoError(t, err)

	require.Len(t, result.List, 2)
	assert.Equal(t, 5, result.List[0].Address)
	assert.Equal(t, 20, result.List[1].Address)

	anemo := result.Instruments[5]
	require.NotNil(t, anemo)
	assert.Equal(t, model.FamilyAnemometer, anemo.Family)
	assert.Equal(t, "A-001", anemo.SerialNumber)
	assert.Equal(t, "2026-03-15", anemo.CalibrationExpiry)
	assert.Equal(t, "OK", anemo.BatteryState)

	therm := result.Instruments[20]
	require.NotNil(t, therm)
	assert.Equal(t, model.FamilyThermometer, therm.Family)
	assert.Equal(t, map[string]float64{
		"indicator_channel_1": 0.1,
		"indicator_channel_2": 0.2,
		"indicator_channel_3": 0.3,
		"indicator_channel_4": 0.4,
	}, therm.Indicators)
}

func TestScanNormalizesReportedName(t *testing.T) {
	bus := &fakeBus{names: map[int]string{9: "  anemo-2000 "}}

	result, err := NewScanner(bus, zap.NewNop()).Scan(context.Background(), []int{9})
	require.NoError(t, err)
	require.Len(t, result.List, 1)
	assert.Equal(t, "ANEMO-2000", result.Instruments[9].Name)
}

func TestScanFailsOnUnknownInstrumentName(t *testing.T) {
	bus := &fakeBus{names: map[int]string{
		3: "ANEMO-2000",
		7: "SONIC-1",
	}}

	_, err := NewScanner(bus, zap.NewNop()).Scan(context.Background(), []int{3, 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SONIC-1")
}

func TestScanReadsHygBarVariant(t *testing.T) {
	bus := &fakeBus{
		names:        map[int]string{40: "HYGRO-BARO"},
		hygbarConfig: map[int]int{40: 4},
	}

	result, err := NewScanner(bus, zap.NewNop()).Scan(context.Background(), []int{40})
	require.NoError(t, err)

	instrument := result.Instruments[40]
	require.NotNil(t, instrument)
	require.NotNil(t, instrument.SensorConfig)
	assert.Equal(t, 4, *instrument.SensorConfig)
	assert.Equal(t, 4, result.List[0].SensorConfig)
}

func TestFullRange(t *testing.T) {
	addresses := FullRange()
	require.Len(t, addresses, 256)
	assert.Equal(t, 0, addresses[0])
	assert.Equal(t, 255, addresses[255])
}

func TestLoadKnownAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_addresses.json")
	require.NoError(t, os.WriteFile(path, []byte(`["5", "20", " 42 "]`), 0o644))

	addresses, err := LoadKnownAddresses(path)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 20, 42}, addresses)
}

func TestLoadKnownAddressesErrors(t *testing.T) {
	_, err := LoadKnownAddresses(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`["5", "twenty"]`), 0o644))
	_, err = LoadKnownAddresses(path)
	assert.Error(t, err)
}

func TestNormalizeCalibrationDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"15-03-26", "2026-03-15"},
		{"01.12.25", "2025-12-01"},
		{"2026-03-15", "2026-03-15"},
		{"soon", "soon"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCalibrationDate(tt.raw), "raw %q", tt.raw)
	}
}

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	result := &Result{Instruments: map[int]*model.Instrument{
		5: {Address: 5, Name: "ANEMO-2000", Family: model.FamilyAnemometer},
	}}

	path, err := result.WriteSnapshot(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SnapshotFileName), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var snapshot map[string]*model.Instrument
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	require.Contains(t, snapshot, "5")
	assert.Equal(t, "ANEMO-2000", snapshot["5"].Name)
}

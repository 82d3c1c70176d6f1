// internal/scanner/scanner.go
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sensolog/internal/model"
)

// BusAddressSpace is the full candidate address range of the bus.
const (
	BusAddressMin = 0
	BusAddressMax = 255
)

// ScanClient covers the instrument reads issued during discovery.
// A nil result with a nil error means the address did not answer.
type ScanClient interface {
	ReadInstrumentName(ctx context.Context, address int) (*string, error)
	ReadSerialNumber(ctx context.Context, address int) (*string, error)
	ReadCalibrationDate(ctx context.Context, address int) (*string, error)
	ReadBatteryState(ctx context.Context, address int) (*string, error)
	AnemoReadConfiguration(ctx context.Context, address int) (*string, error)
	AnemoReadIndicator(ctx context.Context, address int) (*float64, error)
	ThermReadConfiguration(ctx context.Context, address int) (*string, error)
	ThermReadIndicator(ctx context.Context, address, channel int) (*float64, error)
	HygBarReadConfiguration(ctx context.Context, address int) (*int, error)
}

// Scanner discovers instruments on the bus.
type Scanner struct {
	client ScanClient
	logger *zap.Logger
}

// NewScanner creates a new bus scanner.
func NewScanner(client ScanClient, logger *zap.Logger) *Scanner {
	return &Scanner{
		client: client,
		logger: logger.With(zap.String("component", "scanner")),
	}
}

// Result holds the outcome of one bus scan: the full records keyed by
// address and their ordered projection.
type Result struct {
	Instruments map[int]*model.Instrument
	List        model.InstrumentList
}

// FullRange returns the complete candidate address list of the bus.
func FullRange() []int {
	addresses := make([]int, 0, BusAddressMax-BusAddressMin+1)
	for a := BusAddressMin; a <= BusAddressMax; a++ {
		addresses = append(addresses, a)
	}
	return addresses
}

// LoadKnownAddresses reads a JSON array of integer-valued strings and
// parses each entry into a bus address.
func LoadKnownAddresses(path string) ([]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read known addresses file: %w", err)
	}

	var entries []string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse known addresses file %s: %w", path, err)
	}

	addresses := make([]int, 0, len(entries))
	for _, entry := range entries {
		address, err := strconv.Atoi(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("invalid address %q in %s: %w", entry, path, err)
		}
		addresses = append(addresses, address)
	}
	return addresses, nil
}

// Scan queries every candidate address for its identity and reads the
// family-specific attribute set of each responder. Addresses that stay
// silent are skipped; a responder with an unrecognized instrument name
// fails the whole scan.
func (s *Scanner) Scan(ctx context.Context, addresses []int) (*Result, error) {
	result := &Result{
		Instruments: make(map[int]*model.Instrument),
	}

	for _, address := range addresses {
		s.logger.Debug("Scanning bus address", zap.Int("address", address))

		name, err := s.client.ReadInstrumentName(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("identity query at address %d failed: %w", address, err)
		}
		if name == nil {
			continue
		}

		instrument, err := s.readInstrument(ctx, address, *name)
		if err != nil {
			return nil, err
		}

		s.logger.Info("Found instrument",
			zap.Int("address", address),
			zap.String("instrument_name", instrument.Name),
			zap.String("family", string(instrument.Family)),
		)

		result.Instruments[address] = instrument
		result.List = append(result.List, model.NewListEntry(instrument))
	}

	s.logger.Info("Bus scan completed",
		zap.Int("addresses_scanned", len(addresses)),
		zap.Int("instruments_found", len(result.List)),
	)

	return result, nil
}

// readInstrument reads the common and family-specific attributes of one
// responder into an immutable record.
func (s *Scanner) readInstrument(ctx context.Context, address int, rawName string) (*model.Instrument, error) {
	name := strings.ToUpper(strings.TrimSpace(rawName))

	family, err := model.ClassifyInstrument(name)
	if err != nil {
		return nil, fmt.Errorf("address %d: %w", address, err)
	}

	instrument := &model.Instrument{
		Address: address,
		Name:    name,
		Family:  family,
	}

	if serial, err := s.client.ReadSerialNumber(ctx, address); err != nil {
		return nil, fmt.Errorf("address %d: serial number read failed: %w", address, err)
	} else if serial != nil {
		instrument.SerialNumber = *serial
	}

	if date, err := s.client.ReadCalibrationDate(ctx, address); err != nil {
		return nil, fmt.Errorf("address %d: calibration date read failed: %w", address, err)
	} else if date != nil {
		instrument.CalibrationExpiry = NormalizeCalibrationDate(*date)
	}

	if battery, err := s.client.ReadBatteryState(ctx, address); err != nil {
		return nil, fmt.Errorf("address %d: battery state read failed: %w", address, err)
	} else if battery != nil {
		instrument.BatteryState = *battery
	}

	switch family {
	case model.FamilyAnemometer:
		if cfg, err := s.client.AnemoReadConfiguration(ctx, address); err != nil {
			return nil, fmt.Errorf("address %d: configuration read failed: %w", address, err)
		} else if cfg != nil {
			instrument.Configuration = *cfg
		}
		if indicator, err := s.client.AnemoReadIndicator(ctx, address); err != nil {
			return nil, fmt.Errorf("address %d: indicator read failed: %w", address, err)
		} else if indicator != nil {
			instrument.Indicators = map[string]float64{"indicator": *indicator}
		}

	case model.FamilyThermometer:
		if cfg, err := s.client.ThermReadConfiguration(ctx, address); err != nil {
			return nil, fmt.Errorf("address %d: configuration read failed: %w", address, err)
		} else if cfg != nil {
			instrument.Configuration = *cfg
		}
		indicators := make(map[string]float64)
		for channel := 1; channel <= 4; channel++ {
			indicator, err := s.client.ThermReadIndicator(ctx, address, channel)
			if err != nil {
				return nil, fmt.Errorf("address %d: indicator channel %d read failed: %w", address, channel, err)
			}
			if indicator != nil {
				indicators[fmt.Sprintf("indicator_channel_%d", channel)] = *indicator
			}
		}
		if len(indicators) > 0 {
			instrument.Indicators = indicators
		}

	case model.FamilyHygroBarometer:
		variant, err := s.client.HygBarReadConfiguration(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("address %d: sensor config read failed: %w", address, err)
		}
		if variant != nil {
			instrument.SensorConfig = variant
		}
	}

	return instrument, nil
}

// Calibration expiry formats accepted from the instruments, tried in
// order.
var calibrationDateLayouts = []string{"02-01-06", "02.01.06"}

// NormalizeCalibrationDate converts a calibration expiry string to ISO
// form (YYYY-MM-DD). Best effort: a string matching neither accepted
// layout is returned unchanged.
func NormalizeCalibrationDate(raw string) string {
	for _, layout := range calibrationDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// SnapshotFileName is the discovered-instruments snapshot written to
// the output directory after a successful scan.
const SnapshotFileName = "FoundDevices.json"

// WriteSnapshot persists the scan result as a JSON mapping from
// address string to full instrument record.
func (r *Result) WriteSnapshot(dir string) (string, error) {
	snapshot := make(map[string]*model.Instrument, len(r.Instruments))
	for address, instrument := range r.Instruments {
		snapshot[strconv.Itoa(address)] = instrument
	}

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal instrument snapshot: %w", err)
	}

	path := filepath.Join(dir, SnapshotFileName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write instrument snapshot: %w", err)
	}
	return path, nil
}

// internal/repository/measurement_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sensolog/internal/database"
	"sensolog/internal/model"
)

// MeasurementRepository persists discovered instruments and measurement
// rows.
type MeasurementRepository interface {
	SaveInstruments(ctx context.Context, instruments map[int]*model.Instrument) error
	SaveRow(ctx context.Context, runID uuid.UUID, recordedAt time.Time, parameters []string, values []*float64) error
}

// measurementRepository implements MeasurementRepository
type measurementRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewMeasurementRepository creates a new measurement repository
func NewMeasurementRepository(db *database.DB, logger *zap.Logger) MeasurementRepository {
	return &measurementRepository{
		db:     db,
		logger: logger,
	}
}

// SaveInstruments upserts the scan result
func (r *measurementRepository) SaveInstruments(ctx context.Context, instruments map[int]*model.Instrument) error {
	query := `
		INSERT INTO instruments (
			address, instrument_name, family, serial_number,
			calibration_expiry, battery_state, sensor_config, discovered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (address) DO UPDATE SET
			instrument_name = EXCLUDED.instrument_name,
			family = EXCLUDED.family,
			serial_number = EXCLUDED.serial_number,
			calibration_expiry = EXCLUDED.calibration_expiry,
			battery_state = EXCLUDED.battery_state,
			sensor_config = EXCLUDED.sensor_config,
			discovered_at = EXCLUDED.discovered_at
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, instrument := range instruments {
		_, err := tx.ExecContext(ctx, query,
			instrument.Address, instrument.Name, instrument.Family,
			instrument.SerialNumber, instrument.CalibrationExpiry,
			instrument.BatteryState, instrument.SensorConfig, now,
		)
		if err != nil {
			r.logger.Error("Failed to save instrument",
				zap.Error(err),
				zap.Int("address", instrument.Address),
			)
			return fmt.Errorf("failed to save instrument %d: %w", instrument.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit instruments: %w", err)
	}

	r.logger.Info("Instruments saved", zap.Int("count", len(instruments)))
	return nil
}

// SaveRow stores one measurement row, one record per parameter. Absent
// values are stored as NULL so a degraded cycle stays visible.
func (r *measurementRepository) SaveRow(ctx context.Context, runID uuid.UUID, recordedAt time.Time, parameters []string, values []*float64) error {
	if len(parameters) != len(values) {
		return fmt.Errorf("mismatched row length %d and parameter count %d", len(values), len(parameters))
	}

	query := `
		INSERT INTO measurements (run_id, recorded_at, parameter, value)
		VALUES ($1, $2, $3, $4)
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, parameter := range parameters {
		var value interface{}
		if values[i] != nil {
			value = *values[i]
		}
		if _, err := tx.ExecContext(ctx, query, runID, recordedAt, parameter, value); err != nil {
			return fmt.Errorf("failed to save measurement %s: %w", parameter, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit measurements: %w", err)
	}

	return nil
}

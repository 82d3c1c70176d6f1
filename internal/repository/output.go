// internal/repository/output.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostgresOutput adapts the measurement repository to the data logger's
// output contract.
type PostgresOutput struct {
	repo    MeasurementRepository
	runID   uuid.UUID
	header  []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPostgresOutput creates a database measurement sink for one run.
func NewPostgresOutput(repo MeasurementRepository, runID uuid.UUID, logger *zap.Logger) *PostgresOutput {
	return &PostgresOutput{
		repo:    repo,
		runID:   runID,
		timeout: 10 * time.Second,
		logger:  logger.With(zap.String("component", "postgres-output")),
	}
}

// WriteHeader stores the parameter names; rows are matched against them
// positionally.
func (o *PostgresOutput) WriteHeader(names []string) error {
	o.header = append([]string(nil), names...)
	return nil
}

// Log persists one measurement row.
func (o *PostgresOutput) Log(timestamp time.Time, values []*float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	return o.repo.SaveRow(ctx, o.runID, timestamp, o.header, values)
}

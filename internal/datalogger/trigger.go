// internal/datalogger/trigger.go
package datalogger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DataSource delivers one ordered measurement row per invocation,
// positionally aligned with its fixed header.
type DataSource interface {
	Header() []string
	Read(ctx context.Context) []*float64
}

// TimeTrigger drives a data source at a fixed wall-clock interval and
// fans every row out to all outputs.
type TimeTrigger struct {
	source   DataSource
	outputs  []Output
	interval time.Duration
	duration time.Duration
	runID    uuid.UUID
	logger   *zap.Logger
}

// NewTimeTrigger creates a time-triggered logging loop identified by
// runID. A zero duration runs until the context is cancelled.
func NewTimeTrigger(source DataSource, outputs []Output, interval, duration time.Duration, runID uuid.UUID, logger *zap.Logger) (*TimeTrigger, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("logging interval %v must be greater than 0", interval)
	}
	if duration < 0 {
		return nil, fmt.Errorf("logging duration %v must be 0 (infinite) or greater", duration)
	}

	return &TimeTrigger{
		source:   source,
		outputs:  outputs,
		interval: interval,
		duration: duration,
		runID:    runID,
		logger: logger.With(
			zap.String("component", "datalogger"),
			zap.String("run_id", runID.String()),
		),
	}, nil
}

// RunID identifies this logging run.
func (t *TimeTrigger) RunID() uuid.UUID {
	return t.runID
}

// Run writes the header to every output, then reads and logs one row
// per interval until the duration elapses or the context is cancelled.
// Per-cycle output failures are logged and do not stop the loop.
func (t *TimeTrigger) Run(ctx context.Context) error {
	header := t.source.Header()
	for _, output := range t.outputs {
		if err := output.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	start := time.Now()
	var end time.Time
	if t.duration > 0 {
		end = start.Add(t.duration)
		t.logger.Info("Starting data logging",
			zap.Duration("interval", t.interval),
			zap.Time("estimated_end", end),
		)
	} else {
		t.logger.Info("Starting data logging",
			zap.Duration("interval", t.interval),
			zap.String("estimated_end", "infinite"),
		)
	}

	next := start
	var cycles int64

	for end.IsZero() || time.Now().Before(end) {
		if err := ctx.Err(); err != nil {
			t.logger.Warn("Data logging stopped manually", zap.Int64("cycles", cycles))
			return nil
		}

		next = next.Add(t.interval)
		timestamp := time.Now()

		row := t.source.Read(ctx)
		cycles++

		for _, output := range t.outputs {
			if err := output.Log(timestamp, row); err != nil {
				t.logger.Warn("Output write failed", zap.Error(err))
			}
		}
		t.logger.Debug("Logged measurement row", zap.Int64("cycle", cycles))

		sleep := time.Until(next)
		if sleep <= 0 {
			t.logger.Warn("Read cycle overran the logging interval",
				zap.Duration("overrun", -sleep),
			)
			continue
		}

		select {
		case <-ctx.Done():
			t.logger.Warn("Data logging stopped manually", zap.Int64("cycles", cycles))
			return nil
		case <-time.After(sleep):
		}
	}

	t.logger.Info("Data logging completed", zap.Int64("cycles", cycles))
	return nil
}

// internal/source/source.go
package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sensolog/internal/model"
	"sensolog/internal/sensosys"
	"sensolog/internal/utils"
)

// MeasurementClient covers the per-family measurement reads issued on
// every cycle. A nil result with a nil error means the instrument did
// not answer this cycle.
type MeasurementClient interface {
	AnemoReadMeasurement(ctx context.Context, address int) (*sensosys.AnemoMeasurement, error)
	ThermReadTemperatures(ctx context.Context, address int) (*sensosys.ThermTemperatures, error)
	HygBarReadMeasurement(ctx context.Context, address, variant int) (*sensosys.HygBarMeasurement, error)
}

// Source flattens the readings of a fixed instrument list into one
// ordered row per cycle. The header is generated once; every row it
// produces is positionally aligned with it. A nil value marks a
// parameter whose instrument did not deliver this cycle.
type Source struct {
	instruments model.InstrumentList
	client      MeasurementClient
	header      []string
	loggers     []*utils.InstrumentLogger
}

// New creates a measurement source for a fixed instrument list.
func New(instruments model.InstrumentList, client MeasurementClient, logger *zap.Logger) *Source {
	header := make([]string, 0, len(instruments)*4)
	loggers := make([]*utils.InstrumentLogger, 0, len(instruments))
	for _, entry := range instruments {
		for _, parameter := range entry.Family.Parameters(entry.SensorConfig) {
			header = append(header, fmt.Sprintf("%s_%d", parameter, entry.Address))
		}
		loggers = append(loggers, utils.NewInstrumentLogger(logger, entry.Address, entry.Name, string(entry.Family)))
	}

	return &Source{
		instruments: instruments,
		client:      client,
		header:      header,
		loggers:     loggers,
	}
}

// Header returns the parameter names of every instrument, suffixed by
// its bus address, in list order.
func (s *Source) Header() []string {
	return s.header
}

// Read performs one read per instrument and returns the combined row.
// A failed or missing per-instrument read degrades that instrument's
// contribution to nil values; it never aborts the cycle.
func (s *Source) Read(ctx context.Context) []*float64 {
	row := make([]*float64, 0, len(s.header))
	for i, entry := range s.instruments {
		row = append(row, s.readInstrument(ctx, entry, s.loggers[i])...)
	}
	return row
}

// readInstrument reads one instrument's contribution to the row.
func (s *Source) readInstrument(ctx context.Context, entry model.ListEntry, logger *utils.InstrumentLogger) []*float64 {
	width := len(entry.Family.Parameters(entry.SensorConfig))
	start := time.Now()

	var (
		values []float64
		err    error
	)

	switch entry.Family {
	case model.FamilyAnemometer:
		var m *sensosys.AnemoMeasurement
		m, err = s.client.AnemoReadMeasurement(ctx, entry.Address)
		if m != nil {
			values = []float64{m.TA, m.V, m.VStar}
		}
	case model.FamilyThermometer:
		var m *sensosys.ThermTemperatures
		m, err = s.client.ThermReadTemperatures(ctx, entry.Address)
		if m != nil {
			values = []float64{m.TA, m.TG, m.TW, m.TS}
		}
	case model.FamilyHygroBarometer:
		var m *sensosys.HygBarMeasurement
		m, err = s.client.HygBarReadMeasurement(ctx, entry.Address, entry.SensorConfig)
		if m != nil {
			values = m.Values
		}
	}

	logger.LogRead("measurement", time.Since(start), err)

	if err != nil {
		return make([]*float64, width)
	}
	if values == nil {
		logger.Warn("No data received from instrument")
		return make([]*float64, width)
	}
	if len(values) != width {
		logger.Warn("Instrument returned unexpected value count",
			zap.Int("expected", width),
			zap.Int("got", len(values)),
		)
		return make([]*float64, width)
	}

	row := make([]*float64, width)
	for i := range values {
		v := values[i]
		row[i] = &v
	}
	return row
}

// internal/sensosys/client.go
package sensosys

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"sensolog/internal/model"
)

// Transport performs one request/response exchange on the bus.
type Transport interface {
	RoundTrip(ctx context.Context, request []byte) ([]byte, error)
}

// Client issues instrument operations over a bus transport. Every read
// addresses exactly one instrument; an instrument that does not answer
// within the timeout yields a nil result and no error.
type Client struct {
	transport Transport
	logger    *zap.Logger
}

// NewClient creates a new instrument client.
func NewClient(transport Transport, logger *zap.Logger) *Client {
	return &Client{
		transport: transport,
		logger:    logger.With(zap.String("component", "sensosys-client")),
	}
}

// AnemoMeasurement is one anemometer reading.
type AnemoMeasurement struct {
	TA    float64 `json:"t_a"`
	V     float64 `json:"v"`
	VStar float64 `json:"v_star"`
}

// ThermTemperatures is one thermometer reading over its four channels.
type ThermTemperatures struct {
	TA float64 `json:"t_a"`
	TG float64 `json:"t_g"`
	TW float64 `json:"t_w"`
	TS float64 `json:"t_s"`
}

// HygBarMeasurement is one hygro/barometer reading. Values are ordered
// like the parameter set of the unit's sensor-config variant.
type HygBarMeasurement struct {
	Values []float64 `json:"values"`
}

// exchange runs one command and returns the response payload. A silent
// address is reported as ("", false, nil).
func (c *Client) exchange(ctx context.Context, address int, command, args string) (string, bool, error) {
	frame, err := c.transport.RoundTrip(ctx, buildCommand(address, command, args))
	if err != nil {
		if errors.Is(err, ErrNoResponse) {
			c.logger.Debug("No response from address",
				zap.Int("address", address),
				zap.String("command", command),
			)
			return "", false, nil
		}
		return "", false, err
	}

	respAddr, payload, err := parseResponse(frame)
	if err != nil {
		c.logger.Debug("Discarding malformed response frame",
			zap.Int("address", address),
			zap.String("command", command),
			zap.Error(err),
		)
		return "", false, fmt.Errorf("address %d command %s: %w", address, command, err)
	}
	if respAddr != address {
		return "", false, fmt.Errorf("address %d command %s: %w: response from address %d",
			address, command, ErrBadFrame, respAddr)
	}

	return payload, true, nil
}

// ReadInstrumentName reads the identity string of an instrument.
// A nil result means the address did not answer.
func (c *Client) ReadInstrumentName(ctx context.Context, address int) (*string, error) {
	payload, ok, err := c.exchange(ctx, address, cmdReadName, "")
	if err != nil || !ok {
		return nil, err
	}
	return &payload, nil
}

// ReadSerialNumber reads the factory serial number.
func (c *Client) ReadSerialNumber(ctx context.Context, address int) (*string, error) {
	payload, ok, err := c.exchange(ctx, address, cmdReadSerialNumber, "")
	if err != nil || !ok {
		return nil, err
	}
	return &payload, nil
}

// ReadCalibrationDate reads the calibration expiry date as reported by
// the instrument, without any normalization.
func (c *Client) ReadCalibrationDate(ctx context.Context, address int) (*string, error) {
	payload, ok, err := c.exchange(ctx, address, cmdReadCalibrationDate, "")
	if err != nil || !ok {
		return nil, err
	}
	return &payload, nil
}

// ReadBatteryState reads the battery state string.
func (c *Client) ReadBatteryState(ctx context.Context, address int) (*string, error) {
	payload, ok, err := c.exchange(ctx, address, cmdReadBatteryState, "")
	if err != nil || !ok {
		return nil, err
	}
	return &payload, nil
}

// AnemoReadConfiguration reads an anemometer's configuration register.
func (c *Client) AnemoReadConfiguration(ctx context.Context, address int) (*string, error) {
	payload, ok, err := c.exchange(ctx, address, cmdAnemoConfiguration, "")
	if err != nil || !ok {
		return nil, err
	}
	return &payload, nil
}

// AnemoReadIndicator reads an anemometer's indicator channel.
func (c *Client) AnemoReadIndicator(ctx context.Context, address int) (*float64, error) {
	payload, ok, err := c.exchange(ctx, address, cmdAnemoIndicator, "")
	if err != nil || !ok {
		return nil, err
	}
	values, err := parseFloats(payload, 1)
	if err != nil {
		return nil, err
	}
	return &values[0], nil
}

// AnemoReadMeasurement reads one anemometer measurement cycle.
func (c *Client) AnemoReadMeasurement(ctx context.Context, address int) (*AnemoMeasurement, error) {
	payload, ok, err := c.exchange(ctx, address, cmdAnemoMeasurement, "")
	if err != nil || !ok {
		return nil, err
	}
	values, err := parseFloats(payload, 3)
	if err != nil {
		return nil, err
	}
	return &AnemoMeasurement{TA: values[0], V: values[1], VStar: values[2]}, nil
}

// ThermReadConfiguration reads a thermometer's configuration register.
func (c *Client) ThermReadConfiguration(ctx context.Context, address int) (*string, error) {
	payload, ok, err := c.exchange(ctx, address, cmdThermConfiguration, "")
	if err != nil || !ok {
		return nil, err
	}
	return &payload, nil
}

// ThermReadIndicator reads one of the four thermometer indicator
// channels (1-4).
func (c *Client) ThermReadIndicator(ctx context.Context, address, channel int) (*float64, error) {
	if channel < 1 || channel > 4 {
		return nil, fmt.Errorf("invalid thermometer channel %d", channel)
	}

	payload, ok, err := c.exchange(ctx, address, cmdThermIndicator, strconv.Itoa(channel))
	if err != nil || !ok {
		return nil, err
	}
	values, err := parseFloats(payload, 1)
	if err != nil {
		return nil, err
	}
	return &values[0], nil
}

// ThermReadTemperatures reads the temperatures of all enabled channels.
func (c *Client) ThermReadTemperatures(ctx context.Context, address int) (*ThermTemperatures, error) {
	payload, ok, err := c.exchange(ctx, address, cmdThermTemperatures, "")
	if err != nil || !ok {
		return nil, err
	}
	values, err := parseFloats(payload, 4)
	if err != nil {
		return nil, err
	}
	return &ThermTemperatures{TA: values[0], TG: values[1], TW: values[2], TS: values[3]}, nil
}

// HygBarReadConfiguration reads a hygro/barometer's sensor-config
// variant code.
func (c *Client) HygBarReadConfiguration(ctx context.Context, address int) (*int, error) {
	payload, ok, err := c.exchange(ctx, address, cmdHygBarConfiguration, "")
	if err != nil || !ok {
		return nil, err
	}

	variant, err := strconv.Atoi(payload)
	if err != nil {
		return nil, fmt.Errorf("address %d: %w: sensor config %q is not numeric",
			address, ErrBadFrame, payload)
	}
	if _, known := model.HygBarVariants[variant]; !known {
		return nil, fmt.Errorf("address %d: unknown sensor config variant %d", address, variant)
	}
	return &variant, nil
}

// HygBarReadMeasurement reads one hygro/barometer measurement cycle.
// The expected value count follows the unit's sensor-config variant.
func (c *Client) HygBarReadMeasurement(ctx context.Context, address, variant int) (*HygBarMeasurement, error) {
	v, known := model.HygBarVariants[variant]
	if !known {
		return nil, fmt.Errorf("address %d: unknown sensor config variant %d", address, variant)
	}

	payload, ok, err := c.exchange(ctx, address, cmdHygBarMeasurement, "")
	if err != nil || !ok {
		return nil, err
	}
	values, err := parseFloats(payload, len(v.Parameters))
	if err != nil {
		return nil, err
	}
	return &HygBarMeasurement{Values: values}, nil
}

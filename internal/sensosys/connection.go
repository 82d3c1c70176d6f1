// internal/sensosys/connection.go
package sensosys

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Connection is the serial line shared by all instruments on the bus.
// The bus carries one request/response exchange at a time.
type Connection struct {
	config *ConnectionConfig
	port   serial.Port
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool
}

// ConnectionConfig represents the serial line configuration.
type ConnectionConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	Timeout  time.Duration `json:"timeout"`
}

// NewConnection creates a new bus connection. The port is not opened yet.
func NewConnection(config *ConnectionConfig, logger *zap.Logger) (*Connection, error) {
	if config.Port == "" {
		return nil, fmt.Errorf("port is required")
	}

	return &Connection{
		config: config,
		logger: logger,
	}, nil
}

// Open opens the serial port.
func (c *Connection) Open(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isOpen {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: c.config.BaudRate,
		DataBits: c.config.DataBits,
		StopBits: serial.StopBits(c.config.StopBits),
	}

	switch c.config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	port, err := serial.Open(c.config.Port, mode)
	if err != nil {
		c.logger.Error("Failed to open serial port",
			zap.Error(err),
			zap.String("port", c.config.Port),
		)
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	if err := port.SetReadTimeout(c.config.Timeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	c.port = port
	c.isOpen = true

	c.logger.Info("Serial port opened",
		zap.String("port", c.config.Port),
		zap.Int("baud_rate", c.config.BaudRate),
		zap.Duration("timeout", c.config.Timeout),
	)

	return nil
}

// Close closes the serial port.
func (c *Connection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.port == nil {
		return nil
	}

	if err := c.port.Close(); err != nil {
		c.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	c.port = nil
	c.isOpen = false

	c.logger.Info("Serial port closed", zap.String("port", c.config.Port))
	return nil
}

// IsOpen reports whether the port is open.
func (c *Connection) IsOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isOpen
}

// RoundTrip writes one request frame and reads the response up to the
// frame terminator. A silent line within the read timeout yields
// ErrNoResponse.
func (c *Connection) RoundTrip(ctx context.Context, request []byte) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen || c.port == nil {
		return nil, fmt.Errorf("serial port is not open")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}

	if _, err := c.port.Write(request); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	var frame []byte
	buf := make([]byte, 64)
	for {
		n, err := c.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if n == 0 {
			// Read timeout expired.
			if len(frame) == 0 {
				return nil, ErrNoResponse
			}
			return nil, fmt.Errorf("%w: truncated frame", ErrBadFrame)
		}

		for _, b := range buf[:n] {
			if b == frameEnd {
				return frame, nil
			}
			frame = append(frame, b)
		}
	}
}

// ListPorts enumerates the serial ports available on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}
	return ports, nil
}

package source

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tarm/serial"
)

// ErrNoPort indicates a serial source without a port name
var ErrNoPort = errors.New("serial port name is required")

// SerialConfig describes the microcontroller link.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// DefaultSerialConfig returns the settings of the reference firmware.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Baud:        115200,
		ReadTimeout: 500 * time.Millisecond,
	}
}

// Port is the part of a serial port the source uses. *serial.Port
// satisfies it.
type Port interface {
	io.ReadCloser
}

// openPort is replaced in tests.
var openPort = func(cfg *serial.Config) (Port, error) {
	return serial.OpenPort(cfg)
}

// NewSerial opens the port and starts reading frames from it.
func NewSerial(cfg SerialConfig) (*Reader, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultSerialConfig().Baud
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultSerialConfig().ReadTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	port, err := openPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	logger.Info("serial source open", "port", cfg.Port, "baud", cfg.Baud)
	return NewReader(port, port, logger), nil
}

// internal/serialport/port.go
package serialport

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/serial"
)

// Config describes the point-to-point link to the BMU.
type Config struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string // "N", "E" or "O"

	// ReadTimeout bounds one Read call. It is the busy-poll tick of the
	// transport, not the per-attempt reply timeout.
	ReadTimeout time.Duration
}

// Port adapts a goburrow serial port to transport.Link: a read that
// times out reports zero bytes instead of an error.
type Port struct {
	device string
	port   serial.Port
}

// Open opens and configures the serial device.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("serialport: device required")
	}

	p, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", cfg.Device, err)
	}

	return &Port{device: cfg.Device, port: p}, nil
}

// Device returns the device path.
func (p *Port) Device() string { return p.device }

func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if errors.Is(err, serial.ErrTimeout) {
		return n, nil
	}
	return n, err
}

func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close releases the device.
func (p *Port) Close() error {
	if p == nil || p.port == nil {
		return nil
	}
	return p.port.Close()
}

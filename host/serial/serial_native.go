//go:build !wasm

package serial

import (
	"errors"
	"fmt"

	"github.com/tarm/serial"
)

// ErrNoDevice is returned when the console is enabled without a device path.
var ErrNoDevice = errors.New("serial: no device configured")

// NativePort is a tarm/serial line opened write-mostly for the console.
type NativePort struct {
	port *serial.Port
	name string
}

// Open opens the serial line named in cfg. A zero baud falls back to the
// debug UART rate.
func Open(cfg *Config) (*NativePort, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultConfig(cfg.Device).Baud
	}

	port, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open console %s: %w", cfg.Device, err)
	}
	return &NativePort{port: port, name: cfg.Device}, nil
}

// Write sends b to the line.
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close releases the line. Calling it twice is harmless.
func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return fmt.Errorf("close console %s: %w", p.name, err)
	}
	return nil
}

// OpenConsole opens the line at cfg and wraps it in a Console.
func OpenConsole(cfg *Config) (*Console, error) {
	port, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewConsole(port), nil
}

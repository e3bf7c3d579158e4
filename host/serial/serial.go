// Package serial mirrors the diagnostic stream to a serial console, the way
// the device's debug UART is read on the bench.
package serial

import (
	"io"
	"sync"
)

// Port is a serial line the console writes to.
type Port interface {
	io.WriteCloser
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate
	Baud int
}

// DefaultConfig returns the debug UART settings
func DefaultConfig(device string) *Config {
	return &Config{
		Device: device,
		Baud:   115200,
	}
}

// Console serialises writes from the logger onto a Port and rewrites bare
// "\n" line endings to "\r\n" for terminal emulators.
type Console struct {
	mu   sync.Mutex
	port Port
}

// NewConsole wraps port.
func NewConsole(port Port) *Console {
	return &Console{port: port}
}

// Write implements io.Writer. It reports len(p) on success even though the
// line ending rewrite may send more bytes.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]byte, 0, len(p)+8)
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := c.port.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Sync is called by zap on Logger.Sync. Every Write has already been
// handed to the line driver, which keeps transmitting it after Close, so
// there is nothing to push out. The port is never flushed here: a tty
// flush discards queued output.
func (c *Console) Sync() error {
	return nil
}

// Close closes the port.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Close()
}

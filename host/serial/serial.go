// Package serial opens the UART the firmware streams telemetry on.
package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows the monitor to run against a real port or a
// test double.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC ignores it
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud matches the firmware UART configuration
const DefaultBaud = 115200

// DefaultConfig returns the configuration the firmware's UART uses
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 0,
	}
}

//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"
)

var errUSBWrite = errors.New("usb write failed")

// InitUSB initializes USB CDC, which carries the telemetry stream
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// usbWriter writes telemetry frames to USB CDC. A frame the host does not
// take is dropped instead of blocking the sampling context; the reporter
// counts it as a write error.
type usbWriter struct{}

func (usbWriter) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil || n == 0 {
			return written, errUSBWrite
		}
		written += n
	}
	return written, nil
}

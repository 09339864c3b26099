//go:build rp2040 || rp2350

package main

import (
	"gyroled/core"
	"machine"
)

// RPGPIODriver implements core.GPIODriver for the RP2040
type RPGPIODriver struct {
	// Track configured pins to prevent conflicts
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureInput configures a pin as an input. A pull-up is used for
// active-low inputs and a pull-down otherwise.
func (d *RPGPIODriver) ConfigureInput(pin core.GPIOPin, activeHigh bool) machine.Pin {
	if machinePin, exists := d.configuredPins[pin]; exists {
		return machinePin
	}

	mode := machine.PinInputPullup
	if activeHigh {
		mode = machine.PinInputPulldown
	}
	machinePin := pinNumberToMachinePin(pin)
	machinePin.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = machinePin
	return machinePin
}

// ConfigureOutput configures a pin as a digital output driven low
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) {
	if _, exists := d.configuredPins[pin]; exists {
		return
	}

	machinePin := pinNumberToMachinePin(pin)
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machinePin.Low()
	d.configuredPins[pin] = machinePin
}

// ReadPin implements core.GPIODriver. Unconfigured pins read low.
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false
	}
	return machinePin.Get()
}

// WritePin implements core.GPIODriver. It runs in the sampling context, so
// the map is only read here; outputs are configured before the scheduler
// starts.
func (d *RPGPIODriver) WritePin(pin core.GPIOPin, value bool) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return
	}
	machinePin.Set(value)
}

// pinNumberToMachinePin converts a pin to a machine.Pin.
// GPIO0 = 0, GPIO1 = 1, etc.
func pinNumberToMachinePin(pin core.GPIOPin) machine.Pin {
	return machine.Pin(pin)
}

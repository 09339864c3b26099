package core

import "gyroled/rtos"

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// IRQSource identifies an interrupt line at the interrupt controller
type IRQSource uint8

// GPIODriver is the digital I/O the core reads buttons from and drives
// indicator outputs with. Platform-specific implementations handle the
// actual hardware.
type GPIODriver interface {
	// ReadPin returns the instantaneous level of an input pin (true = high)
	ReadPin(pin GPIOPin) bool

	// WritePin drives an output pin high (true) or low (false)
	WritePin(pin GPIOPin, value bool)
}

// InterruptController masks and acknowledges individual interrupt sources.
type InterruptController interface {
	Enable(src IRQSource)
	Disable(src IRQSource)

	// ClearPending drops an edge latched while the source was being serviced
	ClearPending(src IRQSource)
}

// GyroSensor is the single-axis rate gyro.
type GyroSensor interface {
	// Init configures the sensor. It is idempotent.
	Init() error

	// ReadVelocity returns the latest sample in raw sensor counts. Called
	// outside a data-ready window it returns whatever the peripheral holds.
	ReadVelocity() int16
}

// Platform bundles the collaborators the application runs on.
type Platform struct {
	GPIO   GPIODriver
	IRQ    InterruptController
	Gyro   GyroSensor
	Kernel rtos.Kernel
}

func (p Platform) validate() error {
	switch {
	case p.GPIO == nil:
		return ErrNoGPIO
	case p.IRQ == nil:
		return ErrNoIRQ
	case p.Gyro == nil:
		return ErrNoGyro
	case p.Kernel == nil:
		return ErrNoKernel
	}
	return nil
}

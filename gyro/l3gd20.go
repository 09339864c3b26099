// Package gyro adapts the L3GD20 rate gyro to core.GyroSensor.
//
// The sensor is run in the driver's raw range so velocities stay in sensor
// counts, the unit the direction threshold is expressed in. Its data-ready
// output (DRDY/INT2) is enabled so boards can wire it to an edge interrupt.
package gyro

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/l3gd20"
)

const (
	// DefaultAddress is the L3GD20 address with SDO pulled high.
	DefaultAddress uint8 = l3gd20.I2CAddr

	// ctrlReg3DataReady routes data-ready to the DRDY/INT2 pin.
	ctrlReg3DataReady byte = 1 << 3

	// rawRange makes the driver report unscaled counts.
	rawRange = 1
)

var ErrNoBus = errors.New("gyro: no I2C bus")

// L3GD20 reads the Z axis of an L3GD20 over I2C.
type L3GD20 struct {
	bus  drivers.I2C
	addr uint8
	dev  *l3gd20.DevI2C

	configured bool
	last       int16
	readErrors uint32
}

// NewL3GD20 returns an unconfigured sensor at addr on bus.
func NewL3GD20(bus drivers.I2C, addr uint8) *L3GD20 {
	return &L3GD20{
		bus:  bus,
		addr: addr,
		dev:  l3gd20.NewI2C(bus, addr),
	}
}

// Init reboots the sensor, selects the raw range, checks WHO_AM_I and turns
// on the data-ready output. Calls after the first success do nothing.
func (g *L3GD20) Init() error {
	if g.configured {
		return nil
	}
	if g.bus == nil {
		return ErrNoBus
	}
	if err := g.dev.Configure(l3gd20.Config{Range: rawRange}); err != nil {
		return err
	}
	if err := g.bus.Tx(uint16(g.addr), []byte{l3gd20.CTRL_REG3, ctrlReg3DataReady}, nil); err != nil {
		return err
	}
	g.configured = true
	return nil
}

// ReadVelocity returns the Z-axis rate in raw counts. A failed bus
// transaction returns the previous sample.
func (g *L3GD20) ReadVelocity() int16 {
	if err := g.dev.Update(); err != nil {
		g.readErrors++
		return g.last
	}
	_, _, z := g.dev.AngularVelocity()
	g.last = int16(z)
	return g.last
}

// ReadErrors returns how many reads fell back to the previous sample
func (g *L3GD20) ReadErrors() uint32 {
	return g.readErrors
}

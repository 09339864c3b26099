//go:build rp2040 || rp2350

package main

import (
	"gyroled/core"
	"machine"
)

// modeStrapPin selects the scheduling mode at boot. Left open (pulled up)
// it selects timer mode; jumpered to ground it selects task mode.
const modeStrapPin = machine.GPIO22

// GetMode reads the mode strap. It is sampled once, before the scheduler is
// created.
func GetMode() core.Mode {
	modeStrapPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	if modeStrapPin.Get() {
		return core.ModeTimer
	}
	return core.ModeTask
}

//go:build rp2040 || rp2350

package main

import (
	"gyroled/core"
	"machine"
	"runtime/volatile"
)

// pinIRQ is one GPIO edge interrupt with a software mask. The hardware edge
// detector stays armed; an edge that arrives while the line is masked is
// latched until ClearPending or Enable. An edge that arrives while the
// handler is running is serviced after it returns, never nested.
type pinIRQ struct {
	pin     machine.Pin
	change  machine.PinChange
	handler func()
	enabled volatile.Register8
	pending volatile.Register8
	active  volatile.Register8
}

// run calls the handler until no unmasked edge is pending.
func (l *pinIRQ) run() {
	l.active.Set(1)
	for {
		l.pending.Set(0)
		l.handler()
		if l.enabled.Get() == 0 || l.pending.Get() == 0 {
			break
		}
	}
	l.active.Set(0)
}

// PinIRQController implements core.InterruptController on GPIO edge
// interrupts. Sources are numbered by the GPIO they watch.
type PinIRQController struct {
	lines map[core.IRQSource]*pinIRQ
}

func NewPinIRQController() *PinIRQController {
	return &PinIRQController{lines: make(map[core.IRQSource]*pinIRQ)}
}

// Attach arms the edge detector on pin and routes it to handler as src.
// The source starts masked.
func (c *PinIRQController) Attach(src core.IRQSource, pin machine.Pin, change machine.PinChange, handler func()) error {
	line := &pinIRQ{pin: pin, change: change, handler: handler}
	c.lines[src] = line
	return pin.SetInterrupt(change, func(machine.Pin) {
		if line.enabled.Get() == 0 || line.active.Get() != 0 {
			line.pending.Set(1)
			return
		}
		line.run()
	})
}

func (c *PinIRQController) Enable(src core.IRQSource) {
	line, ok := c.lines[src]
	if !ok {
		return
	}
	line.enabled.Set(1)
	if line.pending.Get() != 0 && line.active.Get() == 0 {
		core.Critical(line.run)
	}
}

func (c *PinIRQController) Disable(src core.IRQSource) {
	if line, ok := c.lines[src]; ok {
		line.enabled.Set(0)
	}
}

func (c *PinIRQController) ClearPending(src core.IRQSource) {
	if line, ok := c.lines[src]; ok {
		line.pending.Set(0)
	}
}

package core

// ButtonSampler captures the button level on each button edge. Contact
// bounce is not filtered: every edge overwrites the level.
type ButtonSampler struct {
	state      *State
	gpio       GPIODriver
	irq        InterruptController
	src        IRQSource
	pin        GPIOPin
	activeHigh bool
}

func NewButtonSampler(state *State, gpio GPIODriver, irq InterruptController, src IRQSource, pin GPIOPin, activeHigh bool) *ButtonSampler {
	return &ButtonSampler{
		state:      state,
		gpio:       gpio,
		irq:        irq,
		src:        src,
		pin:        pin,
		activeHigh: activeHigh,
	}
}

// HandleInterrupt is the ISR body.
func (b *ButtonSampler) HandleInterrupt() {
	b.irq.Disable(b.src)

	if b.gpio.ReadPin(b.pin) == b.activeHigh {
		b.state.setButton(Pressed)
	} else {
		b.state.setButton(Released)
	}

	b.irq.ClearPending(b.src)
	b.irq.Enable(b.src)
}

// Source returns the interrupt line this handler services
func (b *ButtonSampler) Source() IRQSource {
	return b.src
}

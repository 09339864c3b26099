package core

// Signals are the two indicator outputs.
type Signals struct {
	A bool // pressed or counter-clockwise
	B bool // pressed and clockwise
}

// Drive combines the button level and rotation direction into output levels.
func Drive(button ButtonLevel, dir Direction) Signals {
	pressed := button == Pressed
	return Signals{
		A: pressed || dir == CounterClockwise,
		B: pressed && dir == Clockwise,
	}
}

// Actuator writes Signals to the output pins.
type Actuator struct {
	gpio GPIODriver
	pinA GPIOPin
	pinB GPIOPin
}

func NewActuator(gpio GPIODriver, pinA, pinB GPIOPin) *Actuator {
	return &Actuator{gpio: gpio, pinA: pinA, pinB: pinB}
}

// Apply writes both outputs unconditionally, even when unchanged.
func (a *Actuator) Apply(s Signals) {
	a.gpio.WritePin(a.pinA, s.A)
	a.gpio.WritePin(a.pinB, s.B)
}

// Actuate drives the outputs for one button level and direction.
func (a *Actuator) Actuate(button ButtonLevel, dir Direction) Signals {
	s := Drive(button, dir)
	a.Apply(s)
	return s
}

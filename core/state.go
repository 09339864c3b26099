package core

import "go.uber.org/atomic"

// Readiness says whether the gyro has produced a sample since the last
// sampling cycle consumed one.
type Readiness uint8

const (
	Ready Readiness = iota
	NotReady
)

func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "not-ready"
}

// Direction is the coarse rotation classification of a velocity sample.
type Direction uint8

const (
	CounterClockwise Direction = iota
	Clockwise
)

func (d Direction) String() string {
	if d == Clockwise {
		return "cw"
	}
	return "ccw"
}

// ButtonLevel is the button state captured on the last button edge.
type ButtonLevel uint8

const (
	Released ButtonLevel = iota
	Pressed
)

func (b ButtonLevel) String() string {
	if b == Pressed {
		return "pressed"
	}
	return "released"
}

// State is the only place the interrupt handlers and the sampling cycle
// share data. Every field has exactly one writer:
//
//	ready      set by the data-ready handler, cleared by the sampling step
//	velocity   sampling step
//	direction  sampling step
//	button     button handler
type State struct {
	ready     atomic.Bool
	velocity  atomic.Int32
	direction atomic.Uint32
	pressed   atomic.Bool
}

// Snapshot is a consistent copy of State.
type Snapshot struct {
	Readiness Readiness
	Velocity  int16
	Direction Direction
	Button    ButtonLevel
}

// NewState returns the boot state. Direction starts counter-clockwise and the
// button released, matching zero-initialised firmware globals.
func NewState(bootReady bool) *State {
	s := &State{}
	s.ready.Store(bootReady)
	return s
}

// MarkReady records that a fresh sample exists. Data-ready handler only.
func (s *State) MarkReady() {
	s.ready.Store(true)
}

// ConsumeReady atomically reads the readiness flag and clears it. An edge
// that lands after the swap stays recorded for the next cycle.
func (s *State) ConsumeReady() bool {
	return s.ready.Swap(false)
}

func (s *State) Readiness() Readiness {
	if s.ready.Load() {
		return Ready
	}
	return NotReady
}

func (s *State) CachedVelocity() int16 {
	return int16(s.velocity.Load())
}

func (s *State) Direction() Direction {
	return Direction(s.direction.Load())
}

func (s *State) ButtonLevel() ButtonLevel {
	if s.pressed.Load() {
		return Pressed
	}
	return Released
}

// Snapshot copies every field with interrupts masked.
func (s *State) Snapshot() Snapshot {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return Snapshot{
		Readiness: s.Readiness(),
		Velocity:  s.CachedVelocity(),
		Direction: s.Direction(),
		Button:    s.ButtonLevel(),
	}
}

// storeSample publishes the velocity and its classification together.
func (s *State) storeSample(v int16, d Direction) {
	state := disableInterrupts()
	s.velocity.Store(int32(v))
	s.direction.Store(uint32(d))
	restoreInterrupts(state)
}

func (s *State) setButton(b ButtonLevel) {
	s.pressed.Store(b == Pressed)
}

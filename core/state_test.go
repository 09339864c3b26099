package core

import (
	"testing"

	"go.viam.com/test"
)

func TestNewState(t *testing.T) {
	s := NewState(true)
	test.That(t, s.Readiness(), test.ShouldEqual, Ready)
	test.That(t, s.CachedVelocity(), test.ShouldEqual, int16(0))
	test.That(t, s.Direction(), test.ShouldEqual, CounterClockwise)
	test.That(t, s.ButtonLevel(), test.ShouldEqual, Released)

	test.That(t, NewState(false).Readiness(), test.ShouldEqual, NotReady)
}

func TestConsumeReady(t *testing.T) {
	s := NewState(false)
	test.That(t, s.ConsumeReady(), test.ShouldBeFalse)

	s.MarkReady()
	s.MarkReady()
	test.That(t, s.ConsumeReady(), test.ShouldBeTrue)
	test.That(t, s.Readiness(), test.ShouldEqual, NotReady)
	test.That(t, s.ConsumeReady(), test.ShouldBeFalse)
}

func TestSnapshot(t *testing.T) {
	s := NewState(false)
	s.storeSample(-6000, CounterClockwise)
	s.setButton(Pressed)
	s.MarkReady()

	test.That(t, s.Snapshot(), test.ShouldResemble, Snapshot{
		Readiness: Ready,
		Velocity:  -6000,
		Direction: CounterClockwise,
		Button:    Pressed,
	})
}

func TestEnumStrings(t *testing.T) {
	test.That(t, Ready.String(), test.ShouldEqual, "ready")
	test.That(t, NotReady.String(), test.ShouldEqual, "not-ready")
	test.That(t, Clockwise.String(), test.ShouldEqual, "cw")
	test.That(t, CounterClockwise.String(), test.ShouldEqual, "ccw")
	test.That(t, Pressed.String(), test.ShouldEqual, "pressed")
	test.That(t, Released.String(), test.ShouldEqual, "released")
}

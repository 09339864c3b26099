package sim

import (
	"testing"

	"go.viam.com/test"

	"gyroled/core"
)

func TestNVICLatchesMaskedEdges(t *testing.T) {
	n := NewNVIC()
	hits := 0
	n.Attach(8, func() { hits++ })

	n.Raise(8)
	n.Raise(8)
	test.That(t, hits, test.ShouldEqual, 0)
	test.That(t, n.Latched, test.ShouldEqual, 2)

	// One latched edge is delivered on enable, however many were raised.
	n.Enable(8)
	test.That(t, hits, test.ShouldEqual, 1)

	n.Raise(8)
	test.That(t, hits, test.ShouldEqual, 2)
	test.That(t, n.Delivered, test.ShouldEqual, 2)
}

func TestNVICClearDropsLatchedEdge(t *testing.T) {
	n := NewNVIC()
	hits := 0
	n.Attach(6, func() { hits++ })

	n.Raise(6)
	n.ClearPending(6)
	n.Enable(6)
	test.That(t, hits, test.ShouldEqual, 0)
	test.That(t, n.Ops, test.ShouldResemble, []string{"clear 6", "enable 6"})
}

func TestNVICRunsHandlerDiscipline(t *testing.T) {
	k := NewKernel(nil)
	b := NewBoard(k)
	state := core.NewState(false)
	h := core.NewDataReadyHandler(state, b.NVIC, 8)
	b.NVIC.Attach(8, h.HandleInterrupt)

	b.NVIC.Enable(8)
	b.NVIC.Raise(8)
	test.That(t, state.Readiness(), test.ShouldEqual, core.Ready)
	test.That(t, b.NVIC.Ops, test.ShouldResemble, []string{"enable 8", "disable 8", "clear 8", "enable 8"})
	test.That(t, b.NVIC.Enabled(8), test.ShouldBeTrue)
}

func TestGPIOLogsWrites(t *testing.T) {
	k := NewKernel(nil)
	g := NewGPIO(k.Now)
	g.WritePin(1, true)
	k.RunUntil(50)
	g.WritePin(1, false)

	test.That(t, g.Output(1), test.ShouldBeFalse)
	test.That(t, g.Writes, test.ShouldResemble, []PinWrite{
		{Tick: 0, Pin: 1, Value: true},
		{Tick: 50, Pin: 1, Value: false},
	})
}

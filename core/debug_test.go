package core

import (
	"testing"

	"go.viam.com/test"
)

func TestCycleRingWraps(t *testing.T) {
	ClearCycleRing()
	defer ClearCycleRing()

	for i := 1; i <= CycleRingSize+5; i++ {
		RecordCycle(CycleReport{Cycle: uint32(i), Velocity: int16(-i)})
	}
	recs := CycleRecords()
	test.That(t, recs, test.ShouldHaveLength, CycleRingSize)
	test.That(t, recs[0].Cycle, test.ShouldEqual, uint32(6))
	test.That(t, recs[len(recs)-1].Cycle, test.ShouldEqual, uint32(CycleRingSize+5))
}

func TestDumpCycleRing(t *testing.T) {
	ClearCycleRing()
	defer ClearCycleRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	RecordCycle(CycleReport{
		Cycle:     1,
		Velocity:  -6000,
		Fresh:     true,
		Direction: CounterClockwise,
		Signals:   Signals{A: true},
	})
	RecordCycle(CycleReport{
		Cycle:     2,
		Velocity:  100,
		Direction: Clockwise,
		Button:    Pressed,
		Signals:   Signals{A: true, B: true},
	})
	DumpCycleRing()

	test.That(t, lines, test.ShouldResemble, []string{
		"[CYCLE] === Cycle Ring Dump ===",
		"[CYCLE] #1 v=-6000 fresh ccw A=1 B=0",
		"[CYCLE] #2 v=100 cw pressed A=1 B=1",
		"[CYCLE] === End Dump ===",
	})
}

func TestDebugPrintlnGated(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})
	defer SetDebugEnabled(false)

	DebugPrintln("hidden")
	SetDebugEnabled(true)
	test.That(t, IsDebugEnabled(), test.ShouldBeTrue)
	DebugPrintln("shown")
	test.That(t, lines, test.ShouldResemble, []string{"shown"})
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("task")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, ModeTask)

	m, err = ParseMode("callback")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, ModeTimer)

	_, err = ParseMode("isr")
	test.That(t, err, test.ShouldEqual, ErrUnknownMode)
}

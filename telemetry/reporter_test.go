package telemetry

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.viam.com/test"

	"gyroled/core"
	"gyroled/protocol"
)

func decodeAll(t *testing.T, stream []byte) (ids []uint16, cycles []core.CycleReport) {
	t.Helper()
	dec := protocol.NewDecoder(func(id uint16, data *[]byte) error {
		ids = append(ids, id)
		if id == protocol.MsgStatus {
			s, err := protocol.DecodeStatus(data)
			if err != nil {
				return err
			}
			cycles = append(cycles, CycleFromStatus(s))
		}
		return nil
	})
	in := protocol.NewReceiveBuffer(len(stream))
	in.Write(stream)
	dec.Feed(in)
	test.That(t, dec.Stats().HandlerErrors, test.ShouldEqual, uint64(0))
	return ids, cycles
}

func TestReporterStream(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, 1)
	r.Identify(core.ModeTask, 100*time.Millisecond)

	first := core.CycleReport{
		Cycle: 1, Velocity: -6000, Fresh: true,
		Direction: core.CounterClockwise, Signals: core.Signals{A: true},
	}
	second := core.CycleReport{
		Cycle: 2, Velocity: 100,
		Direction: core.Clockwise, Button: core.Pressed, Signals: core.Signals{A: true, B: true},
	}
	r.Observe(first)
	r.Observe(second)
	r.Fatal("task1: sleep failed")

	ids, cycles := decodeAll(t, buf.Bytes())
	test.That(t, ids, test.ShouldResemble, []uint16{
		protocol.MsgIdentify, protocol.MsgStatus, protocol.MsgStatus, protocol.MsgFatal,
	})
	test.That(t, cycles, test.ShouldResemble, []core.CycleReport{first, second})
}

func TestReporterDecimates(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, 5)
	for i := uint32(1); i <= 12; i++ {
		r.Observe(core.CycleReport{Cycle: i})
	}
	_, cycles := decodeAll(t, buf.Bytes())
	test.That(t, cycles, test.ShouldHaveLength, 2)
	test.That(t, cycles[1].Cycle, test.ShouldEqual, uint32(10))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("uart overrun") }

func TestReporterCountsWriteErrors(t *testing.T) {
	r := NewReporter(failingWriter{}, 0)
	r.Observe(core.CycleReport{Cycle: 1})
	r.Observe(core.CycleReport{Cycle: 2})
	test.That(t, r.WriteErrors(), test.ShouldEqual, uint32(2))
}

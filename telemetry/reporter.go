// Package telemetry streams cycle reports from the application over the
// framed protocol.
package telemetry

import (
	"io"
	"time"

	"gyroled/core"
	"gyroled/protocol"
)

// Reporter encodes cycle reports as status frames and writes them to w. It
// is driven from the sampling context, so writes must not block for long.
type Reporter struct {
	w         io.Writer
	out       *protocol.ScratchOutput
	transport *protocol.Transport
	every     uint32
	errors    uint32
}

// NewReporter returns a reporter that sends every n-th cycle (n < 1 means
// every cycle).
func NewReporter(w io.Writer, every int) *Reporter {
	if every < 1 {
		every = 1
	}
	r := &Reporter{
		w:     w,
		out:   protocol.NewScratchOutput(),
		every: uint32(every),
	}
	r.transport = protocol.NewTransport(r.out)
	r.transport.SetFlushCallback(r.flush)
	return r
}

func (r *Reporter) flush() {
	if _, err := r.w.Write(r.out.Result()); err != nil {
		r.errors++
	}
	r.out.Reset()
}

// Identify sends the boot banner.
func (r *Reporter) Identify(mode core.Mode, period time.Duration) {
	msg := protocol.Identify{
		Version:  protocol.Version,
		Mode:     mode.String(),
		PeriodMS: uint32(period / time.Millisecond),
	}
	r.transport.SendMessage(protocol.MsgIdentify, msg.Encode)
}

// Observe is a core.CycleObserver.
func (r *Reporter) Observe(c core.CycleReport) {
	if c.Cycle%r.every != 0 {
		return
	}
	msg := StatusFromCycle(c)
	r.transport.SendMessage(protocol.MsgStatus, msg.Encode)
}

// Fatal sends the halt reason. Install it in front of the platform's
// fatal handler.
func (r *Reporter) Fatal(reason string) {
	r.transport.SendMessage(protocol.MsgFatal, protocol.FatalReport{Reason: reason}.Encode)
}

// WriteErrors returns the number of frames the writer rejected
func (r *Reporter) WriteErrors() uint32 {
	return r.errors
}

// StatusFromCycle packs a cycle report into a status message.
func StatusFromCycle(c core.CycleReport) protocol.StatusReport {
	var flags uint8
	if c.Fresh {
		flags |= protocol.StatusFresh
	}
	if c.Direction == core.Clockwise {
		flags |= protocol.StatusClockwise
	}
	if c.Button == core.Pressed {
		flags |= protocol.StatusPressed
	}
	if c.Signals.A {
		flags |= protocol.StatusSignalA
	}
	if c.Signals.B {
		flags |= protocol.StatusSignalB
	}
	return protocol.StatusReport{Cycle: c.Cycle, Velocity: c.Velocity, Flags: flags}
}

// CycleFromStatus unpacks a status message.
func CycleFromStatus(s protocol.StatusReport) core.CycleReport {
	c := core.CycleReport{
		Cycle:    s.Cycle,
		Velocity: s.Velocity,
		Fresh:    s.Has(protocol.StatusFresh),
		Signals: core.Signals{
			A: s.Has(protocol.StatusSignalA),
			B: s.Has(protocol.StatusSignalB),
		},
	}
	if s.Has(protocol.StatusClockwise) {
		c.Direction = core.Clockwise
	}
	if s.Has(protocol.StatusPressed) {
		c.Button = core.Pressed
	}
	return c
}

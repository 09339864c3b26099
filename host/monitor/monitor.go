// Package monitor decodes the firmware's telemetry stream on the host.
package monitor

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"gyroled/core"
	"gyroled/host/serial"
	"gyroled/logging"
	"gyroled/protocol"
	"gyroled/telemetry"
)

// Stats summarises what the monitor has received
type Stats struct {
	protocol.Stats
	Reports uint64
}

// Monitor represents a telemetry connection to the firmware
type Monitor struct {
	transport *protocol.HostTransport
	port      io.ReadCloser
	logger    logging.Logger

	mu       sync.Mutex
	identity *protocol.Identify
	latest   *core.CycleReport
	fatal    string
	reports  uint64
	onReport func(core.CycleReport)
}

// Open connects to the firmware's UART
func Open(cfg *serial.Config, logger logging.Logger) (*Monitor, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(port, logger), nil
}

// New starts decoding port. The monitor owns port and closes it on Close.
func New(port io.ReadCloser, logger logging.Logger) *Monitor {
	m := &Monitor{port: port, logger: logger}
	m.transport = protocol.NewHostTransport(port, m.handle)
	return m
}

// OnReport registers a callback run from the read goroutine for every status
// frame. Set it before traffic arrives.
func (m *Monitor) OnReport(fn func(core.CycleReport)) {
	m.mu.Lock()
	m.onReport = fn
	m.mu.Unlock()
}

func (m *Monitor) handle(msgID uint16, data *[]byte) error {
	switch msgID {
	case protocol.MsgIdentify:
		id, err := protocol.DecodeIdentify(data)
		if err != nil {
			m.logger.Warnw("bad identify frame", "error", err)
			return err
		}
		m.mu.Lock()
		m.identity = &id
		m.mu.Unlock()
		m.logger.Infow("firmware identified", "version", id.Version, "mode", id.Mode, "period_ms", id.PeriodMS)

	case protocol.MsgStatus:
		s, err := protocol.DecodeStatus(data)
		if err != nil {
			m.logger.Warnw("bad status frame", "error", err)
			return err
		}
		report := telemetry.CycleFromStatus(s)
		m.mu.Lock()
		m.latest = &report
		m.reports++
		cb := m.onReport
		m.mu.Unlock()
		m.logger.Debugw("cycle",
			"cycle", report.Cycle,
			"velocity", report.Velocity,
			"fresh", report.Fresh,
			"direction", report.Direction.String(),
			"button", report.Button.String(),
			"a", report.Signals.A,
			"b", report.Signals.B)
		if cb != nil {
			cb(report)
		}

	case protocol.MsgFatal:
		f, err := protocol.DecodeFatal(data)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.fatal = f.Reason
		m.mu.Unlock()
		m.logger.Errorw("firmware halted", "reason", f.Reason)

	default:
		return errors.Wrapf(protocol.ErrUnknownMessage, "id %d", msgID)
	}
	return nil
}

// Identity returns the boot banner, if one was received
func (m *Monitor) Identity() (protocol.Identify, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return protocol.Identify{}, false
	}
	return *m.identity, true
}

// Latest returns the most recent cycle report
func (m *Monitor) Latest() (core.CycleReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return core.CycleReport{}, false
	}
	return *m.latest, true
}

// FatalReason returns the halt reason the firmware reported, if any
func (m *Monitor) FatalReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fatal
}

// Stats returns link and report counters
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	reports := m.reports
	m.mu.Unlock()
	return Stats{Stats: m.transport.Stats(), Reports: reports}
}

// Done is closed when the stream ends
func (m *Monitor) Done() <-chan struct{} {
	return m.transport.Done()
}

// Close stops decoding and closes the port. It reports the read error that
// ended the stream, if any, together with any close error.
func (m *Monitor) Close() error {
	err := m.transport.Close()
	return multierr.Combine(m.transport.Err(), err)
}

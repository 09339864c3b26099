package protocol

import "github.com/pkg/errors"

// Message IDs sent by the firmware
const (
	MsgIdentify uint16 = 1
	MsgStatus   uint16 = 2
	MsgFatal    uint16 = 3
)

// Status flag bits
const (
	StatusFresh     = 1 << 0 // Sensor was read this cycle
	StatusClockwise = 1 << 1
	StatusPressed   = 1 << 2
	StatusSignalA   = 1 << 3
	StatusSignalB   = 1 << 4
)

var ErrUnknownMessage = errors.New("unknown message id")

// Identify is sent once at boot.
type Identify struct {
	Version  string
	Mode     string
	PeriodMS uint32
}

func (m Identify) Encode(output OutputBuffer) {
	EncodeVLQString(output, m.Version)
	EncodeVLQString(output, m.Mode)
	EncodeVLQUint(output, m.PeriodMS)
}

func DecodeIdentify(data *[]byte) (Identify, error) {
	var m Identify
	var err error
	if m.Version, err = DecodeVLQString(data); err != nil {
		return m, errors.Wrap(err, "identify version")
	}
	if m.Mode, err = DecodeVLQString(data); err != nil {
		return m, errors.Wrap(err, "identify mode")
	}
	if m.PeriodMS, err = DecodeVLQUint(data); err != nil {
		return m, errors.Wrap(err, "identify period")
	}
	return m, nil
}

// StatusReport describes one sampling cycle.
type StatusReport struct {
	Cycle    uint32
	Velocity int16
	Flags    uint8
}

func (m StatusReport) Has(flag uint8) bool {
	return m.Flags&flag != 0
}

func (m StatusReport) Encode(output OutputBuffer) {
	EncodeVLQUint(output, m.Cycle)
	EncodeVLQInt(output, int32(m.Velocity))
	EncodeVLQUint(output, uint32(m.Flags))
}

func DecodeStatus(data *[]byte) (StatusReport, error) {
	var m StatusReport
	cycle, err := DecodeVLQUint(data)
	if err != nil {
		return m, errors.Wrap(err, "status cycle")
	}
	velocity, err := DecodeVLQInt(data)
	if err != nil {
		return m, errors.Wrap(err, "status velocity")
	}
	flags, err := DecodeVLQUint(data)
	if err != nil {
		return m, errors.Wrap(err, "status flags")
	}
	if velocity < -32768 || velocity > 32767 {
		return m, errors.Errorf("status velocity %d out of range", velocity)
	}
	m.Cycle = cycle
	m.Velocity = int16(velocity)
	m.Flags = uint8(flags)
	return m, nil
}

// MaxReasonLen keeps a FatalReport inside one frame
const MaxReasonLen = 48

// FatalReport carries the reason the firmware halted.
type FatalReport struct {
	Reason string
}

// Encode writes the reason, truncated to MaxReasonLen bytes.
func (m FatalReport) Encode(output OutputBuffer) {
	reason := m.Reason
	if len(reason) > MaxReasonLen {
		reason = reason[:MaxReasonLen]
	}
	EncodeVLQString(output, reason)
}

func DecodeFatal(data *[]byte) (FatalReport, error) {
	reason, err := DecodeVLQString(data)
	if err != nil {
		return FatalReport{}, errors.Wrap(err, "fatal reason")
	}
	return FatalReport{Reason: reason}, nil
}

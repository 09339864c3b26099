// Package protocol implements the framed telemetry link between the firmware
// and a host monitor. Frames use the Klipper layout: a length byte, a
// sequence byte, a VLQ payload, a CRC16 and a 0x7E sync byte.
package protocol

// Version is the telemetry protocol version reported in Identify
const Version = "1.0.0"

// Protocol constants
const (
	MessageMax = 512 // Output scratch buffer size

	// Message sequence masks
	MessageSeqMask  = 0x0F
	MessageSeqShift = 4
)

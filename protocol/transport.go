package protocol

import "sync/atomic"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
)

// Transport frames outgoing telemetry on the firmware side. There is no
// acknowledgement: every frame carries the next sequence number so the host
// can count frames lost on the link.
type Transport struct {
	nextSequence  uint32 // atomic uint8 stored as uint32
	output        OutputBuffer
	flushCallback func() // Called after each frame to push it to the UART
	dropped       uint32 // atomic count of frames that did not fit
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer) *Transport {
	return &Transport{
		nextSequence: MessageDest,
		output:       output,
	}
}

// EncodeFrame encodes and sends a frame with the given data. A frame whose
// payload would exceed MessageLengthMax is dropped and counted.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	scratch := NewScratchOutput()
	frameData(scratch)
	payload := scratch.Result()

	msgLen := MessageHeaderSize + len(payload) + MessageTrailerSize
	if msgLen > MessageLengthMax {
		atomic.AddUint32(&t.dropped, 1)
		return
	}

	seq := uint8(atomic.LoadUint32(&t.nextSequence))
	nextSeq := ((seq + 1) & MessageSeqMask) | MessageDest
	atomic.StoreUint32(&t.nextSequence, uint32(nextSeq))

	cursor := t.output.CurPosition()
	t.output.Output([]byte{uint8(msgLen), seq})
	t.output.Output(payload)

	// Calculate and write CRC
	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// SendMessage sends a message with arguments
func (t *Transport) SendMessage(msgID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(msgID))
		if args != nil {
			args(output)
		}
	})
}

// Reset restarts the sequence at MessageDest
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.nextSequence, MessageDest)
}

// SetFlushCallback sets a callback to be called after every frame
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

// Dropped returns the number of frames discarded for being too long
func (t *Transport) Dropped() uint32 {
	return atomic.LoadUint32(&t.dropped)
}

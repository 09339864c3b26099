package protocol

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ResponseHandler is a function type for handling messages received from the MCU
type ResponseHandler func(msgID uint16, data *[]byte) error

// Message represents a parsed frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
	CRC      uint16
}

// Stats counts what the decoder has seen on the link
type Stats struct {
	Frames        uint64 // Valid frames dispatched
	Resyncs       uint64 // Times the decoder lost framing
	SequenceGaps  uint64 // Frames missing according to the sequence numbers
	HandlerErrors uint64
}

// Decoder reassembles frames from a byte stream. It resynchronises on the
// next sync byte after any length, destination, sync or CRC error.
type Decoder struct {
	isSynchronized bool
	expectedSeq    uint8
	haveSeq        bool
	handler        ResponseHandler
	stats          Stats
}

// NewDecoder creates a decoder that passes every valid frame to handler
func NewDecoder(handler ResponseHandler) *Decoder {
	return &Decoder{isSynchronized: true, handler: handler}
}

// Feed processes the data available in input and pops what it consumed.
// An incomplete trailing frame is left in input for the next call.
func (d *Decoder) Feed(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !d.isSynchronized {
			// Look for sync byte
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				// Found sync - skip to after sync byte
				data = data[syncPos+1:]
				d.isSynchronized = true
			} else {
				// No sync found - discard all
				data = nil
			}
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		// Need minimum message length
		if len(data) < MessageLengthMin {
			break
		}

		// Extract message length
		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}

		// Check sequence/destination byte
		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.desync()
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		// Verify trailing sync byte
		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.desync()
			continue
		}

		// Verify CRC
		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		actualCRC := CRC16(data[:msgLen-MessageTrailerSize])
		if frameCRC != actualCRC {
			d.desync()
			continue
		}

		payload := make([]byte, msgLen-MessageHeaderSize-MessageTrailerSize)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		data = data[msgLen:]

		d.dispatch(&Message{
			Length:   uint8(msgLen),
			Sequence: seq,
			Payload:  payload,
			CRC:      frameCRC,
		})
	}

	// Remove consumed bytes from input buffer
	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (d *Decoder) desync() {
	d.isSynchronized = false
	d.stats.Resyncs++
}

func (d *Decoder) dispatch(msg *Message) {
	if d.haveSeq && msg.Sequence != d.expectedSeq {
		gap := (msg.Sequence - d.expectedSeq) & MessageSeqMask
		d.stats.SequenceGaps += uint64(gap)
	}
	d.expectedSeq = ((msg.Sequence + 1) & MessageSeqMask) | MessageDest
	d.haveSeq = true
	d.stats.Frames++

	if d.handler == nil || len(msg.Payload) == 0 {
		return
	}
	payload := msg.Payload
	msgID, err := DecodeVLQUint(&payload)
	if err == nil {
		err = d.handler(uint16(msgID), &payload)
	}
	if err != nil {
		d.stats.HandlerErrors++
	}
}

// Stats returns the counters accumulated so far
func (d *Decoder) Stats() Stats {
	return d.stats
}

// HostTransport reads frames from a serial port in the background and
// hands them to a Decoder.
type HostTransport struct {
	port io.ReadCloser

	mu          sync.Mutex // guards decoder and inputBuffer
	decoder     *Decoder
	inputBuffer *ReceiveBuffer

	readErr  atomic.Value // error that ended the read loop
	stopChan chan struct{}
	doneChan chan struct{}
	closed   uint32
}

// NewHostTransport creates a new host-side transport and starts reading
func NewHostTransport(port io.ReadCloser, handler ResponseHandler) *HostTransport {
	t := &HostTransport{
		port:        port,
		decoder:     NewDecoder(handler),
		inputBuffer: NewReceiveBuffer(1024),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}

	// Start background reader
	go t.readLoop()

	return t
}

// readLoop continuously reads from the port until EOF, a read error or Close
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.mu.Lock()
			data := buffer[:n]
			for len(data) > 0 {
				w := t.inputBuffer.Write(data)
				data = data[w:]
				t.decoder.Feed(t.inputBuffer)
				if w == 0 && t.inputBuffer.Free() == 0 {
					// Unparseable backlog; drop it.
					t.inputBuffer.Reset()
				}
			}
			t.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				t.readErr.Store(errors.Wrap(err, "reading telemetry"))
			}
			return
		}
	}
}

// Done is closed when the read loop has stopped
func (t *HostTransport) Done() <-chan struct{} {
	return t.doneChan
}

// Err returns the read error that stopped the transport, if any
func (t *HostTransport) Err() error {
	err, _ := t.readErr.Load().(error)
	return err
}

// Stats returns the decoder counters
func (t *HostTransport) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decoder.Stats()
}

// Close stops the transport and closes the serial port. Closing the port
// unblocks a pending read.
func (t *HostTransport) Close() error {
	if !atomic.CompareAndSwapUint32(&t.closed, 0, 1) {
		return nil
	}
	close(t.stopChan)
	var err error
	if t.port != nil {
		err = t.port.Close()
	}
	<-t.doneChan // Wait for read loop to finish
	return err
}

package protocol

// InputBuffer is a window of received bytes that the Decoder consumes from
// the front.
type InputBuffer interface {
	Data() []byte
	Available() int
	Pop(n int)
}

// OutputBuffer receives encoded frame bytes.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	DataSince(pos int) []byte
}

// ScratchOutput collects frames in a fixed array so the firmware does not
// allocate per cycle. Bytes past MessageMax are discarded and counted.
type ScratchOutput struct {
	buf       [MessageMax]byte
	n         int
	truncated int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	c := copy(s.buf[s.n:], data)
	s.n += c
	s.truncated += len(data) - c
}

func (s *ScratchOutput) CurPosition() int {
	return s.n
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.n {
		return nil
	}
	return s.buf[pos:s.n]
}

// Result returns everything written since the last Reset
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.n]
}

// Truncated returns how many bytes did not fit since the last Reset
func (s *ScratchOutput) Truncated() int {
	return s.truncated
}

func (s *ScratchOutput) Reset() {
	s.n = 0
	s.truncated = 0
}

// ReceiveBuffer holds bytes read from the serial port until the Decoder has
// consumed them. Unread bytes are kept contiguous by moving them to the
// front when the tail runs out of room, so Data never copies.
type ReceiveBuffer struct {
	buf        []byte
	start, end int
}

func NewReceiveBuffer(capacity int) *ReceiveBuffer {
	return &ReceiveBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count taken.
func (r *ReceiveBuffer) Write(data []byte) int {
	if r.end+len(data) > len(r.buf) && r.start > 0 {
		r.end = copy(r.buf, r.buf[r.start:r.end])
		r.start = 0
	}
	n := copy(r.buf[r.end:], data)
	r.end += n
	return n
}

func (r *ReceiveBuffer) Data() []byte {
	return r.buf[r.start:r.end]
}

func (r *ReceiveBuffer) Available() int {
	return r.end - r.start
}

// Free returns how many more bytes Write can take
func (r *ReceiveBuffer) Free() int {
	return len(r.buf) - r.Available()
}

func (r *ReceiveBuffer) Pop(n int) {
	if n > r.Available() {
		n = r.Available()
	}
	r.start += n
	if r.start == r.end {
		r.Reset()
	}
}

// Reset discards all unread bytes
func (r *ReceiveBuffer) Reset() {
	r.start = 0
	r.end = 0
}

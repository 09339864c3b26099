package protocol

import (
	"bytes"
	"testing"
)

func TestVLQVelocityEncoding(t *testing.T) {
	testCases := []struct {
		velocity int16
		encoded  []byte
	}{
		{0, []byte{0x00}},
		{-32, []byte{0x60}},
		{95, []byte{0x5F}},
		{96, []byte{0x80, 0x60}},
		{-33, []byte{0xFF, 0x5F}},
		{-5000, []byte{0xFF, 0xD8, 0x78}},
		{-32768, []byte{0xFE, 0x80, 0x00}},
		{32767, []byte{0x81, 0xFF, 0x7F}},
	}

	for _, tc := range testCases {
		out := NewScratchOutput()
		EncodeVLQInt(out, int32(tc.velocity))
		if !bytes.Equal(out.Result(), tc.encoded) {
			t.Errorf("velocity %d encoded as %x, want %x", tc.velocity, out.Result(), tc.encoded)
			continue
		}

		data := out.Result()
		got, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("velocity %d: %v", tc.velocity, err)
			continue
		}
		if got != int32(tc.velocity) || len(data) != 0 {
			t.Errorf("velocity %d decoded as %d with %d bytes left", tc.velocity, got, len(data))
		}
	}
}

func TestVLQCycleCounter(t *testing.T) {
	for _, cycle := range []uint32{1, 95, 96, 12288, 1 << 26, 1<<31 - 1, 1 << 31, ^uint32(0)} {
		out := NewScratchOutput()
		EncodeVLQUint(out, cycle)
		data := out.Result()
		got, err := DecodeVLQUint(&data)
		if err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
		if got != cycle {
			t.Errorf("cycle %d decoded as %d", cycle, got)
		}
		if n := len(out.Result()); n > 5 {
			t.Errorf("cycle %d took %d bytes", cycle, n)
		}
	}
}

func TestVLQTruncatedInput(t *testing.T) {
	data := []byte{0xFF, 0xD8} // -5000 without its last group
	if _, err := DecodeVLQInt(&data); err != ErrBufferTooSmall {
		t.Errorf("got %v, want ErrBufferTooSmall", err)
	}

	data = nil
	if _, err := DecodeVLQUint(&data); err != ErrBufferTooSmall {
		t.Errorf("empty input: got %v", err)
	}
}

func TestVLQStringModeNames(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQString(out, "timer")
	EncodeVLQString(out, "")
	EncodeVLQString(out, "task")

	data := out.Result()
	for _, want := range []string{"timer", "", "task"} {
		got, err := DecodeVLQString(&data)
		if err != nil || got != want {
			t.Fatalf("got %q (%v), want %q", got, err, want)
		}
	}

	short := []byte{5, 't', 'a'}
	if _, err := DecodeVLQString(&short); err != ErrBufferTooSmall {
		t.Errorf("short string: got %v", err)
	}
}

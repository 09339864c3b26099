package protocol

import (
	"bytes"
	"testing"
)

func TestCRC16CheckValue(t *testing.T) {
	if got := CRC16([]byte("123456789")); got != 0x6F91 {
		t.Errorf("check value 0x%04X, want 0x6F91", got)
	}
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("empty input 0x%04X, want 0xFFFF", got)
	}
}

func TestStatusFrameBytes(t *testing.T) {
	out := NewScratchOutput()
	encodeStatus(NewTransport(out), 1, -6000, StatusFresh|StatusSignalA)

	want := []byte{
		0x0B, MessageDest, // length, sequence
		0x02,              // MsgStatus
		0x01,              // cycle
		0xFF, 0xD1, 0x10,  // velocity -6000
		0x09,              // fresh | signal A
		0x75, 0x6A,        // CRC
		MessageValueSync,
	}
	if !bytes.Equal(out.Result(), want) {
		t.Errorf("frame %x, want %x", out.Result(), want)
	}
}

func TestCRC16DetectsFlippedVelocityBit(t *testing.T) {
	out := NewScratchOutput()
	encodeStatus(NewTransport(out), 1, -6000, 0)
	frame := out.Result()
	body := append([]byte(nil), frame[:len(frame)-MessageTrailerSize]...)

	sum := CRC16(body)
	body[4] ^= 0x01
	if CRC16(body) == sum {
		t.Error("single bit flip not detected")
	}
}

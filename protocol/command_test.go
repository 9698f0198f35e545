// File: protocol/command_test.go
// License: Apache-2.0

package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestCommand_EncodeParse(t *testing.T) {
	cmd := &Command{
		Type:           PayloadTypeCommand,
		TargetCategory: 0x01,
		TargetID:       0x02,
		SourceID:       0x03,
		InstanceID:     0x04,
		CommandID:      0x05,
		RequestID:      0x1234,
	}
	data := []byte("hello")

	frame := cmd.Encode(data)
	if len(frame) != HeaderLen+len(data) {
		t.Fatalf("Expected frame length %d, got %d", HeaderLen+len(data), len(frame))
	}

	got, gotData, err := ParseCommand(frame)
	if err != nil {
		t.Fatalf("Expected ParseCommand to succeed, got %v", err)
	}
	if *got != *cmd {
		t.Errorf("Expected decoded header %+v, got %+v", cmd, got)
	}
	if !bytes.Equal(gotData, data) {
		t.Errorf("Expected command data %q, got %q", data, gotData)
	}
}

func TestCommand_EncodeEmptyData(t *testing.T) {
	frame := (&Command{Type: PayloadTypeCommand}).Encode(nil)
	if len(frame) != HeaderLen {
		t.Fatalf("Expected header-only frame of %d bytes, got %d", HeaderLen, len(frame))
	}
	if _, data, err := ParseCommand(frame); err != nil || len(data) != 0 {
		t.Errorf("Expected empty command data, got %q (err %v)", data, err)
	}
}

func TestParseCommand_TooShort(t *testing.T) {
	_, _, err := ParseCommand([]byte{0x80, 0x01, 0x02})
	if !errors.Is(err, ErrFrameTooShort) {
		t.Errorf("Expected ErrFrameTooShort, got %v", err)
	}
}

func TestRequestID_Patch(t *testing.T) {
	frame := (&Command{Type: PayloadTypeCommand}).Encode([]byte("x"))
	if id := RequestID(frame); id != 0 {
		t.Fatalf("Expected zero request id before patching, got %#04x", id)
	}

	SetRequestID(frame, 0xBEEF)
	if id := RequestID(frame); id != 0xBEEF {
		t.Errorf("Expected patched request id 0xBEEF, got %#04x", id)
	}

	cmd, _, err := ParseCommand(frame)
	if err != nil {
		t.Fatalf("Expected ParseCommand to succeed, got %v", err)
	}
	if cmd.RequestID != 0xBEEF {
		t.Errorf("Expected decoded request id 0xBEEF, got %#04x", cmd.RequestID)
	}
}

func TestIsEventID(t *testing.T) {
	cases := []struct {
		id   uint16
		want bool
	}{
		{0x0000, false},
		{0x0001, false},
		{EventIDMin - 1, false},
		{EventIDMin, true},
		{0xFFFF, true},
	}
	for _, c := range cases {
		if got := IsEventID(c.id); got != c.want {
			t.Errorf("IsEventID(%#04x): expected %v, got %v", c.id, c.want, got)
		}
	}
}

func TestIDAllocator_SkipsReserved(t *testing.T) {
	var a IDAllocator

	seen := make(map[uint16]bool)
	// enough iterations to wrap the 16-bit space once
	for i := 0; i < 0x11000; i++ {
		id := a.Next()
		if id == 0 {
			t.Fatal("Expected allocator to skip id 0")
		}
		if IsEventID(id) {
			t.Fatalf("Expected allocator to skip event id %#04x", id)
		}
		seen[id] = true
	}
	if len(seen) != int(EventIDMin)-1 {
		t.Errorf("Expected %d distinct usable ids, got %d", int(EventIDMin)-1, len(seen))
	}
}

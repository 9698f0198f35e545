// File: protocol/command.go
// License: Apache-2.0
//
// Command frame codec for the embedded-controller link. A command frame
// is a fixed 8-byte header followed by command data; the request id
// field correlates responses with outstanding requests.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// PayloadTypeCommand discriminates command frames. Other payload
	// types are reserved for the transport's own control traffic.
	PayloadTypeCommand byte = 0x80

	// HeaderLen is the size of the command frame header.
	HeaderLen = 8

	// RequestIDOffset is the fixed offset of the little-endian 16-bit
	// request id within an encoded command frame.
	RequestIDOffset = 6

	// EventIDMin is the first request id of the reserved sub-range
	// denoting unsolicited events. Ids in [EventIDMin, 0xFFFF] never
	// match an outstanding request.
	EventIDMin uint16 = 0xF000
)

// ErrFrameTooShort reports a frame smaller than the command header.
var ErrFrameTooShort = errors.New("eclink: frame shorter than command header")

// Command is the decoded fixed-position header of a command frame.
type Command struct {
	Type           byte
	TargetCategory byte
	TargetID       byte
	SourceID       byte
	InstanceID     byte
	CommandID      byte
	RequestID      uint16
}

// Encode appends the header and data as a single command frame.
// The request id may be zero; the request layer assigns the final id at
// submission via SetRequestID.
func (c *Command) Encode(data []byte) []byte {
	buf := make([]byte, HeaderLen, HeaderLen+len(data))
	buf[0] = c.Type
	buf[1] = c.TargetCategory
	buf[2] = c.TargetID
	buf[3] = c.SourceID
	buf[4] = c.InstanceID
	buf[5] = c.CommandID
	binary.LittleEndian.PutUint16(buf[RequestIDOffset:], c.RequestID)
	return append(buf, data...)
}

// ParseCommand decodes the header of a command frame and returns it
// together with the trailing command data.
func ParseCommand(frame []byte) (*Command, []byte, error) {
	if len(frame) < HeaderLen {
		return nil, nil, fmt.Errorf("%w (%d bytes)", ErrFrameTooShort, len(frame))
	}
	cmd := &Command{
		Type:           frame[0],
		TargetCategory: frame[1],
		TargetID:       frame[2],
		SourceID:       frame[3],
		InstanceID:     frame[4],
		CommandID:      frame[5],
		RequestID:      binary.LittleEndian.Uint16(frame[RequestIDOffset:]),
	}
	return cmd, frame[HeaderLen:], nil
}

// RequestID reads the request id field of an encoded command frame.
// The payload must be at least HeaderLen bytes.
func RequestID(payload []byte) uint16 {
	return binary.LittleEndian.Uint16(payload[RequestIDOffset:])
}

// SetRequestID patches the request id field of an encoded command frame.
func SetRequestID(payload []byte, id uint16) {
	binary.LittleEndian.PutUint16(payload[RequestIDOffset:], id)
}

// IsEventID reports whether the id lies in the reserved event sub-range.
func IsEventID(id uint16) bool {
	return id >= EventIDMin
}

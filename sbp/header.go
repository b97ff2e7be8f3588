package sbp

import (
	"fmt"

	"github.com/mus-format/mus-go/raw"
)

const (
	// Magic is the frame marker: "SBP" plus a protocol tag byte.
	Magic uint32 = 0x53425001

	// Version is the current protocol version.
	Version byte = 1

	// HeaderSize is the fixed size of every message header in bytes.
	HeaderSize = 16

	// AssociationPayloadSize is the fixed payload size of an Association
	// message: two 16-byte ids, a type byte, two 4-byte floats, and two
	// 8-byte timestamps.
	AssociationPayloadSize = 57
)

// MessageType identifies the payload layout of a frame.
type MessageType byte

const (
	// MsgConcept carries a single concept.
	MsgConcept MessageType = iota + 1
	// MsgAssociation carries a single association.
	MsgAssociation
	// MsgPath carries a reasoning path.
	MsgPath
	// MsgQuery carries a reasoning query.
	MsgQuery
	// MsgResult carries an aggregated answer.
	MsgResult
	// MsgVectorSearch carries a vector similarity search request.
	MsgVectorSearch
	// MsgLearn carries a learn request.
	MsgLearn
	// MsgError carries a transport-level error.
	MsgError
)

// Header is the fixed 16-byte preamble of every SBP frame.
type Header struct {
	Magic      uint32
	Version    byte
	Type       MessageType
	Flags      byte
	PayloadLen uint64
}

// encodeFrame builds a complete frame: header plus payload of
// payloadSize bytes, written by the marshal callback into the payload
// region. The callback must write exactly payloadSize bytes.
func encodeFrame(msgType MessageType, payloadSize int, marshal func(bs []byte)) []byte {
	bs := make([]byte, HeaderSize+payloadSize)
	n := raw.Uint32.Marshal(Magic, bs)
	n += raw.Byte.Marshal(Version, bs[n:])
	n += raw.Byte.Marshal(byte(msgType), bs[n:])
	n += raw.Byte.Marshal(0, bs[n:]) // flags
	n += raw.Byte.Marshal(0, bs[n:]) // reserved
	raw.Uint64.Marshal(uint64(payloadSize), bs[n:])
	marshal(bs[HeaderSize:])
	return bs
}

// DecodeHeader validates and parses the frame header. The magic number,
// version, message type, and declared payload length are all checked
// before any payload parsing happens, so a malformed frame is rejected
// without touching the body.
func DecodeHeader(frame []byte) (Header, error) {
	if len(frame) < HeaderSize {
		return Header{}, fmt.Errorf("%w: frame is %d bytes, header needs %d", ErrTruncated, len(frame), HeaderSize)
	}

	var h Header
	n := 0
	magic, used, err := raw.Uint32.Unmarshal(frame)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	h.Magic = magic
	n += used
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)
	}

	h.Version = frame[n]
	n++
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	h.Type = MessageType(frame[n])
	n++
	if h.Type < MsgConcept || h.Type > MsgError {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownMessageType, h.Type)
	}

	h.Flags = frame[n]
	n += 2 // flags + reserved

	payloadLen, _, err := raw.Uint64.Unmarshal(frame[n:])
	if err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	h.PayloadLen = payloadLen

	if uint64(len(frame)-HeaderSize) != h.PayloadLen {
		return Header{}, fmt.Errorf("%w: declared %d, have %d", ErrLengthMismatch, h.PayloadLen, len(frame)-HeaderSize)
	}
	return h, nil
}

// payload validates the header, checks the expected type, and returns
// the payload region.
func payload(frame []byte, want MessageType) ([]byte, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return nil, err
	}
	if h.Type != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongMessageType, h.Type, want)
	}
	return frame[HeaderSize:], nil
}

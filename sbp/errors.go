package sbp

import (
	"errors"
	"fmt"
)

// ErrProtocol is the base error for every malformed-message rejection.
// errors.Is(err, ErrProtocol) matches all of the variants below.
var ErrProtocol = errors.New("sbp: protocol error")

var (
	// ErrTruncated indicates the buffer ended before the declared data.
	ErrTruncated = fmt.Errorf("%w: truncated buffer", ErrProtocol)

	// ErrBadMagic indicates the frame does not start with the SBP magic.
	ErrBadMagic = fmt.Errorf("%w: bad magic", ErrProtocol)

	// ErrUnsupportedVersion indicates an unknown protocol version.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrProtocol)

	// ErrLengthMismatch indicates the declared payload length does not
	// match the buffer.
	ErrLengthMismatch = fmt.Errorf("%w: payload length mismatch", ErrProtocol)

	// ErrUnknownMessageType indicates an unrecognized message type byte.
	ErrUnknownMessageType = fmt.Errorf("%w: unknown message type", ErrProtocol)

	// ErrWrongMessageType indicates a frame of a different type than the
	// decoder expected.
	ErrWrongMessageType = fmt.Errorf("%w: wrong message type", ErrProtocol)

	// ErrTrailingBytes indicates payload bytes remained after the body
	// was fully parsed.
	ErrTrailingBytes = fmt.Errorf("%w: trailing bytes after payload", ErrProtocol)
)

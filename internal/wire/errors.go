package wire

import "errors"

// ProtocolError covers malformed frames: unknown tags and short reads.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string { return "wire: " + e.Op + ": " + e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return e.Err }

var (
	ErrUnknownTag  = errors.New("unknown message tag")
	ErrShortRead   = errors.New("short read")
	ErrTextTooLong = errors.New("text exceeds 255 bytes")
	ErrBadIPv4     = errors.New("not a dotted-quad IPv4 address")
)

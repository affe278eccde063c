// Package wire provides encoding and decoding of DNS messages in the
// RFC 1035 wire format, as carried over UDP and inside DoH bodies.
package wire

import (
	"errors"
	"fmt"

	"github.com/haukened/rr-doh/internal/dns/domain"
)

// Codec converts between domain messages and their wire representation.
type Codec interface {
	// Encode serialises msg. Header counts are taken from the section lengths.
	Encode(msg domain.Message) ([]byte, error)
	// Decode parses data. It never panics on malformed input.
	Decode(data []byte) (domain.Message, error)
	// BuildAQuery returns a recursive A/IN query for name with a fresh ID.
	BuildAQuery(name string) (domain.Message, error)
}

// Error causes wrapped by CodecError. Match them with errors.Is.
var (
	ErrTruncated      = errors.New("message truncated")
	ErrCountMismatch  = errors.New("section counts exceed message size")
	ErrEmptyName      = errors.New("empty name")
	ErrEmptyLabel     = errors.New("empty label")
	ErrLabelTooLong   = errors.New("label too long")
	ErrNameTooLong    = errors.New("name too long")
	ErrInvalidChar    = errors.New("invalid character in label")
	ErrBadEscape      = errors.New("invalid escape sequence")
	ErrBadPointer     = errors.New("unsupported compression pointer")
	ErrLabelType      = errors.New("unsupported label type")
	ErrTooManyRecords = errors.New("too many records in section")
	ErrRDataTooLong   = errors.New("rdata too long")
	ErrRDataLength    = errors.New("rdata length mismatch")
	ErrHeaderField    = errors.New("header field out of range")
)

// CodecError reports a failure to encode, decode or build a message.
type CodecError struct {
	Op     string // "encode", "decode" or "build"
	Offset int    // byte offset of a decode failure, -1 when not applicable
	Err    error
}

func (e *CodecError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("dns %s: offset %d: %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("dns %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func decodeError(off int, err error) *CodecError {
	return &CodecError{Op: "decode", Offset: off, Err: err}
}

func encodeError(err error) *CodecError {
	return &CodecError{Op: "encode", Offset: -1, Err: err}
}

// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated        = errors.New("protocol: truncated frame")
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
	ErrRegisterMismatch = errors.New("protocol: register mismatch")
)

// Status block error codes.
const (
	CodeTruncated        uint16 = 1
	CodeChecksumMismatch uint16 = 2
	CodeRegisterMismatch uint16 = 3
)

// DecodeError describes why a response was rejected. Kind is one of the
// package sentinels and is matched with errors.Is.
type DecodeError struct {
	Kind      error
	Requested Register
	Got       Register // valid for ErrRegisterMismatch only
	Length    int
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case ErrRegisterMismatch:
		return fmt.Sprintf("%v: want=0x%02X got=0x%02X", e.Kind, byte(e.Requested), byte(e.Got))
	default:
		return fmt.Sprintf("%v: register=0x%02X len=%d", e.Kind, byte(e.Requested), e.Length)
	}
}

func (e *DecodeError) Unwrap() error { return e.Kind }

// Code maps the error onto its status block code.
func (e *DecodeError) Code() uint16 {
	switch e.Kind {
	case ErrTruncated:
		return CodeTruncated
	case ErrChecksumMismatch:
		return CodeChecksumMismatch
	case ErrRegisterMismatch:
		return CodeRegisterMismatch
	default:
		return 1
	}
}

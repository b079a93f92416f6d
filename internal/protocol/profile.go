// internal/protocol/profile.go
package protocol

import (
	"fmt"
	"strings"
)

// StatusBitMode selects how the 16 status flags of register 0x30 are
// extracted from the two payload bytes.
type StatusBitMode uint8

const (
	// StatusBitsLegacy reproduces the deployed firmware bit test, where the
	// shift is applied to the low byte only. Bits 8..15 therefore always
	// read as zero. Kept until captures confirm the device bit layout.
	StatusBitsLegacy StatusBitMode = iota

	// StatusBitsWord tests bit i of the full little-endian word.
	StatusBitsWord
)

func (m StatusBitMode) String() string {
	switch m {
	case StatusBitsLegacy:
		return "legacy"
	case StatusBitsWord:
		return "word"
	default:
		return "unknown"
	}
}

// Profile pins the parts of the protocol that differ between observed
// BMU firmware variants. It is chosen once at construction time.
type Profile struct {
	Checksum   ChecksumOrder
	CellOffset int // first payload byte of the cell voltage run (6 or 7)
	StatusBits StatusBitMode
}

// DefaultProfile matches the variant the poll loop was deployed with.
var DefaultProfile = Profile{
	Checksum:   ChecksumSwapped,
	CellOffset: PayloadOffset,
	StatusBits: StatusBitsLegacy,
}

// AlternateProfile is the second observed variant: reversed trailing
// checksum pair and cell voltages starting one byte later.
var AlternateProfile = Profile{
	Checksum:   ChecksumNative,
	CellOffset: PayloadOffset + 1,
	StatusBits: StatusBitsLegacy,
}

// Validate checks that the profile describes a known variant.
func (p Profile) Validate() error {
	if p.Checksum != ChecksumSwapped && p.Checksum != ChecksumNative {
		return fmt.Errorf("protocol: unknown checksum order %d", p.Checksum)
	}
	if p.CellOffset != PayloadOffset && p.CellOffset != PayloadOffset+1 {
		return fmt.Errorf("protocol: cell offset must be %d or %d, got %d",
			PayloadOffset, PayloadOffset+1, p.CellOffset)
	}
	if p.StatusBits != StatusBitsLegacy && p.StatusBits != StatusBitsWord {
		return fmt.Errorf("protocol: unknown status bit mode %d", p.StatusBits)
	}
	return nil
}

// ParseChecksumOrder maps a config string onto a ChecksumOrder.
// Empty selects the default.
func ParseChecksumOrder(s string) (ChecksumOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "swapped":
		return ChecksumSwapped, nil
	case "native":
		return ChecksumNative, nil
	default:
		return 0, fmt.Errorf("protocol: unknown checksum order %q", s)
	}
}

// ParseStatusBitMode maps a config string onto a StatusBitMode.
// Empty selects the default.
func ParseStatusBitMode(s string) (StatusBitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy":
		return StatusBitsLegacy, nil
	case "word":
		return StatusBitsWord, nil
	default:
		return 0, fmt.Errorf("protocol: unknown status bit mode %q", s)
	}
}

// StatusBit returns flag i (0..15) of the status register payload.
// lo and hi are payload bytes 6 and 7.
func StatusBit(lo, hi byte, i int, mode StatusBitMode) bool {
	if i < 0 || i > 15 {
		return false
	}
	if mode == StatusBitsWord {
		word := uint16(hi)<<8 | uint16(lo)
		return (word>>uint(i))&1 == 1
	}
	return ((uint16(hi)<<8)|(uint16(lo)>>uint(i)))&1 == 1
}

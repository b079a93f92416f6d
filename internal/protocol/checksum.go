// internal/protocol/checksum.go
package protocol

// ChecksumOrder selects how the 16-bit checksum is laid out in the two
// trailing bytes of a frame.
type ChecksumOrder uint8

const (
	// ChecksumSwapped: frame[n-2] carries the high byte of Checksum(),
	// frame[n-1] the low byte. On the wire this is the inverted sum in
	// little-endian order.
	ChecksumSwapped ChecksumOrder = iota

	// ChecksumNative: frame[n-1] carries the high byte of Checksum().
	ChecksumNative
)

func (o ChecksumOrder) String() string {
	switch o {
	case ChecksumSwapped:
		return "swapped"
	case ChecksumNative:
		return "native"
	default:
		return "unknown"
	}
}

// Checksum sums b with 16-bit wraparound, inverts the result and swaps
// its two bytes.
func Checksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	c := sum ^ 0xFFFF
	return c<<8 | c>>8
}

// Verify reports whether the trailing pair of frame matches the checksum
// of frame[2:n-2]. The two magic bytes are not covered.
func Verify(frame []byte, order ChecksumOrder) bool {
	n := len(frame)
	if n < MinFrameLen {
		return false
	}
	return trailer(frame, order) == Checksum(frame[2:n-2])
}

// AppendChecksum appends the checksum of frame[2:] in the given order.
// frame must already hold the magic prefix.
func AppendChecksum(frame []byte, order ChecksumOrder) []byte {
	c := Checksum(frame[2:])
	hi, lo := byte(c>>8), byte(c)
	if order == ChecksumNative {
		return append(frame, lo, hi)
	}
	return append(frame, hi, lo)
}

func trailer(frame []byte, order ChecksumOrder) uint16 {
	n := len(frame)
	if order == ChecksumNative {
		return uint16(frame[n-1])<<8 | uint16(frame[n-2])
	}
	return uint16(frame[n-2])<<8 | uint16(frame[n-1])
}

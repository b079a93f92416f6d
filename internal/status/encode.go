// internal/status/encode.go
package status

// Encode converts a Snapshot into the live part of a status block.
// Device name slots are left zero; the writer fills them.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError

	hi, lo := CurrentWords(s.CurrentMA)
	regs[SlotCurrentHi] = hi
	regs[SlotCurrentLo] = lo

	return regs
}

// CurrentWords splits a signed current into high and low words.
func CurrentWords(ma int32) (hi, lo uint16) {
	u := uint32(ma)
	return uint16(u >> 16), uint16(u)
}

// PackASCII packs up to 2*slots ASCII characters into registers, two
// characters per register in big-endian order. Non-printable bytes are
// replaced with '?'.
func PackASCII(s string, slots int) []uint16 {
	out := make([]uint16, slots)

	b := []byte(s)
	if len(b) > 2*slots {
		b = b[:2*slots]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < 2*slots; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

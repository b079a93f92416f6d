// internal/protocol/frame.go
package protocol

// Frame layout:
//
//	0x55 0xAA LEN ADDR CMD REG PAYLOADLEN|PAYLOAD... CK CK
//
// The checksum covers everything between the magic prefix and the
// trailing pair.
const (
	Magic0 byte = 0x55
	Magic1 byte = 0xAA

	// Fixed values for every read query.
	ReadLength byte = 0x03
	AddrBMU    byte = 0x22
	CmdRead    byte = 0x01

	// MinFrameLen is the shortest span Verify accepts.
	MinFrameLen = 4

	// RegisterOffset is where a response echoes the queried register.
	RegisterOffset = 5

	// PayloadOffset is the first payload byte of a response.
	PayloadOffset = 6

	// ResponseOverhead is header (6) plus checksum (2).
	ResponseOverhead = PayloadOffset + 2

	// RequestLen is the size of an encoded read request.
	RequestLen = 9
)

// Request fully determines an outgoing frame.
type Request struct {
	Length     byte
	Address    byte
	Command    byte
	Register   Register
	PayloadLen byte
}

// ReadRequest builds the standard read query for reg.
func ReadRequest(reg Register, payloadLen byte) Request {
	return Request{
		Length:     ReadLength,
		Address:    AddrBMU,
		Command:    CmdRead,
		Register:   reg,
		PayloadLen: payloadLen,
	}
}

// Encode serializes req and appends its checksum.
func Encode(req Request, order ChecksumOrder) []byte {
	frame := make([]byte, 0, RequestLen)
	frame = append(frame,
		Magic0, Magic1,
		req.Length,
		req.Address,
		req.Command,
		byte(req.Register),
		req.PayloadLen,
	)
	return AppendChecksum(frame, order)
}

// ExpectedResponseLen is the full frame size of a reply carrying
// payloadLen bytes.
func ExpectedResponseLen(payloadLen byte) int {
	return int(payloadLen) + ResponseOverhead
}

// internal/protocol/decode.go
package protocol

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Field is one decoded value, ready for a report sink.
type Field struct {
	Name  string
	Unit  string
	Value int64
	Text  string // set for string-valued fields
	Hex   bool   // Value is displayed in hex
}

// Display renders the value the way it is reported.
func (f Field) Display() string {
	switch {
	case f.Text != "":
		return f.Text
	case f.Hex:
		return strings.ToUpper(strconv.FormatInt(f.Value, 16))
	default:
		return strconv.FormatInt(f.Value, 10)
	}
}

// Telemetry is the result of decoding one response.
// Words holds the raw little-endian payload words for register mirroring.
type Telemetry struct {
	Register Register
	Fields   []Field
	Words    []uint16
	Text     string
}

// Decoded reports whether the response produced any field.
func (t Telemetry) Decoded() bool { return len(t.Fields) > 0 }

// Current returns the pack current in mA if t carries it.
func (t Telemetry) Current() (int64, bool) {
	if t.Register != RegCurrent || len(t.Fields) == 0 {
		return 0, false
	}
	return t.Fields[0].Value, true
}

// SerialNumber returns the serial number if t carries it.
func (t Telemetry) SerialNumber() (string, bool) {
	if t.Register != RegSerialNumber || len(t.Fields) == 0 {
		return "", false
	}
	return t.Text, true
}

type decodeFunc func(p Profile, resp []byte, info RegisterInfo, t *Telemetry) error

// Decoder validates responses and dispatches them by register.
type Decoder struct {
	Profile Profile
}

// NewDecoder returns a decoder bound to one protocol profile.
func NewDecoder(p Profile) *Decoder {
	return &Decoder{Profile: p}
}

// Decode validates resp against the requested register and decodes it.
// A valid response for a register without a decoder yields an empty
// Telemetry and no error.
func (d *Decoder) Decode(resp []byte, requested Register) (Telemetry, error) {
	n := len(resp)
	if n < MinFrameLen {
		return Telemetry{}, &DecodeError{Kind: ErrTruncated, Requested: requested, Length: n}
	}
	if !Verify(resp, d.Profile.Checksum) {
		return Telemetry{}, &DecodeError{Kind: ErrChecksumMismatch, Requested: requested, Length: n}
	}
	// Checksum passed but there is no room for the register echo.
	if n < ResponseOverhead {
		return Telemetry{}, &DecodeError{Kind: ErrTruncated, Requested: requested, Length: n}
	}

	got := Register(resp[RegisterOffset])
	if got != requested {
		return Telemetry{}, &DecodeError{Kind: ErrRegisterMismatch, Requested: requested, Got: got, Length: n}
	}

	t := Telemetry{Register: got}
	info, ok := Lookup(got)
	if !ok || info.decode == nil {
		return t, nil
	}
	if err := info.decode(d.Profile, resp, info, &t); err != nil {
		return Telemetry{Register: got}, err
	}
	return t, nil
}

// ---- field decoders ----

// payloadWord reads the little-endian word at offsets 6 and 7.
func payloadWord(resp []byte, info RegisterInfo) (uint16, error) {
	if len(resp)-2 < PayloadOffset+2 {
		return 0, &DecodeError{Kind: ErrTruncated, Requested: info.Register, Length: len(resp)}
	}
	return binary.LittleEndian.Uint16(resp[PayloadOffset:]), nil
}

func decodeWord(_ Profile, resp []byte, info RegisterInfo, t *Telemetry) error {
	w, err := payloadWord(resp, info)
	if err != nil {
		return err
	}
	t.Words = []uint16{w}
	t.Fields = []Field{{Name: info.Name, Unit: info.Unit, Value: int64(w)}}
	return nil
}

func decodeFirmwareVersion(_ Profile, resp []byte, info RegisterInfo, t *Telemetry) error {
	w, err := payloadWord(resp, info)
	if err != nil {
		return err
	}
	t.Words = []uint16{w}
	t.Fields = []Field{{Name: info.Name, Value: int64(w), Hex: true}}
	return nil
}

// decodeCurrent: signed raw value, 10 mA per LSB.
func decodeCurrent(_ Profile, resp []byte, info RegisterInfo, t *Telemetry) error {
	w, err := payloadWord(resp, info)
	if err != nil {
		return err
	}
	t.Words = []uint16{w}
	t.Fields = []Field{{Name: info.Name, Unit: info.Unit, Value: int64(int16(w)) * 10}}
	return nil
}

// decodePackVoltage: 10 mV per LSB.
func decodePackVoltage(_ Profile, resp []byte, info RegisterInfo, t *Telemetry) error {
	w, err := payloadWord(resp, info)
	if err != nil {
		return err
	}
	t.Words = []uint16{w}
	t.Fields = []Field{{Name: info.Name, Unit: info.Unit, Value: int64(w) * 10}}
	return nil
}

func decodeStatusBits(p Profile, resp []byte, info RegisterInfo, t *Telemetry) error {
	w, err := payloadWord(resp, info)
	if err != nil {
		return err
	}
	lo, hi := resp[PayloadOffset], resp[PayloadOffset+1]

	t.Words = []uint16{w}
	t.Fields = make([]Field, 0, 17)
	t.Fields = append(t.Fields, Field{Name: info.Name, Value: int64(w), Hex: true})
	for i := 0; i < 16; i++ {
		var v int64
		if StatusBit(lo, hi, i, p.StatusBits) {
			v = 1
		}
		t.Fields = append(t.Fields, Field{Name: fmt.Sprintf("status_bit_%02d", i), Value: v})
	}
	return nil
}

// decodeCellVoltages reads complete little-endian pairs from the
// profile's cell offset up to the checksum. A trailing odd byte is
// dropped.
func decodeCellVoltages(p Profile, resp []byte, info RegisterInfo, t *Telemetry) error {
	end := len(resp) - 2
	for i := p.CellOffset; i+1 < end; i += 2 {
		mv := binary.LittleEndian.Uint16(resp[i:])
		t.Words = append(t.Words, mv)
		t.Fields = append(t.Fields, Field{
			Name:  fmt.Sprintf("%s_%02d", info.Name, len(t.Words)),
			Unit:  info.Unit,
			Value: int64(mv),
		})
	}
	return nil
}

func decodeSerialNumber(_ Profile, resp []byte, info RegisterInfo, t *Telemetry) error {
	t.Text = string(resp[PayloadOffset : len(resp)-2])
	t.Fields = []Field{{Name: info.Name, Text: t.Text}}
	return nil
}

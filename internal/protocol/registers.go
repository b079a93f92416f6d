// internal/protocol/registers.go
package protocol

import "fmt"

// Register is the single-byte code a query asks for and a response echoes.
type Register byte

const (
	RegSerialNumber      Register = 0x10
	RegFirmwareVersion   Register = 0x17
	RegFactoryCapacity   Register = 0x18
	RegActualCapacity    Register = 0x19
	RegStatusBits        Register = 0x30
	RegRemainingCapacity Register = 0x31
	RegRemainingPercent  Register = 0x32
	RegCurrent           Register = 0x33
	RegPackVoltage       Register = 0x34
	Reg35                Register = 0x35
	RegHealth            Register = 0x3B
	RegCellVoltages      Register = 0x40
)

func (r Register) String() string {
	if info, ok := Lookup(r); ok && info.Name != "" {
		return info.Name
	}
	return fmt.Sprintf("0x%02X", byte(r))
}

// RegisterInfo is one row of the register catalog. It drives both the
// default poll sequence and the decoder dispatch.
type RegisterInfo struct {
	Register   Register
	Name       string
	Unit       string
	PayloadLen byte // payload length put in the request

	decode decodeFunc
}

// Decodable reports whether responses for this register produce fields.
func (ri RegisterInfo) Decodable() bool { return ri.decode != nil }

// catalog is ordered as the BMU is polled.
var catalog = []RegisterInfo{
	{Register: RegCellVoltages, Name: "cell_voltage", Unit: "mV", PayloadLen: 0x14, decode: decodeCellVoltages},
	{Register: RegSerialNumber, Name: "serial_number", PayloadLen: 0x0E, decode: decodeSerialNumber},
	{Register: RegFirmwareVersion, Name: "firmware_version", PayloadLen: 0x02, decode: decodeFirmwareVersion},
	{Register: RegFactoryCapacity, Name: "factory_capacity", Unit: "mAh", PayloadLen: 0x02, decode: decodeWord},
	{Register: RegActualCapacity, Name: "actual_capacity", Unit: "mAh", PayloadLen: 0x02, decode: decodeWord},
	{Register: RegRemainingCapacity, Name: "remaining_capacity", Unit: "mAh", PayloadLen: 0x02, decode: decodeWord},
	{Register: RegRemainingPercent, Name: "remaining_capacity_pct", Unit: "%", PayloadLen: 0x02, decode: decodeWord},
	{Register: RegCurrent, Name: "current", Unit: "mA", PayloadLen: 0x02, decode: decodeCurrent},
	{Register: RegPackVoltage, Name: "pack_voltage", Unit: "mV", PayloadLen: 0x02, decode: decodePackVoltage},
	{Register: RegHealth, Name: "health", Unit: "%", PayloadLen: 0x02, decode: decodeWord},
	{Register: RegStatusBits, Name: "status_bits", PayloadLen: 0x02, decode: decodeStatusBits},

	// Queried by the deployed firmware; meaning unknown, never decoded.
	{Register: Reg35, PayloadLen: 0x02},
}

var byRegister = func() map[Register]int {
	m := make(map[Register]int, len(catalog))
	for i, ri := range catalog {
		m[ri.Register] = i
	}
	return m
}()

// Lookup returns the catalog row for r.
func Lookup(r Register) (RegisterInfo, bool) {
	i, ok := byRegister[r]
	if !ok {
		return RegisterInfo{}, false
	}
	return catalog[i], true
}

// Catalog returns a copy of the register catalog in poll order.
func Catalog() []RegisterInfo {
	out := make([]RegisterInfo, len(catalog))
	copy(out, catalog)
	return out
}

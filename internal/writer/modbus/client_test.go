// internal/writer/modbus/client_test.go
package modbus

import (
	"testing"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/require"
)

// fakeClient records FC16 requests; every other call is unused.
type fakeClient struct {
	modbus.Client

	addr     uint16
	quantity uint16
	value    []byte
	slave    func() byte
	slaveAt  byte
}

func (f *fakeClient) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	f.addr, f.quantity, f.value = address, quantity, value
	f.slaveAt = f.slave()
	return nil, nil
}

func TestWriteRegisters_SetsSlaveAndPacksBigEndian(t *testing.T) {
	h := modbus.NewTCPClientHandler("127.0.0.1:502")
	fc := &fakeClient{slave: func() byte { return h.SlaveId }}
	c := newEndpointClient(h, fc)

	require.NoError(t, c.WriteRegisters(areaHoldingRegisters, 9, 32, []uint16{0x0CE4, 0x0CE5}))

	require.Equal(t, uint16(32), fc.addr)
	require.Equal(t, uint16(2), fc.quantity)
	require.Equal(t, []byte{0x0C, 0xE4, 0x0C, 0xE5}, fc.value)
	require.Equal(t, byte(9), fc.slaveAt)
}

func TestWriteRegisters_RejectsOtherAreas(t *testing.T) {
	h := modbus.NewTCPClientHandler("127.0.0.1:502")
	c := newEndpointClient(h, &fakeClient{slave: func() byte { return 0 }})

	require.Error(t, c.WriteRegisters(4, 1, 0, []uint16{1}))
}

func TestNewEndpointClient_RequiresEndpoint(t *testing.T) {
	_, err := NewEndpointClient(Config{})
	require.Error(t, err)
}

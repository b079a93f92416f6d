// internal/poller/bmu/builder_test.go
package bmu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfg "github.com/tamzrod/bmu-poller/internal/config"
	"github.com/tamzrod/bmu-poller/internal/protocol"
)

// simLink answers every read request with a canned payload for the
// requested register.
type simLink struct {
	payloads map[protocol.Register][]byte
	pending  []byte
}

func (l *simLink) Write(b []byte) (int, error) {
	reg := protocol.Register(b[protocol.RegisterOffset])
	if p, ok := l.payloads[reg]; ok {
		l.pending = reply(reg, p, protocol.ChecksumSwapped)
	}
	return len(b), nil
}

func (l *simLink) Read(b []byte) (int, error) {
	n := copy(b, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}

func TestBuild_EndToEndCycle(t *testing.T) {
	u := cfg.UnitConfig{
		ID: "bmu-1",
		Source: cfg.SourceConfig{
			Device:   "/dev/null",
			MaxTries: 2,
		},
		Reads: []cfg.ReadConfig{
			{Register: uint8(protocol.RegCurrent), PayloadLen: 0x02},
			{Register: uint8(protocol.RegHealth), PayloadLen: 0x02},
			{Register: uint8(protocol.RegPackVoltage), PayloadLen: 0x02},
		},
		Poll: cfg.PollConfig{Once: true},
	}

	link := &simLink{payloads: map[protocol.Register][]byte{
		protocol.RegCurrent:     {0x9C, 0xFF},
		protocol.RegPackVoltage: {0x88, 0x13},
	}}

	p, sess, err := build(u, link, protocol.DefaultProfile, zap.NewNop())
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	require.Len(t, res.Results, 3)

	cur, ok := res.Results[0].Telemetry.Current()
	require.True(t, ok)
	require.EqualValues(t, -1000, cur)

	// Health never answers: timeout after max tries, the cycle continues.
	require.Error(t, res.Results[1].Err)
	require.NoError(t, res.Results[2].Err)
	require.EqualValues(t, 50000, res.Results[2].Telemetry.Fields[0].Value)

	require.Equal(t, 1, res.Failed())
	require.EqualValues(t, 1+2+1, sess.Attempts())
}

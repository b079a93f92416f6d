// internal/report/report_test.go
package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tamzrod/bmu-poller/internal/config"
	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/protocol"
	"github.com/tamzrod/bmu-poller/internal/transport"
)

func sampleCycle() poller.PollResult {
	at := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	timeout := &transport.Error{Kind: transport.ErrTimeout, Tries: 25}
	return poller.PollResult{
		UnitID:  "bmu-1",
		CycleID: "c-1",
		At:      at,
		Results: []poller.RegisterResult{
			{Register: protocol.RegCurrent, Telemetry: protocol.Telemetry{
				Register: protocol.RegCurrent,
				Fields:   []protocol.Field{{Name: "current", Unit: "mA", Value: -1000}},
			}},
			{Register: protocol.RegFirmwareVersion, Telemetry: protocol.Telemetry{
				Register: protocol.RegFirmwareVersion,
				Fields:   []protocol.Field{{Name: "firmware_version", Value: 0x12A, Hex: true}},
			}},
			{Register: protocol.Reg35, Telemetry: protocol.Telemetry{Register: protocol.Reg35}},
			{Register: protocol.RegHealth, Err: timeout},
		},
		Err: timeout,
	}
}

func TestEvents_OnePerFieldOrFailure(t *testing.T) {
	evs := Events(sampleCycle())
	require.Len(t, evs, 3)

	require.Equal(t, "current", evs[0].Field)
	require.Equal(t, "mA", evs[0].Unit)
	require.EqualValues(t, -1000, evs[0].Value)
	require.Equal(t, "c-1", evs[0].CycleID)

	require.Equal(t, "12A", evs[1].Text)

	require.True(t, evs[2].Failed())
	require.Equal(t, "health", evs[2].Register)
	require.Equal(t, "health", evs[2].Key())
	require.Equal(t, transport.CodeTimeout, evs[2].Code)
}

// ---- fanout + log ----

type recordingSink struct {
	got    [][]Event
	err    error
	closed bool
}

func (r *recordingSink) Publish(_ context.Context, evs []Event) error {
	r.got = append(r.got, evs)
	return r.err
}

func (r *recordingSink) Close() error { r.closed = true; return nil }

func TestFanout_DeliversToAllSinks(t *testing.T) {
	bad := &recordingSink{err: errors.New("broker down")}
	good := &recordingSink{}

	f := &Fanout{}
	f.Add("bad", bad)
	f.Add("good", good)

	err := f.Publish(context.Background(), Events(sampleCycle()))
	require.ErrorContains(t, err, "report bad")
	require.Len(t, good.got, 1)

	require.NoError(t, f.Publish(context.Background(), nil))
	require.Len(t, good.got, 1)

	require.NoError(t, f.Close())
	require.True(t, bad.closed)
	require.True(t, good.closed)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSink(zap.New(core))

	require.NoError(t, s.Publish(context.Background(), Events(sampleCycle())))
	require.Equal(t, 2, logs.FilterMessage("telemetry").Len())
	require.Equal(t, 1, logs.FilterMessage("transaction failed").Len())
}

// ---- mqtt ----

type fakeToken struct {
	paho.Token
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	paho.Client
	pubs []published
}

func (c *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.pubs = append(c.pubs, published{topic, qos, retained, payload.([]byte)})
	return &fakeToken{}
}

func TestMQTTSink_TopicsAndPayload(t *testing.T) {
	c := &fakeMQTT{}
	s := newMQTTSink(c, config.MQTTConfig{TopicPrefix: "bmu", QoS: 1, Retained: true, TimeoutMs: 100}, zap.NewNop())

	require.NoError(t, s.Publish(context.Background(), Events(sampleCycle())))
	require.Len(t, c.pubs, 3)
	require.Equal(t, "bmu/bmu-1/current", c.pubs[0].topic)
	require.Equal(t, "bmu/bmu-1/health", c.pubs[2].topic)
	require.Equal(t, byte(1), c.pubs[0].qos)
	require.True(t, c.pubs[0].retained)

	var ev Event
	require.NoError(t, json.Unmarshal(c.pubs[0].payload, &ev))
	require.EqualValues(t, -1000, ev.Value)
	require.Equal(t, "bmu-1", ev.UnitID)
}

// ---- kafka ----

type fakeKafka struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeKafka) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeKafka) Close() error { w.closed = true; return nil }

func TestKafkaSink_KeyedByUnit(t *testing.T) {
	w := &fakeKafka{}
	s := &KafkaSink{w: w, topic: "bmu", log: zap.NewNop()}

	require.NoError(t, s.Publish(context.Background(), Events(sampleCycle())))
	require.Len(t, w.msgs, 3)
	for _, m := range w.msgs {
		require.Equal(t, []byte("bmu-1"), m.Key)
	}
	require.NoError(t, s.Close())
	require.True(t, w.closed)
}

// ---- amqp ----

type fakeChannel struct {
	keys   []string
	err    error
	closed bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	return nil
}

func (c *fakeChannel) Close() error { c.closed = true; return nil }

func TestAMQPSink_RoutingAndReconnect(t *testing.T) {
	var dials int
	ch := &fakeChannel{}
	s := &AMQPSink{
		cfg: config.AMQPConfig{Exchange: "telemetry", RoutingKey: "bmu"},
		log: zap.NewNop(),
	}
	s.dial = func() (*amqp.Connection, amqpChannel, error) {
		dials++
		return nil, ch, nil
	}

	require.NoError(t, s.Publish(context.Background(), Events(sampleCycle())))
	require.Equal(t, []string{"bmu.bmu-1.current", "bmu.bmu-1.firmware_version", "bmu.bmu-1.health"}, ch.keys)
	require.Equal(t, 1, dials)

	ch.err = errors.New("channel closed")
	require.Error(t, s.Publish(context.Background(), Events(sampleCycle())))
	require.True(t, ch.closed)

	ch.err = nil
	require.NoError(t, s.Publish(context.Background(), Events(sampleCycle())))
	require.Equal(t, 2, dials)
}

func TestBuild_LogOnly(t *testing.T) {
	f, err := Build(config.ReportConfig{Log: true}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, f.Len())
}

// internal/poller/bmu/client.go
package bmu

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tamzrod/bmu-poller/internal/protocol"
)

// Transactor is the request/reply primitive the client runs on.
// *transport.Session implements it.
type Transactor interface {
	Transact(ctx context.Context, frame []byte, want int) ([]byte, error)
}

// Client implements poller.Client over the BMU framed protocol.
// It encodes a read request, runs one transaction and decodes the reply.
type Client struct {
	tr      Transactor
	profile protocol.Profile
	decoder *protocol.Decoder
	log     *zap.Logger
}

// New creates a client bound to one protocol profile.
func New(tr Transactor, profile protocol.Profile, log *zap.Logger) (*Client, error) {
	if tr == nil {
		return nil, errors.New("bmu client: transactor required")
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		tr:      tr,
		profile: profile,
		decoder: protocol.NewDecoder(profile),
		log:     log,
	}, nil
}

// ---- poller.Client interface ----

func (c *Client) Query(ctx context.Context, reg protocol.Register, payloadLen byte) (protocol.Telemetry, error) {
	req := protocol.ReadRequest(reg, payloadLen)
	frame := protocol.Encode(req, c.profile.Checksum)

	raw, err := c.tr.Transact(ctx, frame, protocol.ExpectedResponseLen(payloadLen))
	if err != nil {
		return protocol.Telemetry{}, err
	}

	tel, err := c.decoder.Decode(raw, reg)
	if err != nil {
		c.log.Debug("response rejected",
			zap.Stringer("register", reg),
			zap.Binary("raw", raw),
			zap.Error(err),
		)
		return protocol.Telemetry{}, err
	}
	return tel, nil
}

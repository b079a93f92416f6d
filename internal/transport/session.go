// internal/transport/session.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrTimeout = errors.New("transport: no response")
	ErrLink    = errors.New("transport: link failure")
)

// Status block error codes (protocol codes occupy 1..3).
const (
	CodeTimeout uint16 = 4
	CodeLink    uint16 = 5
)

// Link is the byte pipe to the BMU.
// Read must return (0, nil) when nothing is buffered instead of blocking
// indefinitely.
type Link interface {
	io.Reader
	io.Writer
}

// Config holds per-transaction timing. Zero values are replaced by the
// defaults below.
type Config struct {
	Timeout      time.Duration // wait for the first reply byte, per attempt
	MaxTries     int
	QuietGap     time.Duration // 0: return whatever one drain pass yields
	PollInterval time.Duration // pause between empty reads
	BufferSize   int
}

const (
	DefaultTimeout      = 200 * time.Millisecond
	DefaultMaxTries     = 25
	DefaultPollInterval = time.Millisecond
	DefaultBufferSize   = 256
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTries <= 0 {
		c.MaxTries = DefaultMaxTries
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.QuietGap < 0 {
		c.QuietGap = 0
	}
	return c
}

// Error carries the failure kind and the number of attempts made.
type Error struct {
	Kind  error
	Tries int
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v after %d attempt(s): %v", e.Kind, e.Tries, e.Err)
	}
	return fmt.Sprintf("%v after %d attempt(s)", e.Kind, e.Tries)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func (e *Error) Code() uint16 {
	if e.Kind == ErrTimeout {
		return CodeTimeout
	}
	return CodeLink
}

// Session is a synchronous request/reply primitive over one Link.
// Transactions are serialized; there is never more than one request in
// flight.
type Session struct {
	mu       sync.Mutex
	link     Link
	cfg      Config
	log      *zap.Logger
	attempts uint64
	now      func() time.Time
	sleep    func(time.Duration)
}

// New creates a session over link.
func New(link Link, cfg Config, log *zap.Logger) (*Session, error) {
	if link == nil {
		return nil, errors.New("transport: link required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		link:  link,
		cfg:   cfg.withDefaults(),
		log:   log,
		now:   time.Now,
		sleep: time.Sleep,
	}, nil
}

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Attempts returns the number of frames written so far.
func (s *Session) Attempts() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Transact writes frame and returns the raw reply. The frame is resent
// after every silent attempt, up to MaxTries. want is the expected reply
// length; it only matters when QuietGap is set (0 = unknown).
func (s *Session) Transact(ctx context.Context, frame []byte, want int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, s.cfg.BufferSize)

	for attempt := 1; attempt <= s.cfg.MaxTries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.attempts++
		if err := writeAll(s.link, frame); err != nil {
			return nil, &Error{Kind: ErrLink, Tries: attempt, Err: err}
		}

		n, err := s.awaitFirst(ctx, buf)
		if err != nil {
			return nil, s.wrap(err, attempt)
		}
		if n == 0 {
			s.log.Debug("no reply, resending",
				zap.Int("attempt", attempt),
				zap.Int("max_tries", s.cfg.MaxTries),
			)
			continue
		}

		n, err = s.drain(ctx, buf, n, want)
		if err != nil {
			return nil, s.wrap(err, attempt)
		}

		return append([]byte(nil), buf[:n]...), nil
	}

	return nil, &Error{Kind: ErrTimeout, Tries: s.cfg.MaxTries}
}

func (s *Session) wrap(err error, attempt int) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Kind: ErrLink, Tries: attempt, Err: err}
}

// awaitFirst polls the link until at least one byte arrives or the
// per-attempt timeout elapses. Returns 0 on timeout.
func (s *Session) awaitFirst(ctx context.Context, buf []byte) (int, error) {
	deadline := s.now().Add(s.cfg.Timeout)
	for {
		n, err := s.link.Read(buf)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
		if !s.now().Before(deadline) {
			return 0, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		s.sleep(s.cfg.PollInterval)
	}
}

// drain appends further bytes after the first chunk.
//
// Without a quiet gap it stops at the first empty read, which can cut a
// frame that is still on the wire; the decoder rejects such frames.
// With a quiet gap it keeps reading until want bytes are buffered or the
// line stays silent for QuietGap.
func (s *Session) drain(ctx context.Context, buf []byte, n, want int) (int, error) {
	last := s.now()
	for n < len(buf) {
		if s.cfg.QuietGap > 0 && want > 0 && n >= want {
			return n, nil
		}

		m, err := s.link.Read(buf[n:])
		if err != nil {
			return n, err
		}
		if m > 0 {
			n += m
			last = s.now()
			continue
		}

		if s.cfg.QuietGap == 0 || s.now().Sub(last) >= s.cfg.QuietGap {
			return n, nil
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		s.sleep(s.cfg.PollInterval)
	}
	return n, nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}

package protocol

import (
	"context"
	"io"
	"time"
)

// Stream is an established, optionally TLS-wrapped byte stream to a fixed
// host:port. It carries exactly one request and is never reused.
type Stream interface {
	// Read returns (0, nil) while the peer is connected but nothing has
	// arrived yet, and io.EOF once the peer has closed and nothing is left.
	Read(p []byte) (int, error)

	// Write may accept fewer bytes than offered without an error when the
	// transmit buffer is full.
	Write(p []byte) (int, error)

	// Connected reports whether the peer is still attached.
	Connected() bool

	Close() error
}

// Dialer opens a fresh connected Stream.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context) (Stream, error)

// Dial calls f(ctx).
func (f DialFunc) Dial(ctx context.Context) (Stream, error) {
	return f(ctx)
}

// Options tunes the cooperative wait inside stream reads and writes.
type Options struct {
	PollInterval time.Duration       // Yield between attempts that moved no bytes
	IdleTimeout  time.Duration       // Total yield budget without progress, 0 = default
	Sleep        func(time.Duration) // Yield implementation, nil = time.Sleep
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return o
}

// StreamWriter writes every offered byte to a Stream, yielding while the
// stream's transmit buffer is full.
type StreamWriter struct {
	s    Stream
	opts Options
}

// NewStreamWriter wraps s.
func NewStreamWriter(s Stream, opts Options) *StreamWriter {
	return &StreamWriter{s: s, opts: opts.withDefaults()}
}

// Write blocks until all of p is accepted, the peer goes away, or the stream
// makes no progress for the idle timeout.
func (w *StreamWriter) Write(p []byte) (int, error) {
	total := 0
	var waited time.Duration
	for total < len(p) {
		n, err := w.s.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n > 0 {
			waited = 0
			continue
		}
		if !w.s.Connected() {
			return total, io.ErrClosedPipe
		}
		if waited >= w.opts.IdleTimeout {
			return total, ErrWriteStalled
		}
		w.opts.Sleep(w.opts.PollInterval)
		waited += w.opts.PollInterval
	}
	return total, nil
}

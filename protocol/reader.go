package protocol

import (
	"errors"
	"io"
	"time"
)

// StreamReader buffers a Stream and turns its non-blocking reads into
// blocking ones: when nothing has arrived yet it yields for the poll
// interval and tries again, for as long as the peer stays connected.
type StreamReader struct {
	s       Stream
	opts    Options
	ring    *FifoBuffer
	scratch []byte
	eof     bool
	err     error
}

// NewStreamReader wraps s.
func NewStreamReader(s Stream, opts Options) *StreamReader {
	return &StreamReader{
		s:       s,
		opts:    opts.withDefaults(),
		ring:    NewFifoBuffer(RingSize),
		scratch: make([]byte, RingSize),
	}
}

// fill blocks until at least one more byte is buffered.
func (r *StreamReader) fill() error {
	if r.err != nil {
		return r.err
	}
	if r.eof {
		return io.EOF
	}

	var waited time.Duration
	for {
		free := r.ring.Free()
		if free == 0 {
			return nil
		}
		n, err := r.s.Read(r.scratch[:free])
		if n > 0 {
			r.ring.Write(r.scratch[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.eof = true
			} else {
				r.err = err
			}
			if n > 0 {
				return nil
			}
			if r.eof {
				return io.EOF
			}
			return r.err
		}
		if n > 0 {
			return nil
		}
		if !r.s.Connected() {
			r.eof = true
			return io.EOF
		}
		if waited >= r.opts.IdleTimeout {
			return ErrReadTimeout
		}
		r.opts.Sleep(r.opts.PollInterval)
		waited += r.opts.PollInterval
	}
}

// Read implements io.Reader. It returns io.EOF only after the peer has
// closed and every buffered byte has been consumed.
func (r *StreamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.ring.IsEmpty() {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	return r.ring.Read(p), nil
}

// ReadLine returns the next line without its trailing "\n" (a "\r" before
// it is kept). A final unterminated line is returned with a nil error; io.EOF
// is returned only when nothing at all was left.
func (r *StreamReader) ReadLine() (string, error) {
	var line []byte
	for {
		if idx := r.ring.IndexByte('\n'); idx >= 0 {
			chunk := make([]byte, idx+1)
			r.ring.Read(chunk)
			line = append(line, chunk[:idx]...)
			return string(line), nil
		}
		if !r.ring.IsEmpty() {
			chunk := make([]byte, r.ring.Available())
			r.ring.Read(chunk)
			line = append(line, chunk...)
		}
		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), nil
			}
			return string(line), err
		}
	}
}

// Connected reports whether more bytes may still arrive.
func (r *StreamReader) Connected() bool {
	return !r.ring.IsEmpty() || (!r.eof && r.err == nil && r.s.Connected())
}

// Package netstream implements protocol.Stream over TCP, optionally wrapped
// in TLS, for running the device stack on a Linux host.
package netstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"livi/protocol"
)

// Config describes the remote endpoint.
type Config struct {
	Addr               string // host:port
	TLS                bool
	InsecureSkipVerify bool // Accept self-signed backend certificates
	ServerName         string
	DialTimeout        time.Duration
	PollInterval       time.Duration // Read deadline per attempt
	WriteTimeout       time.Duration
}

// Dialer opens a new connection per Dial.
type Dialer struct {
	cfg Config
}

// NewDialer returns a dialer for cfg.
func NewDialer(cfg Config) *Dialer {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = protocol.DefaultPollInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = protocol.DefaultIdleTimeout
	}
	if cfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(cfg.Addr); err == nil {
			cfg.ServerName = host
		}
	}
	return &Dialer{cfg: cfg}
}

// Dial implements protocol.Dialer.
func (d *Dialer) Dial(ctx context.Context) (protocol.Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.DialTimeout)
	defer cancel()

	var (
		conn net.Conn
		err  error
	)
	if d.cfg.TLS {
		td := &tls.Dialer{Config: &tls.Config{
			ServerName:         d.cfg.ServerName,
			InsecureSkipVerify: d.cfg.InsecureSkipVerify,
		}}
		conn, err = td.DialContext(ctx, "tcp", d.cfg.Addr)
	} else {
		var nd net.Dialer
		conn, err = nd.DialContext(ctx, "tcp", d.cfg.Addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.cfg.Addr, err)
	}
	return &Stream{conn: conn, poll: d.cfg.PollInterval, writeTimeout: d.cfg.WriteTimeout}, nil
}

// Stream adapts a net.Conn to the non-blocking read contract: a read that
// finds nothing within the poll interval returns (0, nil).
type Stream struct {
	conn         net.Conn
	poll         time.Duration
	writeTimeout time.Duration
	eof          bool
	closed       bool
}

// Read implements protocol.Stream.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed || s.eof {
		return 0, io.EOF
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.poll)); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(p)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	s.eof = true
	if n > 0 {
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	return 0, err
}

// Write implements protocol.Stream. TLS connections cannot resume after a
// write deadline, so writes block up to the write timeout instead of
// returning short.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return 0, err
	}
	return s.conn.Write(p)
}

// Connected implements protocol.Stream.
func (s *Stream) Connected() bool {
	return !s.closed && !s.eof
}

// Close implements protocol.Stream. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

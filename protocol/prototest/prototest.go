// Package prototest provides scripted protocol.Stream and protocol.Dialer
// fakes for exercising the HTTP client without a network.
package prototest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"livi/protocol"
)

// Stream replays a canned response in fragments and records what was written.
type Stream struct {
	Fragments  [][]byte // Delivered one per non-empty Read
	EmptyReads int      // (0, nil) reads before each fragment
	StayOpen   bool     // Keep reporting connected once the script is exhausted
	WriteLimit int      // Max bytes accepted per Write call, 0 = unlimited

	Written bytes.Buffer
	Closed  bool

	next  int
	waits int
}

// NewStream splits response into fragments of at most fragSize bytes
// (0 = a single fragment).
func NewStream(response string, fragSize int) *Stream {
	return &Stream{Fragments: Split([]byte(response), fragSize)}
}

// Split cuts data into pieces of at most size bytes
func Split(data []byte, size int) [][]byte {
	if size <= 0 || size >= len(data) {
		if len(data) == 0 {
			return nil
		}
		return [][]byte{data}
	}
	var out [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

// Read implements protocol.Stream.
func (s *Stream) Read(p []byte) (int, error) {
	if s.Closed {
		return 0, io.EOF
	}
	if s.next >= len(s.Fragments) {
		if s.StayOpen {
			return 0, nil
		}
		return 0, io.EOF
	}
	if s.waits < s.EmptyReads {
		s.waits++
		return 0, nil
	}
	frag := s.Fragments[s.next]
	n := copy(p, frag)
	if n < len(frag) {
		s.Fragments[s.next] = frag[n:]
	} else {
		s.next++
		s.waits = 0
	}
	return n, nil
}

// Write implements protocol.Stream.
func (s *Stream) Write(p []byte) (int, error) {
	if s.Closed {
		return 0, io.ErrClosedPipe
	}
	if s.WriteLimit > 0 && len(p) > s.WriteLimit {
		p = p[:s.WriteLimit]
	}
	return s.Written.Write(p)
}

// Connected implements protocol.Stream.
func (s *Stream) Connected() bool {
	return !s.Closed && (s.next < len(s.Fragments) || s.StayOpen)
}

// Close implements protocol.Stream.
func (s *Stream) Close() error {
	s.Closed = true
	return nil
}

// ErrRefused is returned by Dialer for scripted connect failures
var ErrRefused = errors.New("connection refused")

// Dialer hands out one scripted Stream per Dial, taking responses in order
// and repeating the last one when the script runs out.
type Dialer struct {
	Responses    []string
	FragmentSize int
	EmptyReads   int
	FailFirst    int // Number of initial dials that fail with ErrRefused

	Streams []*Stream
	dials   int
}

// Dial implements protocol.Dialer.
func (d *Dialer) Dial(ctx context.Context) (protocol.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.dials++
	if d.dials <= d.FailFirst {
		return nil, ErrRefused
	}
	if len(d.Responses) == 0 {
		return nil, ErrRefused
	}
	idx := len(d.Streams)
	if idx >= len(d.Responses) {
		idx = len(d.Responses) - 1
	}
	s := NewStream(d.Responses[idx], d.FragmentSize)
	s.EmptyReads = d.EmptyReads
	d.Streams = append(d.Streams, s)
	return s, nil
}

// Dials returns the number of Dial calls, including failed ones
func (d *Dialer) Dials() int {
	return d.dials
}

// Requests returns the raw bytes written to each stream
func (d *Dialer) Requests() []string {
	out := make([]string, len(d.Streams))
	for i, s := range d.Streams {
		out[i] = s.Written.String()
	}
	return out
}

// NoSleep is a protocol.Options.Sleep that returns immediately
func NoSleep(time.Duration) {}

// LengthResponse renders a response with a Content-Length body
func LengthResponse(status int, body string) string {
	return fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s",
		status, reason(status), len(body), body)
}

// ChunkedResponse renders a response with a chunked body made of chunks
func ChunkedResponse(status int, chunks ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP/1.1 %d %s\r\nTransfer-Encoding: chunked\r\n\r\n", status, reason(status))
	for _, c := range chunks {
		sb.WriteString(strconv.FormatInt(int64(len(c)), 16) + "\r\n" + c + "\r\n")
	}
	sb.WriteString("0\r\n\r\n")
	return sb.String()
}

// CloseResponse renders a response whose body runs until the connection closes
func CloseResponse(status int, body string) string {
	return fmt.Sprintf("HTTP/1.1 %d %s\r\n\r\n%s", status, reason(status), body)
}

func reason(status int) string {
	switch status {
	case 200:
		return "OK"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	default:
		return "Status"
	}
}

package protocol_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"livi/protocol"
	"livi/protocol/prototest"
)

func TestRequestHead(t *testing.T) {
	req := protocol.NewRequest("POST", "api.example.com", "/livi/transcript", protocol.BytesBody(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("content-type", "text/plain")

	want := "POST /livi/transcript HTTP/1.1\r\n" +
		"Host: api.example.com\r\n" +
		"User-Agent: " + protocol.UserAgent + "\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 7\r\n" +
		"Connection: close\r\n\r\n"
	if got := req.Head(); got != want {
		t.Errorf("Unexpected head:\n%q\nwant\n%q", got, want)
	}
	if req.Header.Get("CONTENT-TYPE") != "text/plain" {
		t.Errorf("Header lookup should ignore case")
	}
}

func TestRequestWithoutBody(t *testing.T) {
	req := protocol.NewRequest("GET", "h", "/livi/health", nil)
	if strings.Contains(req.Head(), "Content-Length") {
		t.Error("GET without body must not declare a length")
	}
}

func TestReaderBodyStreamsBlocksThroughShortWrites(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 350) // 3500 bytes, four blocks
	s := &prototest.Stream{WriteLimit: 300}

	req := protocol.NewRequest("POST", "h", "/livi/image", protocol.ReaderBody{R: bytes.NewReader(payload), N: int64(len(payload))})
	if err := req.Write(protocol.NewStreamWriter(s, testOpts)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	written := s.Written.String()
	idx := strings.Index(written, "\r\n\r\n")
	if idx < 0 {
		t.Fatal("No header terminator written")
	}
	if body := written[idx+4:]; body != string(payload) {
		t.Errorf("Body mismatch: wrote %d bytes, want %d", len(body), len(payload))
	}
	if !strings.Contains(written[:idx], "Content-Length: 3500") {
		t.Errorf("Missing Content-Length in head %q", written[:idx])
	}
}

func TestReaderBodyShortSource(t *testing.T) {
	var out bytes.Buffer
	body := protocol.ReaderBody{R: strings.NewReader("abc"), N: 10}

	n, err := body.WriteTo(&out)
	if !errors.Is(err, protocol.ErrShortBody) {
		t.Fatalf("Expected ErrShortBody, got %v", err)
	}
	if n != 3 || out.String() != "abc" {
		t.Errorf("Expected 3 bytes written, got %d %q", n, out.String())
	}
}

func TestStreamWriterStalls(t *testing.T) {
	w := protocol.NewStreamWriter(&stuckStream{Stream: &prototest.Stream{StayOpen: true}}, testOpts)

	if _, err := w.Write([]byte("data")); !errors.Is(err, protocol.ErrWriteStalled) {
		t.Errorf("Expected ErrWriteStalled, got %v", err)
	}
}

// stuckStream accepts no bytes at all while staying connected
type stuckStream struct {
	*prototest.Stream
}

func (s *stuckStream) Write(p []byte) (int, error) {
	return 0, nil
}

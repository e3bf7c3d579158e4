package netstream

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livi/protocol"
)

func backendHandler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livi/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true}`)
	})
	mux.HandleFunc("/livi/image", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "abc", r.URL.Query().Get("request_id"))
		assert.Equal(t, "dev-1", r.Header.Get("X-Device-Id"))
		flusher := w.(http.Flusher)
		// Flushing forces chunked framing
		io.WriteString(w, `{"response":"got `)
		flusher.Flush()
		io.WriteString(w, strings.Repeat("x", len(data)/1000)+`"}`)
	})
	return mux
}

func dialerFor(srv *httptest.Server, tlsOn bool) *Dialer {
	return NewDialer(Config{
		Addr:               srv.Listener.Addr().String(),
		TLS:                tlsOn,
		InsecureSkipVerify: true,
		PollInterval:       5 * time.Millisecond,
	})
}

var opts = protocol.Options{PollInterval: 5 * time.Millisecond, IdleTimeout: 5 * time.Second}

func TestPlainRoundTrip(t *testing.T) {
	srv := httptest.NewServer(backendHandler(t))
	defer srv.Close()

	req := protocol.NewRequest("GET", "backend", "/livi/health", nil)
	resp, err := protocol.Do(context.Background(), dialerFor(srv, false), req, opts)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "length", resp.Framing.Mode())
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
}

func TestTLSChunkedUpload(t *testing.T) {
	srv := httptest.NewTLSServer(backendHandler(t))
	defer srv.Close()

	payload := strings.Repeat("j", 5000)
	req := protocol.NewRequest("POST", "backend", "/livi/image?device_id=dev-1&request_id=abc&detail=low",
		protocol.ReaderBody{R: strings.NewReader(payload), N: int64(len(payload))})
	req.Header.Set("X-Device-Id", "dev-1")

	resp, err := protocol.Do(context.Background(), dialerFor(srv, true), req, opts)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.True(t, resp.Framing.Chunked)
	assert.Equal(t, "got xxxxx", protocol.GetString(string(resp.Body), "response", ""))
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	d := NewDialer(Config{Addr: addr, DialTimeout: time.Second})
	_, err = protocol.Do(context.Background(), d, protocol.NewRequest("GET", "h", "/", nil), opts)
	assert.ErrorIs(t, err, protocol.ErrConnect)
}

func TestReadReportsNothingYet(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	s := &Stream{conn: client, poll: 5 * time.Millisecond, writeTimeout: time.Second}
	buf := make([]byte, 8)

	n, err := s.Read(buf)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, s.Connected())

	go func() {
		server.Write([]byte("hi"))
		server.Close()
	}()
	var got []byte
	for s.Connected() {
		n, err := s.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
	}
	assert.Equal(t, "hi", string(got))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

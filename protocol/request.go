package protocol

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header is one request header line
type Header struct {
	Key   string
	Value string
}

// Headers is an ordered header list; order on the wire follows insertion
type Headers []Header

// Set replaces the first header named key (case-insensitively) or appends it
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if strings.EqualFold((*h)[i].Key, key) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: value})
}

// Get returns the value of the first header named key
func (h Headers) Get(key string) string {
	for _, hd := range h {
		if strings.EqualFold(hd.Key, key) {
			return hd.Value
		}
	}
	return ""
}

// Body is an outbound request body whose length is known before any byte
// is sent (the device never sends chunked requests).
type Body interface {
	Len() int64
	WriteTo(w io.Writer) (int64, error)
}

// BytesBody is a small in-memory body such as a JSON payload
type BytesBody []byte

// Len returns the payload size
func (b BytesBody) Len() int64 { return int64(len(b)) }

// WriteTo writes the payload in one call
func (b BytesBody) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b)
	return int64(n), err
}

// ReaderBody streams exactly N bytes from R, typically a storage file
type ReaderBody struct {
	R io.Reader
	N int64
}

// Len returns the declared size
func (b ReaderBody) Len() int64 { return b.N }

// WriteTo copies the body in BlockSize blocks
func (b ReaderBody) WriteTo(w io.Writer) (int64, error) {
	return copyBlocks(w, b.R, b.N)
}

// copyBlocks moves exactly n bytes from r to w one block at a time. Each
// block is fully written before the next one is read.
func copyBlocks(w io.Writer, r io.Reader, n int64) (int64, error) {
	var block [BlockSize]byte
	var total int64
	for total < n {
		want := int64(len(block))
		if rem := n - total; rem < want {
			want = rem
		}
		got, err := io.ReadFull(r, block[:want])
		if got > 0 {
			written, werr := w.Write(block[:got])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return total, fmt.Errorf("%w: sent %d of %d bytes", ErrShortBody, total, n)
			}
			return total, err
		}
	}
	return total, nil
}

// Request is a single-use HTTP/1.1 request
type Request struct {
	Method string
	Path   string // Absolute path with query
	Host   string
	Header Headers
	Body   Body
}

// NewRequest builds a request with the fixed device headers
func NewRequest(method, host, path string, body Body) *Request {
	req := &Request{
		Method: method,
		Path:   path,
		Host:   host,
		Body:   body,
	}
	req.Header.Set("User-Agent", UserAgent)
	return req
}

// Head renders the request line and headers including the blank line
func (req *Request) Head() string {
	var sb strings.Builder
	sb.WriteString(req.Method + " " + req.Path + " HTTP/1.1\r\n")
	sb.WriteString("Host: " + req.Host + "\r\n")
	for _, h := range req.Header {
		sb.WriteString(h.Key + ": " + h.Value + "\r\n")
	}
	if req.Body != nil {
		sb.WriteString("Content-Length: " + strconv.FormatInt(req.Body.Len(), 10) + "\r\n")
	}
	sb.WriteString("Connection: close\r\n\r\n")
	return sb.String()
}

// Write sends the head and then streams the body
func (req *Request) Write(w io.Writer) error {
	if _, err := io.WriteString(w, req.Head()); err != nil {
		return fmt.Errorf("write head: %w", err)
	}
	if req.Body == nil {
		return nil
	}
	if _, err := req.Body.WriteTo(w); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

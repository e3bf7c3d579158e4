package protocol

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Framing is the body length strategy announced by the response headers.
// Chunked takes precedence over a declared length; neither means the body
// runs until the peer closes.
type Framing struct {
	Chunked       bool
	ContentLength int
	HasLength     bool
}

// Mode names the strategy for diagnostics
func (f Framing) Mode() string {
	switch {
	case f.Chunked:
		return "chunked"
	case f.HasLength:
		return "length"
	default:
		return "close"
	}
}

// Response is a fully read HTTP response
type Response struct {
	Status  int
	Reason  string
	Header  map[string]string // Lower-cased name to first value
	Framing Framing
	Body    []byte
}

// ReadResponse reads the status line, headers and body from r.
//
// A status line that cannot be parsed leaves Status at StatusUnknown. The
// body may be shorter than a declared Content-Length if the peer closed
// early. A non-nil error is only returned for transport failures other than
// a close; the partial response is returned alongside it.
func ReadResponse(r *StreamReader) (*Response, error) {
	resp := &Response{
		Status: StatusUnknown,
		Header: make(map[string]string),
	}

	line, err := r.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return resp, nil
		}
		return resp, err
	}
	resp.Status, resp.Reason = parseStatusLine(line)

	if err := readHeaders(r, resp); err != nil {
		return resp, err
	}

	var body bytes.Buffer
	switch {
	case resp.Framing.Chunked:
		err = readChunked(r, &body)
	case resp.Framing.HasLength:
		_, err = io.CopyN(&body, r, int64(resp.Framing.ContentLength))
	default:
		_, err = io.Copy(&body, r)
	}
	resp.Body = body.Bytes()

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return resp, err
	}
	return resp, nil
}

// parseStatusLine splits "HTTP/1.1 200 OK" on its first two spaces.
func parseStatusLine(line string) (int, string) {
	line = strings.TrimRight(line, "\r")
	_, rest, ok := strings.Cut(line, " ")
	if !ok {
		return StatusUnknown, ""
	}
	code, reason, _ := strings.Cut(rest, " ")
	status, err := strconv.Atoi(code)
	if err != nil || status < 0 {
		return StatusUnknown, reason
	}
	return status, reason
}

func readHeaders(r *StreamReader, resp *Response) error {
	for {
		line, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r")
		if line == "" {
			return nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if _, seen := resp.Header[name]; !seen {
			resp.Header[name] = value
		}

		switch name {
		case "transfer-encoding":
			if strings.Contains(strings.ToLower(value), "chunked") {
				resp.Framing.Chunked = true
			}
		case "content-length":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				resp.Framing.ContentLength = n
				resp.Framing.HasLength = true
			}
		}
	}
}

// readChunked decodes a chunked body into w. A size line that is not valid
// hex ends the body like a zero-size chunk.
func readChunked(r *StreamReader, w io.Writer) error {
	var crlf [2]byte
	for {
		line, err := r.ReadLine()
		if err != nil {
			return err
		}
		sizeText, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseUint(strings.TrimSpace(sizeText), 16, 31)
		if err != nil || size == 0 {
			// Trailing line after the terminator
			_, err := r.ReadLine()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if _, err := io.CopyN(w, r, int64(size)); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, crlf[:]); err != nil {
			return err
		}
	}
}

package protocol

import (
	"errors"
	"strconv"
)

var (
	// ErrConnect reports a failure to establish the transport stream.
	ErrConnect = errors.New("connect failed")

	// ErrReadTimeout reports a peer that stayed silent past the idle timeout.
	ErrReadTimeout = errors.New("read timed out")

	// ErrWriteStalled reports a stream that accepted no bytes past the idle timeout.
	ErrWriteStalled = errors.New("write stalled")

	// ErrEmptyResponse reports a 200 response without a body.
	ErrEmptyResponse = errors.New("empty response")

	// ErrShortBody reports a body source that ended before its declared length.
	ErrShortBody = errors.New("body shorter than declared length")
)

// StatusError reports a response whose status was not 200.
type StatusError struct {
	Status  int
	Message string // "error" field of the body, when present
}

func (e *StatusError) Error() string {
	msg := "unexpected status " + strconv.Itoa(e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

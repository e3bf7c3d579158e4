package protocol

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Do performs one request on a fresh stream: dial, send, read the whole
// response, close. Connections are never reused.
func Do(ctx context.Context, d Dialer, req *Request, opts Options) (resp *Response, err error) {
	s, err := d.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	if err := req.Write(NewStreamWriter(s, opts)); err != nil {
		return nil, err
	}

	resp, err = ReadResponse(NewStreamReader(s, opts))
	if err != nil {
		return resp, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Check converts a response into the error taxonomy used by callers:
// a non-200 status becomes a *StatusError and an empty 200 body becomes
// ErrEmptyResponse.
func Check(resp *Response) error {
	if resp.Status != 200 {
		return &StatusError{
			Status:  resp.Status,
			Message: GetString(string(resp.Body), "error", ""),
		}
	}
	if len(resp.Body) == 0 {
		return ErrEmptyResponse
	}
	return nil
}

package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"livi/protocol"
)

func (c *Client) newRequest(method, path string, body protocol.Body) *protocol.Request {
	req := protocol.NewRequest(method, c.host, path, body)
	req.Header.Set("X-Device-Id", c.cfg.DeviceID)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return req
}

// replyTransport raises the idle budget to ReplyTimeout for requests whose
// answer comes from a model.
func (c *Client) replyTransport() protocol.Options {
	opts := c.cfg.Transport
	if opts.IdleTimeout < c.cfg.ReplyTimeout {
		opts.IdleTimeout = c.cfg.ReplyTimeout
	}
	return opts
}

// roundTrip sends req and applies the common status/empty-body checks
func (c *Client) roundTrip(ctx context.Context, req *protocol.Request, opts protocol.Options) (string, error) {
	start := time.Now()
	resp, err := protocol.Do(ctx, c.dial, req, opts)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	c.log.Debug("response",
		zap.String("path", req.Path),
		zap.Int("status", resp.Status),
		zap.String("framing", resp.Framing.Mode()),
		zap.Int("bytes", len(resp.Body)),
		zap.Duration("elapsed", time.Since(start)))
	if err := protocol.Check(resp); err != nil {
		return "", fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return string(resp.Body), nil
}

// Health reports the backend's "ok" flag.
func (c *Client) Health(ctx context.Context) (bool, error) {
	body, err := c.roundTrip(ctx, c.newRequest("GET", "/livi/health", nil), c.cfg.Transport)
	if err != nil {
		return false, err
	}
	return protocol.GetBool(body, "ok", false), nil
}

// PostTranscript submits a text transcript.
func (c *Client) PostTranscript(ctx context.Context, transcript string) (TranscriptReply, error) {
	payload := `{"device_id":"` + protocol.EscapeJSONString(c.cfg.DeviceID) +
		`","transcript":"` + protocol.EscapeJSONString(transcript) + `"}`

	req := c.newRequest("POST", "/livi/transcript", protocol.BytesBody(payload))
	req.Header.Set("Content-Type", "application/json")

	body, err := c.roundTrip(ctx, req, c.replyTransport())
	if err != nil {
		return TranscriptReply{}, err
	}
	return TranscriptReply{
		NeedImage:         needImage(body),
		RequestID:         protocol.GetString(body, "request_id", ""),
		AssistantResponse: protocol.GetString(body, "assistant_response", ""),
		ImageRequest:      protocol.GetString(body, "image_request", ""),
	}, nil
}

// upload streams the stored file at path as a raw body
func (c *Client) upload(ctx context.Context, path, target, contentType string, limit int64) (string, error) {
	f, err := c.storage.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	size := f.Size()
	if size > limit {
		return "", fmt.Errorf("%s is %s: %w", path, humanize.IBytes(uint64(size)), ErrTooLarge)
	}
	c.log.Info("uploading",
		zap.String("file", path),
		zap.String("size", humanize.IBytes(uint64(size))),
		zap.String("endpoint", target))

	req := c.newRequest("POST", target, protocol.ReaderBody{R: f, N: size})
	req.Header.Set("Content-Type", contentType)
	return c.roundTrip(ctx, req, c.replyTransport())
}

// PostAudio uploads the WAV recording stored at path.
func (c *Client) PostAudio(ctx context.Context, path string) (AudioReply, error) {
	target := "/livi/audio?" + query("device_id", c.cfg.DeviceID)
	body, err := c.upload(ctx, path, target, "audio/wav", c.cfg.MaxAudioBytes)
	if err != nil {
		return AudioReply{}, err
	}
	return AudioReply{
		NeedImage:    needImage(body),
		RequestID:    protocol.GetString(body, "request_id", ""),
		ImageRequest: protocol.GetString(body, "image_request", ""),
		Transcript:   protocol.GetString(body, "transcript", ""),
	}, nil
}

// PostImage uploads the JPEG stored at path for the given correlation id and
// returns the vision reply, or the raw body when it has no "response" field.
func (c *Client) PostImage(ctx context.Context, path, requestID, detail string) (string, error) {
	target := "/livi/image?" + query("device_id", c.cfg.DeviceID, "request_id", requestID, "detail", detail)
	body, err := c.upload(ctx, path, target, "image/jpeg", c.cfg.MaxImageBytes)
	if err != nil {
		return "", err
	}
	return protocol.GetString(body, "response", body), nil
}

// PollNextCommand asks for the next command every poll interval until the
// backend answers 200. There is no attempt limit; only ctx ends the loop.
func (c *Client) PollNextCommand(ctx context.Context) (Command, error) {
	req := c.newRequest("GET", "/livi/commands/next?"+query("device_id", c.cfg.DeviceID), nil)

	for attempt := 1; ; attempt++ {
		resp, err := protocol.Do(ctx, c.dial, req, c.cfg.Transport)
		if err == nil && resp.Status == 200 {
			body := string(resp.Body)
			c.log.Info("command received", zap.Int("attempts", attempt))
			return Command{Body: body, RequestID: protocol.GetString(body, "request_id", "")}, nil
		}
		if err != nil {
			c.log.Debug("poll failed", zap.Int("attempt", attempt), zap.Error(err))
		}

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Command{}, ctx.Err()
		case <-timer.C:
		}
	}
}

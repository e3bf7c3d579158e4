// Package backend is the device side of the livi assistant protocol. Each
// operation opens a fresh stream, sends one request and decodes the flat
// JSON reply into a typed result.
package backend

import (
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"livi/core"
	"livi/protocol"
)

// Upload limits enforced by the backend
const (
	MaxAudioBytes = 10 << 20
	MaxImageBytes = 8 << 20

	DefaultPollInterval = time.Second

	// Transcript, audio and image replies wait on the assistant and vision
	// models before the first byte arrives.
	DefaultReplyTimeout = 2 * time.Minute
)

// ErrTooLarge is returned before connecting when a stored file exceeds the
// upload limit for its endpoint.
var ErrTooLarge = errors.New("file exceeds upload limit")

// Config holds the per-device protocol settings.
type Config struct {
	DeviceID      string
	Token         string        // Static bearer token, empty = none
	PollInterval  time.Duration // Cadence of next-command polling
	ReplyTimeout  time.Duration // Idle budget for model-backed replies
	Transport     protocol.Options
	MaxAudioBytes int64
	MaxImageBytes int64
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = DefaultReplyTimeout
	}
	if c.MaxAudioBytes <= 0 {
		c.MaxAudioBytes = MaxAudioBytes
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = MaxImageBytes
	}
	return c
}

// TranscriptReply is the decoded /livi/transcript response.
type TranscriptReply struct {
	NeedImage         bool
	RequestID         string
	AssistantResponse string
	ImageRequest      string
}

// AudioReply is the decoded /livi/audio response. Transcript is only
// surfaced for diagnostics.
type AudioReply struct {
	NeedImage    bool
	RequestID    string
	ImageRequest string
	Transcript   string
}

// Command is a server-issued next command. Body is kept raw for the caller.
type Command struct {
	Body      string
	RequestID string
}

// Client talks to the assistant backend.
type Client struct {
	dial    protocol.Dialer
	host    string
	storage core.Storage
	cfg     Config
	log     *zap.Logger
}

// New creates a client. host is sent as the Host header; dial must connect
// to the same endpoint.
func New(dial protocol.Dialer, host string, storage core.Storage, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		dial:    dial,
		host:    host,
		storage: storage,
		cfg:     cfg.withDefaults(),
		log:     logger.Named("backend"),
	}
}

// DeviceID returns the identity sent with every request
func (c *Client) DeviceID() string {
	return c.cfg.DeviceID
}

// needImage reads need_image, accepting the needs_image spelling as well
func needImage(body string) bool {
	return protocol.GetBool(body, "need_image", protocol.GetBool(body, "needs_image", false))
}

func query(pairs ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v.Encode()
}

package backend

import (
	"context"
	"fmt"
	"path"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"livi/core"
	"livi/protocol"
)

// TranscriberConfig describes the external speech-to-text endpoint.
type TranscriberConfig struct {
	Path           string // Request path, e.g. /v1/audio/transcriptions
	Token          string
	Model          string
	ResponseFormat string
	Language       string // Optional; the part is omitted when empty
	MaxBytes       int64
	Transport      protocol.Options
}

// Transcriber uploads recordings to a speech-to-text service as
// multipart/form-data.
type Transcriber struct {
	dial    protocol.Dialer
	host    string
	storage core.Storage
	cfg     TranscriberConfig
	log     *zap.Logger
}

// NewTranscriber creates a transcription client for host.
func NewTranscriber(dial protocol.Dialer, host string, storage core.Storage, cfg TranscriberConfig, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = "/v1/audio/transcriptions"
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = "json"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = MaxAudioBytes
	}
	return &Transcriber{dial: dial, host: host, storage: storage, cfg: cfg, log: logger.Named("transcribe")}
}

// Transcribe uploads a stored recording and returns the recognised text.
// A reply that is not a JSON object is returned verbatim.
func (t *Transcriber) Transcribe(ctx context.Context, file string) (string, error) {
	f, err := t.storage.Open(file)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	if f.Size() > t.cfg.MaxBytes {
		return "", fmt.Errorf("%s is %s: %w", file, humanize.IBytes(uint64(f.Size())), ErrTooLarge)
	}

	fields := []protocol.FormField{
		{Name: "model", Value: t.cfg.Model},
		{Name: "response_format", Value: t.cfg.ResponseFormat},
	}
	if t.cfg.Language != "" {
		fields = append(fields, protocol.FormField{Name: "language", Value: t.cfg.Language})
	}
	mp := protocol.NewMultipart(fields, protocol.FormFile{
		Field:       "file",
		FileName:    path.Base(file),
		ContentType: "audio/wav",
		R:           f,
		Size:        f.Size(),
	})

	req := protocol.NewRequest("POST", t.host, t.cfg.Path, mp)
	req.Header.Set("Content-Type", mp.ContentType())
	if t.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.Token)
	}

	t.log.Info("transcribing", zap.String("file", file), zap.String("size", humanize.IBytes(uint64(mp.Len()))))
	resp, err := protocol.Do(ctx, t.dial, req, t.cfg.Transport)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if err := protocol.Check(resp); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	body := string(resp.Body)
	if !protocol.LooksLikeJSON(body) {
		return body, nil
	}
	return protocol.GetString(body, "text", ""), nil
}

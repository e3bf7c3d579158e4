// Package config loads the livi-device YAML configuration.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

// Config is the complete device configuration.
type Config struct {
	Device        DeviceConfig        `yaml:"device"`
	Backend       BackendConfig       `yaml:"backend"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Capture       CaptureConfig       `yaml:"capture"`
	Storage       StorageConfig       `yaml:"storage"`
	Console       ConsoleConfig       `yaml:"console"`
	Log           LogConfig           `yaml:"log"`
}

// DeviceConfig holds identity and button settings.
type DeviceConfig struct {
	ID                string   `yaml:"id"`
	Tick              Duration `yaml:"tick"`
	Debounce          Duration `yaml:"debounce"`
	DoubleClickWindow Duration `yaml:"double_click_window"`
	ActiveLow         *bool    `yaml:"active_low"`
	ButtonPin         uint32   `yaml:"button_pin"`
}

// BackendConfig describes the assistant backend endpoint.
type BackendConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	TLS                *bool    `yaml:"tls"`
	InsecureSkipVerify *bool    `yaml:"insecure_skip_verify"`
	Token              string   `yaml:"token"`
	Detail             string   `yaml:"detail"`
	PollInterval       Duration `yaml:"poll_interval"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	ReplyTimeout       Duration `yaml:"reply_timeout"`
	DialTimeout        Duration `yaml:"dial_timeout"`
	MaxAudioBytes      int64    `yaml:"max_audio_bytes"`
	MaxImageBytes      int64    `yaml:"max_image_bytes"`
}

// Addr returns host:port
func (b BackendConfig) Addr() string {
	return b.Host + ":" + strconv.Itoa(b.Port)
}

// HostHeader returns the Host header value for the backend.
func (b BackendConfig) HostHeader() string {
	return hostHeader(b.Host, b.Port, b.TLS)
}

// TranscriptionConfig describes the external speech-to-text service.
// An empty host disables it.
type TranscriptionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TLS            *bool  `yaml:"tls"`
	Path           string `yaml:"path"`
	Token          string `yaml:"token"`
	Model          string `yaml:"model"`
	ResponseFormat string `yaml:"response_format"`
	Language       string `yaml:"language"`
}

// Addr returns host:port
func (t TranscriptionConfig) Addr() string {
	return t.Host + ":" + strconv.Itoa(t.Port)
}

// HostHeader returns the Host header value for the transcription service.
func (t TranscriptionConfig) HostHeader() string {
	return hostHeader(t.Host, t.Port, t.TLS)
}

// hostHeader omits the port only when it is the scheme default.
func hostHeader(host string, port int, tls *bool) string {
	def := 80
	if tls != nil && *tls {
		def = 443
	}
	if port == 0 || port == def {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

// CaptureConfig holds camera and microphone settings.
type CaptureConfig struct {
	WarmupFrames   *int     `yaml:"warmup_frames"`
	RecordDuration Duration `yaml:"record_duration"`
	SampleRate     int      `yaml:"sample_rate"`
	PhotoDir       string   `yaml:"photo_dir"`
	WAVPath        string   `yaml:"wav_path"`
	QuickPrompt    string   `yaml:"quick_prompt"`
	CameraDir      string   `yaml:"camera_dir"` // Host only: JPEGs served as camera frames
	MicSource      string   `yaml:"mic_source"` // Host only: raw 16-bit mono PCM file or FIFO, empty = silence
}

// StorageConfig roots the device file system on the host.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// ConsoleConfig optionally mirrors diagnostics to a serial port.
type ConsoleConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// LogConfig selects the log encoder and level.
type LogConfig struct {
	Format string `yaml:"format"` // console or json
	Level  string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10ms", "5s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "400ms" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

// applyDefaults fills in missing configuration values
func applyDefaults(c *Config) {
	if c.Device.ID == "" {
		c.Device.ID = "livi-01"
	}
	if c.Device.Tick.Duration == 0 {
		c.Device.Tick.Duration = 10 * time.Millisecond
	}
	if c.Device.Debounce.Duration == 0 {
		c.Device.Debounce.Duration = 50 * time.Millisecond
	}
	if c.Device.DoubleClickWindow.Duration == 0 {
		c.Device.DoubleClickWindow.Duration = 400 * time.Millisecond
	}
	if c.Device.ActiveLow == nil {
		c.Device.ActiveLow = boolPtr(true)
	}

	if c.Backend.TLS == nil {
		c.Backend.TLS = boolPtr(true)
	}
	if c.Backend.InsecureSkipVerify == nil {
		// Backends run with self-signed certificates
		c.Backend.InsecureSkipVerify = boolPtr(true)
	}
	if c.Backend.Port == 0 {
		if *c.Backend.TLS {
			c.Backend.Port = 443
		} else {
			c.Backend.Port = 80
		}
	}
	if c.Backend.Detail == "" {
		c.Backend.Detail = "low"
	}
	if c.Backend.PollInterval.Duration == 0 {
		c.Backend.PollInterval.Duration = time.Second
	}
	if c.Backend.ReadTimeout.Duration == 0 {
		c.Backend.ReadTimeout.Duration = 20 * time.Second
	}
	if c.Backend.ReplyTimeout.Duration == 0 {
		c.Backend.ReplyTimeout.Duration = 2 * time.Minute
	}
	if c.Backend.DialTimeout.Duration == 0 {
		c.Backend.DialTimeout.Duration = 10 * time.Second
	}
	if c.Backend.MaxAudioBytes == 0 {
		c.Backend.MaxAudioBytes = 10 << 20
	}
	if c.Backend.MaxImageBytes == 0 {
		c.Backend.MaxImageBytes = 8 << 20
	}

	if c.Transcription.TLS == nil {
		c.Transcription.TLS = boolPtr(true)
	}
	if c.Transcription.Port == 0 {
		if *c.Transcription.TLS {
			c.Transcription.Port = 443
		} else {
			c.Transcription.Port = 80
		}
	}
	if c.Transcription.Path == "" {
		c.Transcription.Path = "/v1/audio/transcriptions"
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "whisper-1"
	}
	if c.Transcription.ResponseFormat == "" {
		c.Transcription.ResponseFormat = "json"
	}

	if c.Capture.WarmupFrames == nil {
		c.Capture.WarmupFrames = intPtr(2)
	}
	if c.Capture.RecordDuration.Duration == 0 {
		c.Capture.RecordDuration.Duration = 5 * time.Second
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Capture.PhotoDir == "" {
		c.Capture.PhotoDir = "/photos"
	}
	if c.Capture.WAVPath == "" {
		c.Capture.WAVPath = "/rec.wav"
	}
	if c.Capture.QuickPrompt == "" {
		c.Capture.QuickPrompt = "Describe what is in front of me."
	}

	if c.Storage.Root == "" {
		c.Storage.Root = "./sd"
	}
	if c.Console.Baud == 0 {
		c.Console.Baud = 115200
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	applyDefaults(&c)
	return &c
}

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Backend.Host == "" {
		add("backend.host is required")
	}
	if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
		add("backend.port %d out of range", c.Backend.Port)
	}
	if c.Device.Tick.Duration <= 0 {
		add("device.tick must be positive")
	}
	if c.Device.Tick.Duration >= c.Device.Debounce.Duration {
		add("device.tick %s must be shorter than device.debounce %s", c.Device.Tick.Duration, c.Device.Debounce.Duration)
	}
	if c.Device.DoubleClickWindow.Duration <= c.Device.Debounce.Duration {
		add("device.double_click_window must exceed device.debounce")
	}
	if c.Capture.WarmupFrames != nil && *c.Capture.WarmupFrames < 0 {
		add("capture.warmup_frames must not be negative")
	}
	if c.Capture.RecordDuration.Duration <= 0 {
		add("capture.record_duration must be positive")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		add("log.format %q must be console or json", c.Log.Format)
	}
	return errs
}

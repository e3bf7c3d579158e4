package main

import (
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"livi/backend"
	"livi/config"
	"livi/core"
	"livi/device"
	"livi/host/hal"
	"livi/host/netstream"
	"livi/host/serial"
	livilog "livi/log"
	"livi/protocol"
)

// session holds everything a command needs, built from flags and config.
type session struct {
	cfg      *config.Config
	log      *livilog.Logger
	console  *serial.Console
	storage  *hal.DirStorage
	client   *backend.Client
	reporter *consoleReporter
}

func newSession(c *cli.Context, lineEnding string) (*session, error) {
	if err := config.LoadEnvFile(c.String("env-file"), !c.IsSet("env-file")); err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if f := c.String("log-format"); f != "" {
		cfg.Log.Format = f
	}
	if l := c.String("log-level"); l != "" {
		cfg.Log.Level = l
	}
	if d := c.String("console"); d != "" {
		cfg.Console.Device = d
	}

	s := &session{cfg: cfg, reporter: newConsoleReporter(os.Stdout, lineEnding)}

	var mirrors []io.Writer
	if cfg.Console.Device != "" {
		console, err := serial.OpenConsole(&serial.Config{Device: cfg.Console.Device, Baud: cfg.Console.Baud})
		if err != nil {
			return nil, cli.Exit(err.Error(), 2)
		}
		s.console = console
		mirrors = append(mirrors, console)
	}

	s.log, err = livilog.New(livilog.Options{
		Format:     cfg.Log.Format,
		Level:      cfg.Log.Level,
		DeviceID:   cfg.Device.ID,
		Firmware:   protocol.Version,
		Mirrors:    mirrors,
		LineEnding: lineEnding,
	})
	if err != nil {
		s.Close()
		return nil, cli.Exit(err.Error(), 2)
	}

	s.storage = &hal.DirStorage{Root: cfg.Storage.Root}
	s.client = backend.New(
		backendDialer(cfg),
		cfg.Backend.HostHeader(),
		s.storage,
		backend.Config{
			DeviceID:      cfg.Device.ID,
			Token:         cfg.Backend.Token,
			PollInterval:  cfg.Backend.PollInterval.Duration,
			ReplyTimeout:  cfg.Backend.ReplyTimeout.Duration,
			Transport:     transportOptions(cfg),
			MaxAudioBytes: cfg.Backend.MaxAudioBytes,
			MaxImageBytes: cfg.Backend.MaxImageBytes,
		},
		s.log.Logger,
	)
	return s, nil
}

func backendDialer(cfg *config.Config) *netstream.Dialer {
	return netstream.NewDialer(netstream.Config{
		Addr:               cfg.Backend.Addr(),
		TLS:                *cfg.Backend.TLS,
		InsecureSkipVerify: *cfg.Backend.InsecureSkipVerify,
		DialTimeout:        cfg.Backend.DialTimeout.Duration,
		PollInterval:       protocol.DefaultPollInterval,
		WriteTimeout:       cfg.Backend.ReadTimeout.Duration,
	})
}

// transportOptions yields between reads through the stream's own read
// deadline, so the protocol layer does not sleep on top of it.
func transportOptions(cfg *config.Config) protocol.Options {
	return protocol.Options{
		PollInterval: protocol.DefaultPollInterval,
		IdleTimeout:  cfg.Backend.ReadTimeout.Duration,
		Sleep:        func(time.Duration) {},
	}
}

func (s *session) transcriber() *backend.Transcriber {
	t := s.cfg.Transcription
	if t.Host == "" {
		return nil
	}
	dialer := netstream.NewDialer(netstream.Config{
		Addr:         t.Addr(),
		TLS:          *t.TLS,
		DialTimeout:  s.cfg.Backend.DialTimeout.Duration,
		PollInterval: protocol.DefaultPollInterval,
		WriteTimeout: s.cfg.Backend.ReadTimeout.Duration,
	})
	opts := transportOptions(s.cfg)
	opts.IdleTimeout = s.cfg.Backend.ReplyTimeout.Duration
	return backend.NewTranscriber(dialer, t.HostHeader(), s.storage, backend.TranscriberConfig{
		Path:           t.Path,
		Token:          t.Token,
		Model:          t.Model,
		ResponseFormat: t.ResponseFormat,
		Language:       t.Language,
		MaxBytes:       s.cfg.Backend.MaxAudioBytes,
		Transport:      opts,
	}, s.log.Logger)
}

func deviceConfig(cfg *config.Config) device.Config {
	return device.Config{
		Tick: cfg.Device.Tick.Duration,
		Button: core.ButtonConfig{
			Debounce:          cfg.Device.Debounce.Duration,
			DoubleClickWindow: cfg.Device.DoubleClickWindow.Duration,
			ActiveLow:         *cfg.Device.ActiveLow,
		},
		ButtonPin:      core.GPIOPin(cfg.Device.ButtonPin),
		WarmupFrames:   *cfg.Capture.WarmupFrames,
		RecordDuration: cfg.Capture.RecordDuration.Duration,
		WAVPath:        cfg.Capture.WAVPath,
		PhotoDir:       cfg.Capture.PhotoDir,
		QuickPrompt:    cfg.Capture.QuickPrompt,
		Detail:         cfg.Backend.Detail,
	}
}

func micSource(path string) func() (io.ReadCloser, error) {
	if path == "" {
		return hal.Silence
	}
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// newDevice wires the host HAL into a device driven by pins.
func (s *session) newDevice(pins core.GPIODriver) (*device.Device, error) {
	return device.New(deviceConfig(s.cfg), device.Deps{
		Backend:  s.client,
		Storage:  s.storage,
		Camera:   &hal.DirCamera{Dir: s.cfg.Capture.CameraDir},
		Recorder: &hal.PCMRecorder{SampleRate: s.cfg.Capture.SampleRate, Open: micSource(s.cfg.Capture.MicSource)},
		Radio:    &hal.HostRadio{Host: s.cfg.Backend.Host},
		Pins:     pins,
		Clock:    core.NewSystemClock(),
		Reporter: s.reporter,
		Logger:   s.log.Logger,
	})
}

// Close flushes the logger and releases the console.
func (s *session) Close() error {
	var err error
	if s.log != nil {
		// Sync on a terminal stderr reports EINVAL; nothing is lost
		_ = s.log.Sync()
	}
	if s.console != nil {
		err = multierr.Append(err, s.console.Close())
	}
	return err
}

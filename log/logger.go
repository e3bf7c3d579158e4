// Package log builds the device's structured diagnostic stream.
//
// Every entry carries the device identity (device_id, firmware). The console
// encoder is the operator-facing stream; the JSON encoder is for collection.
// Packages take a *zap.Logger; use Logger.Sugar() on CLI surfaces.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder, level and destinations.
type Options struct {
	Format   string // "console" (default) or "json"
	Level    string // debug, info, warn, error
	DeviceID string
	Firmware string
	Mirrors  []io.Writer // Extra destinations, e.g. a serial console

	// LineEnding overrides "\n", e.g. "\r\n" while the terminal is raw
	LineEnding string
}

// Logger is a zap.Logger bound to a device identity.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New creates a logger writing to os.Stderr plus any mirrors.
func New(opts Options) (*Logger, error) {
	return newLoggerWithWriter(opts, os.Stderr)
}

func encoderConfig(opts Options) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LineEnding:     opts.LineEnding,
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "component",
		MessageKey:     "message",
		StacktraceKey:  "",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func newLoggerWithWriter(opts Options, w io.Writer) (*Logger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}

	var enc zapcore.Encoder
	switch opts.Format {
	case "", "console":
		cfg := encoderConfig(opts)
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encoderConfig(opts))
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(w)}
	for _, m := range opts.Mirrors {
		sinks = append(sinks, zapcore.AddSync(m))
	}
	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), level)

	fields := []zap.Field{zap.String("device_id", opts.DeviceID)}
	if opts.Firmware != "" {
		fields = append(fields, zap.String("firmware", opts.Firmware))
	}
	return &Logger{Logger: zap.New(core).With(fields...), level: level}, nil
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(lvl zapcore.Level) {
	l.level.SetLevel(lvl)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// Package device runs the livi interaction loop: it samples the button on a
// scheduler tick and turns each gesture into one synchronous backend flow.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"livi/backend"
	"livi/core"
)

// ErrFatalInit wraps start-up failures the device cannot run without.
var ErrFatalInit = errors.New("fatal init failure")

// Backend is the subset of the protocol client the flows use.
type Backend interface {
	Health(ctx context.Context) (bool, error)
	PostTranscript(ctx context.Context, transcript string) (backend.TranscriptReply, error)
	PostAudio(ctx context.Context, path string) (backend.AudioReply, error)
	PollNextCommand(ctx context.Context) (backend.Command, error)
	PostImage(ctx context.Context, path, requestID, detail string) (string, error)
}

// Reporter surfaces flow outcomes to the operator.
type Reporter interface {
	Reply(flow, text string)
	Failed(flow string, err error)
}

type nopReporter struct{}

func (nopReporter) Reply(string, string)  {}
func (nopReporter) Failed(string, error) {}

const (
	FlowQuickDescribe  = "quick-describe"
	FlowRecordAndRelay = "record-relay"
	FlowImageRound     = "image-round"
)

// Config holds the flow parameters
type Config struct {
	Tick           time.Duration // Button sample period
	Button         core.ButtonConfig
	ButtonPin      core.GPIOPin
	WarmupFrames   int // Frames dropped while auto-exposure settles
	RecordDuration time.Duration
	WAVPath        string
	PhotoDir       string
	QuickPrompt    string
	Detail         string
}

// DefaultConfig returns the stock device settings.
func DefaultConfig() Config {
	return Config{
		Tick:           10 * time.Millisecond,
		Button:         core.DefaultButtonConfig(),
		WarmupFrames:   2,
		RecordDuration: 5 * time.Second,
		WAVPath:        "/rec.wav",
		PhotoDir:       "/photos",
		QuickPrompt:    "Describe what is in front of me.",
		Detail:         "low",
	}
}

// Deps are the collaborators the device drives.
type Deps struct {
	Backend  Backend
	Storage  core.Storage
	Camera   core.Camera
	Recorder core.Recorder
	Radio    core.Radio
	Pins     core.GPIODriver
	Clock    core.Clock
	Reporter Reporter
	Logger   *zap.Logger
}

// Device owns the button classifier, the scheduler and the photo counter.
// It is driven from a single goroutine.
type Device struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	sched  core.Scheduler
	sample core.Timer
	button *core.Button

	now      time.Duration
	pending  core.ClickEvent
	photoSeq int
}

// New configures the button pin and schedules the first sample.
func New(cfg Config, deps Deps) (*Device, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Reporter == nil {
		deps.Reporter = nopReporter{}
	}
	if deps.Clock == nil {
		deps.Clock = core.NewSystemClock()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}

	var err error
	if cfg.Button.ActiveLow {
		err = deps.Pins.ConfigureInputPullUp(cfg.ButtonPin)
	} else {
		err = deps.Pins.ConfigureInputPullDown(cfg.ButtonPin)
	}
	if err != nil {
		return nil, fmt.Errorf("configure button pin %d: %w", cfg.ButtonPin, err)
	}

	d := &Device{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.Named("device"),
	}
	d.now = deps.Clock.Now()
	d.button = core.NewButton(cfg.Button, deps.Pins.ReadPin(cfg.ButtonPin), d.now)
	d.sample.Handler = d.sampleButton
	d.sample.WakeTime = d.now
	d.sched.Schedule(&d.sample)
	return d, nil
}

// Start brings up the hardware. Storage and audio failures are fatal; radio
// and camera failures are logged and the device carries on.
func (d *Device) Start(ctx context.Context) error {
	var fatal error
	if err := d.deps.Storage.Init(); err != nil {
		fatal = multierr.Append(fatal, fmt.Errorf("storage: %w", err))
	}
	if err := d.deps.Recorder.Init(); err != nil {
		fatal = multierr.Append(fatal, fmt.Errorf("audio: %w", err))
	}
	if fatal != nil {
		return fmt.Errorf("%w: %w", ErrFatalInit, fatal)
	}

	if err := d.deps.Radio.Connect(ctx); err != nil {
		d.log.Warn("radio association failed", zap.Error(err))
	}
	if err := d.deps.Camera.Init(); err != nil {
		d.log.Warn("camera init failed", zap.Error(err))
	}

	if d.deps.Radio.Connected() {
		ok, err := d.deps.Backend.Health(ctx)
		if err != nil {
			d.log.Warn("backend health check failed", zap.Error(err))
		} else {
			d.log.Info("backend reachable", zap.Bool("ok", ok))
		}
	}
	return nil
}

// sampleButton is the periodic button timer
func (d *Device) sampleButton(t *core.Timer) uint8 {
	level := d.deps.Pins.ReadPin(d.cfg.ButtonPin)
	if ev := d.button.Poll(level, d.now); ev != core.ClickNone {
		d.pending = ev
	}
	t.WakeTime = d.now + d.cfg.Tick
	return core.SF_RESCHEDULE
}

// Tick runs the due timers and, when a gesture was classified, the flow it
// selects. It returns the gesture that was handled.
func (d *Device) Tick(ctx context.Context) core.ClickEvent {
	d.now = d.deps.Clock.Now()
	d.sched.Dispatch(d.now)

	ev := d.pending
	d.pending = core.ClickNone
	switch ev {
	case core.ClickSingle:
		d.runFlow(ctx, FlowQuickDescribe, d.QuickDescribe)
	case core.ClickDouble:
		d.runFlow(ctx, FlowRecordAndRelay, d.RecordAndRelay)
	default:
		return ev
	}

	// Input seen while the flow ran is dropped
	d.now = d.deps.Clock.Now()
	d.button.Reset(d.deps.Pins.ReadPin(d.cfg.ButtonPin), d.now)
	d.sample.WakeTime = d.now + d.cfg.Tick
	d.sched.Schedule(&d.sample)
	return ev
}

// Run ticks until ctx is cancelled, sleeping until the next timer is due.
func (d *Device) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.Tick(ctx)

		wait := d.cfg.Tick
		if wake, ok := d.sched.NextWake(); ok {
			wait = wake - d.deps.Clock.Now()
		}
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (d *Device) runFlow(ctx context.Context, name string, flow func(context.Context) error) {
	start := d.deps.Clock.Now()
	d.log.Info("flow started", zap.String("flow", name))
	if err := flow(ctx); err != nil {
		d.log.Error("flow failed", zap.String("flow", name), zap.Error(err))
		d.deps.Reporter.Failed(name, err)
		return
	}
	d.log.Info("flow finished", zap.String("flow", name), zap.Duration("elapsed", d.deps.Clock.Now()-start))
}

package device

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livi/backend"
	"livi/core"
	"livi/core/coretest"
	"livi/protocol"
	"livi/protocol/prototest"
)

type reply struct {
	flow string
	text string
}

type recordingReporter struct {
	replies  []reply
	failures []string
	errs     []error
}

func (r *recordingReporter) Reply(flow, text string) {
	r.replies = append(r.replies, reply{flow, text})
}

func (r *recordingReporter) Failed(flow string, err error) {
	r.failures = append(r.failures, flow)
	r.errs = append(r.errs, err)
}

// fakeBackend records calls and returns canned replies
type fakeBackend struct {
	transcript backend.TranscriptReply
	audio      backend.AudioReply
	command    backend.Command
	image      string
	err        error

	transcripts []string
	audios      []string
	polls       int
	images      []imageCall
	healthCalls int
}

type imageCall struct {
	path, requestID, detail string
}

func (f *fakeBackend) Health(ctx context.Context) (bool, error) {
	f.healthCalls++
	return true, nil
}

func (f *fakeBackend) PostTranscript(ctx context.Context, transcript string) (backend.TranscriptReply, error) {
	f.transcripts = append(f.transcripts, transcript)
	return f.transcript, f.err
}

func (f *fakeBackend) PostAudio(ctx context.Context, path string) (backend.AudioReply, error) {
	f.audios = append(f.audios, path)
	return f.audio, f.err
}

func (f *fakeBackend) PollNextCommand(ctx context.Context) (backend.Command, error) {
	f.polls++
	return f.command, f.err
}

func (f *fakeBackend) PostImage(ctx context.Context, path, requestID, detail string) (string, error) {
	f.images = append(f.images, imageCall{path, requestID, detail})
	return f.image, f.err
}

type rig struct {
	dev      *Device
	clock    *core.ManualClock
	pins     *coretest.Pins
	storage  *coretest.MemStorage
	camera   *coretest.Camera
	recorder *coretest.Recorder
	radio    *coretest.Radio
	reporter *recordingReporter
}

func newRig(t *testing.T, b Backend) *rig {
	t.Helper()
	r := &rig{
		clock:    &core.ManualClock{},
		pins:     coretest.NewPins(),
		storage:  coretest.NewMemStorage(),
		camera:   &coretest.Camera{Frames: [][]byte{[]byte("\xff\xd8frame\xff\xd9")}},
		recorder: &coretest.Recorder{WAV: []byte("RIFF....WAVEfmt ")},
		radio:    &coretest.Radio{},
		reporter: &recordingReporter{},
	}
	dev, err := New(DefaultConfig(), Deps{
		Backend:  b,
		Storage:  r.storage,
		Camera:   r.camera,
		Recorder: r.recorder,
		Radio:    r.radio,
		Pins:     r.pins,
		Clock:    r.clock,
		Reporter: r.reporter,
	})
	require.NoError(t, err)
	r.dev = dev
	return r
}

// drive ticks every 10ms from the current clock up to until, holding the
// button down during each [start, end) interval. It returns the handled
// gestures.
func (r *rig) drive(until time.Duration, presses ...[2]time.Duration) []core.ClickEvent {
	var events []core.ClickEvent
	for now := r.clock.Now(); now <= until; now += 10 * time.Millisecond {
		r.clock.Set(now)
		down := false
		for _, p := range presses {
			if now >= p[0] && now < p[1] {
				down = true
			}
		}
		r.pins.Set(0, !down)
		if ev := r.dev.Tick(context.Background()); ev != core.ClickNone {
			events = append(events, ev)
		}
	}
	return events
}

func TestNewConfiguresPullUp(t *testing.T) {
	r := newRig(t, &fakeBackend{})
	assert.Equal(t, "up", r.pins.Pulls[0])
}

func TestSingleClickRunsQuickDescribe(t *testing.T) {
	b := &fakeBackend{transcript: backend.TranscriptReply{AssistantResponse: "Hola"}}
	r := newRig(t, b)

	events := r.drive(time.Second, [2]time.Duration{100 * time.Millisecond, 200 * time.Millisecond})

	assert.Equal(t, []core.ClickEvent{core.ClickSingle}, events)
	assert.Equal(t, []string{DefaultConfig().QuickPrompt}, b.transcripts)
	assert.Equal(t, []reply{{FlowQuickDescribe, "Hola"}}, r.reporter.replies)
	assert.Zero(t, r.camera.Acquired)
}

func TestDoubleClickRunsRecordAndRelay(t *testing.T) {
	b := &fakeBackend{audio: backend.AudioReply{Transcript: "hello"}}
	r := newRig(t, b)

	events := r.drive(time.Second,
		[2]time.Duration{100 * time.Millisecond, 200 * time.Millisecond},
		[2]time.Duration{300 * time.Millisecond, 400 * time.Millisecond})

	assert.Equal(t, []core.ClickEvent{core.ClickDouble}, events)
	assert.Equal(t, []time.Duration{5 * time.Second}, r.recorder.Calls)
	assert.Equal(t, []string{"/rec.wav"}, b.audios)
	wav, ok := r.storage.Get("/rec.wav")
	require.True(t, ok)
	assert.Equal(t, r.recorder.WAV, wav)
	assert.Empty(t, b.images)
	assert.Zero(t, b.polls)
}

func TestButtonIgnoredDuringFlow(t *testing.T) {
	b := &fakeBackend{transcript: backend.TranscriptReply{AssistantResponse: "ok"}}
	r := newRig(t, b)

	// The press is still held when the flow ends: resync must not turn it
	// into a new click.
	events := r.drive(2*time.Second, [2]time.Duration{100 * time.Millisecond, 150 * time.Millisecond + 500*time.Millisecond})
	assert.Equal(t, []core.ClickEvent{core.ClickSingle}, events)
	assert.Len(t, b.transcripts, 1)
}

func TestQuickDescribeWithImage(t *testing.T) {
	b := &fakeBackend{
		transcript: backend.TranscriptReply{NeedImage: true, RequestID: "abc", ImageRequest: "the table"},
		image:      "A table.",
	}
	r := newRig(t, b)

	require.NoError(t, r.dev.QuickDescribe(context.Background()))
	require.NoError(t, r.dev.QuickDescribe(context.Background()))

	assert.Equal(t, 6, r.camera.Acquired, "two warm-up frames plus one capture per round")
	assert.Equal(t, r.camera.Acquired, r.camera.Released)
	assert.Equal(t, []imageCall{
		{"/photos/photo_1.jpg", "abc", "low"},
		{"/photos/photo_2.jpg", "abc", "low"},
	}, b.images)
	assert.Equal(t, []string{"/photos/photo_1.jpg", "/photos/photo_2.jpg"}, r.storage.Paths())
	assert.Zero(t, b.polls)
}

func TestImageRoundPollsAndAdoptsRequestID(t *testing.T) {
	b := &fakeBackend{command: backend.Command{Body: `{"request_id":"fresh"}`, RequestID: "fresh"}, image: "ok"}
	r := newRig(t, b)

	require.NoError(t, r.dev.ImageRound(context.Background(), "stale", "", true))
	assert.Equal(t, 1, b.polls)
	require.Len(t, b.images, 1)
	assert.Equal(t, "fresh", b.images[0].requestID)

	b.command = backend.Command{Body: "{}"}
	require.NoError(t, r.dev.ImageRound(context.Background(), "kept", "", true))
	assert.Equal(t, "kept", b.images[1].requestID)
}

func TestFlowFailuresAbort(t *testing.T) {
	t.Run("record", func(t *testing.T) {
		b := &fakeBackend{}
		r := newRig(t, b)
		r.recorder.Err = core.ErrRecordFailed

		err := r.dev.RecordAndRelay(context.Background())
		assert.ErrorIs(t, err, core.ErrRecordFailed)
		assert.Empty(t, b.audios)
	})

	t.Run("capture", func(t *testing.T) {
		b := &fakeBackend{audio: backend.AudioReply{NeedImage: true, RequestID: "r"}}
		r := newRig(t, b)
		r.camera.FailAfter = 1

		err := r.dev.RecordAndRelay(context.Background())
		assert.ErrorIs(t, err, core.ErrCaptureFailed)
		assert.Empty(t, b.images)
	})

	t.Run("upload", func(t *testing.T) {
		b := &fakeBackend{err: protocol.ErrConnect}
		r := newRig(t, b)

		events := r.drive(time.Second, [2]time.Duration{100 * time.Millisecond, 200 * time.Millisecond})
		assert.Equal(t, []core.ClickEvent{core.ClickSingle}, events)
		assert.Equal(t, []string{FlowQuickDescribe}, r.reporter.failures)
		assert.ErrorIs(t, r.reporter.errs[0], protocol.ErrConnect)
		assert.Empty(t, r.reporter.replies)
	})
}

func TestStart(t *testing.T) {
	b := &fakeBackend{}
	r := newRig(t, b)
	r.camera.InitErr = errors.New("no sensor")

	require.NoError(t, r.dev.Start(context.Background()))
	assert.Equal(t, 1, r.radio.Tries)
	assert.Equal(t, 1, b.healthCalls)

	r = newRig(t, b)
	r.radio.Err = errors.New("no ap")
	require.NoError(t, r.dev.Start(context.Background()))
	assert.Equal(t, 1, b.healthCalls, "no health check without a link")
}

func TestStartFatal(t *testing.T) {
	r := newRig(t, &fakeBackend{})
	r.storage.InitErr = errors.New("no card")
	r.recorder.InitErr = errors.New("no i2s")

	err := r.dev.Start(context.Background())
	require.ErrorIs(t, err, ErrFatalInit)
	assert.Contains(t, err.Error(), "no card")
	assert.Contains(t, err.Error(), "no i2s")
	assert.Zero(t, r.radio.Tries)
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig(t, &fakeBackend{})
	r.dev.deps.Clock = core.NewSystemClock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.dev.Run(ctx), context.DeadlineExceeded)
}

// End-to-end: real protocol client over scripted streams.

func newE2E(t *testing.T, responses ...string) (*rig, *prototest.Dialer) {
	t.Helper()
	d := &prototest.Dialer{Responses: responses, FragmentSize: 9}
	r := newRig(t, nil)
	r.dev.deps.Backend = backend.New(d, "backend.local", r.storage, backend.Config{
		DeviceID:  "dev-1",
		Transport: protocol.Options{PollInterval: time.Millisecond, IdleTimeout: 50 * time.Millisecond, Sleep: prototest.NoSleep},
	}, nil)
	return r, d
}

func TestEndToEndNoImage(t *testing.T) {
	r, d := newE2E(t, prototest.ChunkedResponse(200, `{"need_image":false,`, `"assistant_response":"Hola"}`))

	require.NoError(t, r.dev.QuickDescribe(context.Background()))

	assert.Equal(t, []reply{{FlowQuickDescribe, "Hola"}}, r.reporter.replies)
	assert.Zero(t, r.camera.Acquired)
	assert.Equal(t, 1, d.Dials())
}

func TestEndToEndImage(t *testing.T) {
	r, d := newE2E(t,
		prototest.LengthResponse(200, `{"need_image":true,"request_id":"abc","image_request":"the table"}`),
		prototest.LengthResponse(200, `{"response":"A wooden table with a cup."}`),
	)

	require.NoError(t, r.dev.QuickDescribe(context.Background()))

	assert.Equal(t, 3, r.camera.Acquired, "two warm-up frames and one capture")
	assert.Equal(t, []string{"/photos/photo_1.jpg"}, r.storage.Paths())
	require.Equal(t, 2, d.Dials())

	upload := d.Requests()[1]
	assert.True(t, strings.HasPrefix(upload, "POST /livi/image?detail=low&device_id=dev-1&request_id=abc HTTP/1.1\r\n"), upload)
	assert.True(t, strings.HasSuffix(upload, "\r\n\r\n\xff\xd8frame\xff\xd9"))
	assert.Equal(t, []reply{{FlowQuickDescribe, "A wooden table with a cup."}}, r.reporter.replies)
}

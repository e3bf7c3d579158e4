package hal

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livi/core"
)

func TestDirStorageRoundTrip(t *testing.T) {
	s := &DirStorage{Root: filepath.Join(t.TempDir(), "sd")}
	require.NoError(t, s.Init())

	w, err := s.Create("/photos/photo_1.jpg")
	require.NoError(t, err)
	_, err = w.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := s.Open("/photos/photo_1.jpg")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(4), f.Size())
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	_, err = os.Stat(filepath.Join(s.Root, "photos", "photo_1.jpg"))
	assert.NoError(t, err)
}

func TestDirStorageStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	s := &DirStorage{Root: filepath.Join(root, "sd")}
	require.NoError(t, s.Init())

	w, err := s.Create("../../escape.wav")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(root, "sd", "escape.wav"))
	assert.NoError(t, err)
}

func TestDirCamera(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("B"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.JPEG"), []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	cam := &DirCamera{Dir: dir}
	require.NoError(t, cam.Init())

	var got []string
	for i := 0; i < 3; i++ {
		fb, err := cam.Acquire()
		require.NoError(t, err)
		got = append(got, string(fb.Bytes()))

		_, err = cam.Acquire()
		assert.ErrorIs(t, err, core.ErrFrameOutstanding)
		fb.Release()
		fb.Release()
	}
	assert.Equal(t, []string{"A", "B", "A"}, got)
}

func TestDirCameraEmpty(t *testing.T) {
	cam := &DirCamera{Dir: t.TempDir()}
	assert.Error(t, cam.Init())
	_, err := cam.Acquire()
	assert.ErrorIs(t, err, core.ErrCaptureFailed)
}

func TestEncodeWAV(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0}
	wav := EncodeWAV(pcm, 16000)

	require.Len(t, wav, WAVHeaderSize+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVEfmt ", string(wav[8:16]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestPCMRecorder(t *testing.T) {
	r := &PCMRecorder{SampleRate: 8000, Open: Silence}
	require.NoError(t, r.Init())

	wav, err := r.Record(500 * time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, wav, WAVHeaderSize+8000)

	short := &PCMRecorder{SampleRate: 8000, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte{1, 2, 3})), nil
	}}
	wav, err = short.Record(time.Second)
	require.NoError(t, err)
	assert.Len(t, wav, WAVHeaderSize+2, "odd trailing byte dropped")

	empty := &PCMRecorder{SampleRate: 8000, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("")), nil
	}}
	_, err = empty.Record(time.Second)
	assert.ErrorIs(t, err, core.ErrRecordFailed)

	broken := &PCMRecorder{SampleRate: 8000, Open: func() (io.ReadCloser, error) {
		return nil, errors.New("no device")
	}}
	_, err = broken.Record(time.Second)
	assert.ErrorIs(t, err, core.ErrRecordFailed)

	assert.Error(t, (&PCMRecorder{}).Init())
}

func TestKeyButtonQueuesPresses(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	k := NewKeyButton()
	k.Now = func() time.Time { return now }
	require.NoError(t, k.ConfigureInputPullUp(0))

	k.Press()
	now = base.Add(10 * time.Millisecond)
	k.Press()

	levelAt := func(d time.Duration) bool {
		now = base.Add(d)
		return k.ReadPin(0)
	}
	assert.False(t, levelAt(50*time.Millisecond), "first press held low")
	assert.True(t, levelAt(150*time.Millisecond), "gap between presses")
	assert.False(t, levelAt(250*time.Millisecond), "second press")
	assert.True(t, levelAt(350*time.Millisecond), "released")
}

func TestKeyButtonDrivesDoubleClick(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	k := NewKeyButton()
	k.Now = func() time.Time { return now }
	require.NoError(t, k.ConfigureInputPullUp(0))

	btn := core.NewButton(core.DefaultButtonConfig(), k.ReadPin(0), 0)
	k.Press()
	k.Press()

	var events []core.ClickEvent
	for d := time.Duration(0); d < time.Second; d += 10 * time.Millisecond {
		now = base.Add(d)
		if ev := btn.Poll(k.ReadPin(0), d); ev != core.ClickNone {
			events = append(events, ev)
		}
	}
	assert.Equal(t, []core.ClickEvent{core.ClickDouble}, events)
}

func TestKeyButtonListen(t *testing.T) {
	k := NewKeyButton()
	quit := false

	err := k.Listen(context.Background(), strings.NewReader("xb q"), -1, func() { quit = true })
	require.NoError(t, err)
	assert.True(t, quit)
	k.mu.Lock()
	assert.Len(t, k.presses, 2)
	k.mu.Unlock()
}

func TestHostRadio(t *testing.T) {
	offline := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("offline")
		},
	}

	r := &HostRadio{Host: "127.0.0.1", Resolver: offline}
	require.NoError(t, r.Connect(context.Background()))
	assert.True(t, r.Connected())

	r = &HostRadio{Host: "no-such-host.invalid", Resolver: offline}
	assert.Error(t, r.Connect(context.Background()))
	assert.False(t, r.Connected())
}

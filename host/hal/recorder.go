package hal

import (
	"fmt"
	"io"
	"time"

	"livi/core"
)

// PCMRecorder records from a raw 16-bit mono PCM source, such as a FIFO fed
// by arecord, and returns WAV files.
type PCMRecorder struct {
	SampleRate int
	Open       func() (io.ReadCloser, error) // Opens the PCM source for one recording
}

// Init checks that the source can be opened.
func (r *PCMRecorder) Init() error {
	if r.SampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", r.SampleRate)
	}
	if r.Open == nil {
		return fmt.Errorf("audio: no PCM source")
	}
	return nil
}

// Record reads d worth of samples. A source that ends early yields a shorter
// clip; one that yields nothing is a failed recording.
func (r *PCMRecorder) Record(d time.Duration) ([]byte, error) {
	src, err := r.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRecordFailed, err)
	}
	defer src.Close()

	want := int(d.Seconds()*float64(r.SampleRate)) * 2
	pcm := make([]byte, want)
	n, err := io.ReadFull(src, pcm)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", core.ErrRecordFailed, err)
	}
	n &^= 1 // whole samples only
	if n == 0 {
		return nil, core.ErrRecordFailed
	}
	return EncodeWAV(pcm[:n], r.SampleRate), nil
}

// Silence is a PCM source of zero samples, for running without a microphone.
func Silence() (io.ReadCloser, error) {
	return io.NopCloser(zeroReader{}), nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

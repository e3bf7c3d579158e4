package core

import (
	"errors"
	"time"
)

// ErrRecordFailed reports a microphone capture that produced no usable audio.
var ErrRecordFailed = errors.New("record failed")

// Recorder is the abstract PDM microphone capture driver.
type Recorder interface {
	// Init brings up the audio bus. The device cannot run without it.
	Init() error

	// Record captures d worth of audio and returns a complete WAV file.
	Record(d time.Duration) ([]byte, error)
}

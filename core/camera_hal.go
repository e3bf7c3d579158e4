package core

import "errors"

var (
	// ErrCaptureFailed reports that the camera could not deliver a usable frame.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrFrameOutstanding is returned by Acquire while a previous frame is unreleased.
	ErrFrameOutstanding = errors.New("frame buffer still held")
)

// Frame is one JPEG-encoded frame buffer owned by the camera driver.
// Bytes are only valid until Release is called.
type Frame interface {
	Bytes() []byte
	Release()
}

// Camera is the abstract camera sensor + JPEG encoder.
// At most one Frame may be outstanding at a time.
type Camera interface {
	// Init powers up the sensor. Failure is not fatal to the device.
	Init() error

	// Acquire grabs the next frame buffer.
	Acquire() (Frame, error)
}

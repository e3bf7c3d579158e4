package core

import "io"

// File is an open storage file positioned at its start.
type File interface {
	io.ReadCloser

	// Size returns the file length in bytes.
	Size() int64
}

// Storage is the abstract block storage (SD card) file layer.
// Paths are slash separated and rooted at "/".
// A file is held open only for the duration of one read or write.
type Storage interface {
	// Init mounts the storage bus. The device cannot run without it.
	Init() error

	// Create opens path for writing, truncating any previous content.
	Create(path string) (io.WriteCloser, error)

	// Open opens path for reading.
	Open(path string) (File, error)
}

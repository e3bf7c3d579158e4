// Package hal implements the core hardware interfaces on a Linux host so the
// device loop can run against a real backend from a workstation.
package hal

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"livi/core"
)

// DirStorage maps the device file system onto a host directory.
type DirStorage struct {
	Root string
}

// Init creates the root directory.
func (s *DirStorage) Init() error {
	if s.Root == "" {
		return fmt.Errorf("storage root not set")
	}
	return os.MkdirAll(s.Root, 0o755)
}

func (s *DirStorage) hostPath(p string) string {
	return filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+p)))
}

// Create implements core.Storage; parent directories are created on demand.
func (s *DirStorage) Create(p string) (io.WriteCloser, error) {
	hp := s.hostPath(p)
	if err := os.MkdirAll(filepath.Dir(hp), 0o755); err != nil {
		return nil, err
	}
	return os.Create(hp)
}

// Open implements core.Storage.
func (s *DirStorage) Open(p string) (core.File, error) {
	f, err := os.Open(s.hostPath(p))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &file{File: f, size: info.Size()}, nil
}

type file struct {
	*os.File
	size int64
}

func (f *file) Size() int64 { return f.size }

package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"livi/core"
)

// DirCamera serves the JPEG files of a directory as camera frames, in name
// order, wrapping around at the end.
type DirCamera struct {
	Dir string

	frames [][]byte
	next   int
	held   bool
}

// Init loads every *.jpg / *.jpeg under Dir.
func (c *DirCamera) Init() error {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".jpg" || ext == ".jpeg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	c.frames = c.frames[:0]
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(c.Dir, name))
		if err != nil {
			return fmt.Errorf("camera: %w", err)
		}
		c.frames = append(c.frames, data)
	}
	if len(c.frames) == 0 {
		return fmt.Errorf("camera: no JPEG files in %s", c.Dir)
	}
	return nil
}

// Acquire implements core.Camera.
func (c *DirCamera) Acquire() (core.Frame, error) {
	if c.held {
		return nil, core.ErrFrameOutstanding
	}
	if len(c.frames) == 0 {
		return nil, core.ErrCaptureFailed
	}
	data := c.frames[c.next%len(c.frames)]
	c.next++
	c.held = true
	return &dirFrame{cam: c, data: data}, nil
}

type dirFrame struct {
	cam      *DirCamera
	data     []byte
	released bool
}

func (f *dirFrame) Bytes() []byte { return f.data }

func (f *dirFrame) Release() {
	if !f.released {
		f.released = true
		f.cam.held = false
	}
}

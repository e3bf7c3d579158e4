// Package coretest provides in-memory implementations of the core hardware
// interfaces for tests.
package coretest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"livi/core"
)

// ErrNotFound is returned by MemStorage.Open for unknown paths
var ErrNotFound = errors.New("file not found")

// MemStorage is a map-backed core.Storage
type MemStorage struct {
	InitErr error

	mu    sync.Mutex
	files map[string][]byte
}

// NewMemStorage returns an empty storage
func NewMemStorage() *MemStorage {
	return &MemStorage{files: make(map[string][]byte)}
}

func (m *MemStorage) Init() error { return m.InitErr }

// Put stores data at path directly
func (m *MemStorage) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
}

// Get returns the content of path
func (m *MemStorage) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// Paths lists stored files in lexical order
func (m *MemStorage) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Create implements core.Storage
func (m *MemStorage) Create(path string) (io.WriteCloser, error) {
	return &memWriter{m: m, path: path}, nil
}

// Open implements core.Storage
func (m *MemStorage) Open(path string) (core.File, error) {
	data, ok := m.Get(path)
	if !ok {
		return nil, ErrNotFound
	}
	return &memFile{Reader: bytes.NewReader(data), size: int64(len(data))}, nil
}

type memWriter struct {
	m    *MemStorage
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.m.Put(w.path, w.buf.Bytes())
	return nil
}

type memFile struct {
	*bytes.Reader
	size int64
}

func (f *memFile) Size() int64  { return f.size }
func (f *memFile) Close() error { return nil }

// Camera hands out canned JPEG frames and enforces the single outstanding
// frame rule.
type Camera struct {
	InitErr   error
	Frames    [][]byte // Cycled through on each Acquire
	FailAfter int      // Acquire fails with core.ErrCaptureFailed once this many succeeded, 0 = never
	Acquired  int
	Released  int
	held      bool
	nextFrame int
}

func (c *Camera) Init() error { return c.InitErr }

// Acquire implements core.Camera
func (c *Camera) Acquire() (core.Frame, error) {
	if c.held {
		return nil, core.ErrFrameOutstanding
	}
	if len(c.Frames) == 0 || (c.FailAfter > 0 && c.Acquired >= c.FailAfter) {
		return nil, core.ErrCaptureFailed
	}
	data := c.Frames[c.nextFrame%len(c.Frames)]
	c.nextFrame++
	c.Acquired++
	c.held = true
	return &frame{c: c, data: data}, nil
}

type frame struct {
	c    *Camera
	data []byte
	done bool
}

func (f *frame) Bytes() []byte { return f.data }

func (f *frame) Release() {
	if f.done {
		return
	}
	f.done = true
	f.c.held = false
	f.c.Released++
}

// Recorder returns a fixed WAV payload
type Recorder struct {
	InitErr error
	WAV     []byte
	Err     error
	Calls   []time.Duration
}

func (r *Recorder) Init() error { return r.InitErr }

// Record implements core.Recorder
func (r *Recorder) Record(d time.Duration) ([]byte, error) {
	r.Calls = append(r.Calls, d)
	if r.Err != nil {
		return nil, r.Err
	}
	return r.WAV, nil
}

// Radio is a core.Radio whose association result is fixed
type Radio struct {
	Err   error
	up    bool
	Tries int
}

// Connect implements core.Radio
func (r *Radio) Connect(ctx context.Context) error {
	r.Tries++
	if r.Err != nil {
		return r.Err
	}
	r.up = true
	return nil
}

func (r *Radio) Connected() bool { return r.up }

// Pins is a core.GPIODriver whose levels are set by the test
type Pins struct {
	mu     sync.Mutex
	levels map[core.GPIOPin]bool
	Pulls  map[core.GPIOPin]string
}

// NewPins returns a driver with every pin reading high (pulled up, released)
func NewPins() *Pins {
	return &Pins{levels: make(map[core.GPIOPin]bool), Pulls: make(map[core.GPIOPin]string)}
}

// Set drives pin to level
func (p *Pins) Set(pin core.GPIOPin, level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels[pin] = level
}

func (p *Pins) ConfigureInputPullUp(pin core.GPIOPin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Pulls[pin] = "up"
	if _, ok := p.levels[pin]; !ok {
		p.levels[pin] = true
	}
	return nil
}

func (p *Pins) ConfigureInputPullDown(pin core.GPIOPin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Pulls[pin] = "down"
	if _, ok := p.levels[pin]; !ok {
		p.levels[pin] = false
	}
	return nil
}

func (p *Pins) ReadPin(pin core.GPIOPin) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	level, ok := p.levels[pin]
	if !ok {
		return true
	}
	return level
}

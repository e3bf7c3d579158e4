package hal

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/term"

	"livi/core"
)

// KeyButton is a core.GPIODriver whose single input pin is driven by key
// presses: every press holds the (active-low) pin down for Hold. Presses that
// arrive while one is still being played back are queued behind it, so two
// quick key strokes become a double click.
type KeyButton struct {
	Hold time.Duration
	Now  func() time.Time

	mu       sync.Mutex
	presses  [][2]time.Time
	activeLo bool
}

// NewKeyButton returns a button with a 100ms press.
func NewKeyButton() *KeyButton {
	return &KeyButton{Hold: 100 * time.Millisecond, Now: time.Now, activeLo: true}
}

// Press queues one press.
func (k *KeyButton) Press() {
	k.mu.Lock()
	defer k.mu.Unlock()

	start := k.Now()
	if n := len(k.presses); n > 0 {
		// Leave a released gap as long as a press after the previous one
		if next := k.presses[n-1][1].Add(k.Hold); next.After(start) {
			start = next
		}
	}
	k.presses = append(k.presses, [2]time.Time{start, start.Add(k.Hold)})
}

func (k *KeyButton) ConfigureInputPullUp(pin core.GPIOPin) error {
	k.mu.Lock()
	k.activeLo = true
	k.mu.Unlock()
	return nil
}

func (k *KeyButton) ConfigureInputPullDown(pin core.GPIOPin) error {
	k.mu.Lock()
	k.activeLo = false
	k.mu.Unlock()
	return nil
}

// ReadPin returns the level at the current time.
func (k *KeyButton) ReadPin(pin core.GPIOPin) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.Now()
	for len(k.presses) > 0 && !now.Before(k.presses[0][1]) {
		k.presses = k.presses[1:]
	}
	down := len(k.presses) > 0 && !now.Before(k.presses[0][0])
	return down != k.activeLo
}

// Listen reads keys from in until ctx ends or the quit key is hit. Space or
// 'b' presses the button; 'q' and Ctrl-C call quit. When fd is a terminal it
// is switched to raw mode for the duration.
func (k *KeyButton) Listen(ctx context.Context, in io.Reader, fd int, quit func()) error {
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, state)
	}

	keys := make(chan byte)
	errc := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := in.Read(buf); err != nil {
				errc <- err
				return
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if err == io.EOF {
				return nil
			}
			return err
		case key := <-keys:
			switch key {
			case ' ', 'b':
				k.Press()
			case 'q', 3:
				quit()
				return nil
			}
		}
	}
}

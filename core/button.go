// Button gesture classification
// Debounces a sampled input pin and turns press edges into single/double clicks
package core

import "time"

// ClickEvent is the gesture produced by one classifier poll.
type ClickEvent uint8

const (
	ClickNone ClickEvent = iota
	ClickSingle
	ClickDouble
)

func (e ClickEvent) String() string {
	switch e {
	case ClickSingle:
		return "single"
	case ClickDouble:
		return "double"
	default:
		return "none"
	}
}

// Default button timing
const (
	DefaultDebounce          = 50 * time.Millisecond
	DefaultDoubleClickWindow = 400 * time.Millisecond
)

// ButtonConfig holds the classifier timing and pin polarity.
type ButtonConfig struct {
	Debounce          time.Duration // Minimum time a raw level must persist
	DoubleClickWindow time.Duration // Max gap between the two presses of a double click
	ActiveLow         bool          // Pressed reads as low (pull-up wiring)
}

// DefaultButtonConfig returns the timing used by the reference board.
func DefaultButtonConfig() ButtonConfig {
	return ButtonConfig{
		Debounce:          DefaultDebounce,
		DoubleClickWindow: DefaultDoubleClickWindow,
		ActiveLow:         true,
	}
}

// ButtonState is the complete debounce/click-counting state.
// PendingClicks is always 0 or 1.
type ButtonState struct {
	RawLevel         bool
	StableLevel      bool
	LastTransitionAt time.Duration
	PendingClicks    uint8
	FirstClickAt     time.Duration
}

// Button classifies gestures from periodic pin samples.
type Button struct {
	cfg   ButtonConfig
	state ButtonState
}

// NewButton creates a classifier whose stable level starts at level.
func NewButton(cfg ButtonConfig, level bool, now time.Duration) *Button {
	b := &Button{cfg: cfg}
	b.Reset(level, now)
	return b
}

// State returns a copy of the current classifier state.
func (b *Button) State() ButtonState {
	return b.state
}

// Reset resyncs the stable level to level and clears any pending click.
func (b *Button) Reset(level bool, now time.Duration) {
	b.state = ButtonState{
		RawLevel:         level,
		StableLevel:      level,
		LastTransitionAt: now,
	}
}

func (b *Button) pressed(level bool) bool {
	return level != b.cfg.ActiveLow
}

// Poll feeds one pin sample taken at now and returns the resulting gesture.
func (b *Button) Poll(level bool, now time.Duration) ClickEvent {
	s := &b.state

	if level != s.RawLevel {
		s.RawLevel = level
		s.LastTransitionAt = now
	}

	if s.RawLevel != s.StableLevel && now-s.LastTransitionAt >= b.cfg.Debounce {
		s.StableLevel = s.RawLevel
		if b.pressed(s.StableLevel) {
			if s.PendingClicks == 1 && now-s.FirstClickAt <= b.cfg.DoubleClickWindow {
				s.PendingClicks = 0
				return ClickDouble
			}
			// First press, or a stale pending one: count from 1 again
			s.PendingClicks = 1
			s.FirstClickAt = now
			return ClickNone
		}
	}

	if s.PendingClicks == 1 && now-s.FirstClickAt > b.cfg.DoubleClickWindow {
		s.PendingClicks = 0
		return ClickSingle
	}

	return ClickNone
}

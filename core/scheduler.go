package core

import "time"

// Timer represents a scheduled event
type Timer struct {
	WakeTime time.Duration
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by wake time and runs the due ones
// from the device main loop. It is not safe for concurrent use.
type Scheduler struct {
	timerList *Timer
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	s.Cancel(t)
	s.insertTimer(t)
}

// Cancel removes t if it is scheduled
func (s *Scheduler) Cancel(t *Timer) {
	if s.timerList == t {
		s.timerList = t.Next
		t.Next = nil
		return
	}
	for current := s.timerList; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// insertTimer inserts a timer in sorted order by WakeTime
func (s *Scheduler) insertTimer(t *Timer) {
	if s.timerList == nil || t.WakeTime < s.timerList.WakeTime {
		t.Next = s.timerList
		s.timerList = t
		return
	}

	current := s.timerList
	for current.Next != nil && current.Next.WakeTime <= t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer with WakeTime <= now.
// A handler returning SF_RESCHEDULE must move its WakeTime forward.
func (s *Scheduler) Dispatch(now time.Duration) int {
	fired := 0
	for s.timerList != nil && s.timerList.WakeTime <= now {
		timer := s.timerList
		s.timerList = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references

		fired++
		if timer.Handler(timer) == SF_RESCHEDULE {
			if timer.WakeTime <= now {
				// Never spin on a handler that forgot to advance
				timer.WakeTime = now + 1
			}
			s.insertTimer(timer)
		}
	}
	return fired
}

// NextWake returns the wake time of the earliest pending timer.
func (s *Scheduler) NextWake() (time.Duration, bool) {
	if s.timerList == nil {
		return 0, false
	}
	return s.timerList.WakeTime, true
}

// Package timeout schedules the kill deadlines of timeout-wrapped commands.
// All deadlines share one alarm, armed for whichever entry expires first.
package timeout

import (
	"time"

	"smash/internal/command"
)

// Alarm is a single pending wake-up. Arm replaces any earlier arming.
type Alarm interface {
	Arm(d time.Duration)
	Cancel()
}

// Entry is one time-bounded command.
type Entry struct {
	Command  *command.Command
	Duration time.Duration
	Created  time.Time
}

// Remaining is the duration minus the time elapsed since creation. It is
// negative once the entry is overdue.
func (e *Entry) Remaining(now time.Time) time.Duration {
	return e.Duration - now.Sub(e.Created)
}

// Scheduler is not safe for concurrent use; the shell's main loop owns it.
type Scheduler struct {
	alarm   Alarm
	entries []*Entry
	next    *Entry
	now     func() time.Time
}

// New creates a scheduler driving alarm.
func New(alarm Alarm) *Scheduler {
	return &Scheduler{
		alarm: alarm,
		now:   time.Now,
	}
}

// Register starts tracking cmd with the given duration.
func (s *Scheduler) Register(cmd *command.Command, d time.Duration) *Entry {
	e := &Entry{
		Command:  cmd,
		Duration: d,
		Created:  s.now(),
	}
	s.entries = append(s.entries, e)
	s.Recompute()
	return e
}

// RemoveByPID stops tracking the command with the given pid.
func (s *Scheduler) RemoveByPID(pid int) {
	for i, e := range s.entries {
		if e.Command.PID == pid {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.Recompute()
}

// Recompute arms the alarm for the entry with the least remaining time,
// ties going to the earliest created. Overdue entries are due now. With no
// entries the alarm is cancelled.
func (s *Scheduler) Recompute() {
	now := s.now()

	var best *Entry
	var bestLeft time.Duration
	for _, e := range s.entries {
		left := max(e.Remaining(now), 0)
		if best == nil || left < bestLeft || (left == bestLeft && e.Created.Before(best.Created)) {
			best, bestLeft = e, left
		}
	}

	s.next = best
	if best == nil {
		s.alarm.Cancel()
		return
	}
	s.alarm.Arm(bestLeft)
}

// Next returns the command the alarm is currently armed for.
func (s *Scheduler) Next() (*command.Command, bool) {
	if s.next == nil {
		return nil, false
	}
	return s.next.Command, true
}

// Due returns the armed command if its deadline has passed. An alarm that
// arrives after its target was replaced finds nothing due.
func (s *Scheduler) Due() (*command.Command, bool) {
	if s.next == nil || s.next.Remaining(s.now()) > 0 {
		return nil, false
	}
	return s.next.Command, true
}

// Get returns the entry for pid.
func (s *Scheduler) Get(pid int) (*Entry, bool) {
	for _, e := range s.entries {
		if e.Command.PID == pid {
			return e, true
		}
	}
	return nil, false
}

// Len returns the number of tracked commands.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

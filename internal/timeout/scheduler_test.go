package timeout

import (
	"testing"
	"time"

	"smash/internal/command"
)

type fakeAlarm struct {
	armed     bool
	d         time.Duration
	arms      int
	cancelled int
}

func (a *fakeAlarm) Arm(d time.Duration) {
	a.armed = true
	a.d = d
	a.arms++
}

func (a *fakeAlarm) Cancel() {
	a.armed = false
	a.cancelled++
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newScheduler() (*Scheduler, *fakeAlarm, *clock) {
	a := &fakeAlarm{}
	c := &clock{t: time.Unix(5000, 0)}
	s := New(a)
	s.now = c.now
	return s, a, c
}

func cmd(text string, pid int) *command.Command {
	c := command.Parse(text)
	c.PID = pid
	return c
}

func nextPID(t *testing.T, s *Scheduler) int {
	t.Helper()
	c, ok := s.Next()
	if !ok {
		t.Fatal("expected an armed target")
	}
	return c.PID
}

func TestRecomputePicksSoonest(t *testing.T) {
	s, alarm, _ := newScheduler()

	s.Register(cmd("timeout 10 sleep 100", 1), 10*time.Second)
	s.Register(cmd("timeout 3 sleep 100", 2), 3*time.Second)

	if pid := nextPID(t, s); pid != 2 {
		t.Errorf("expected pid 2 armed, got %d", pid)
	}
	if alarm.d != 3*time.Second {
		t.Errorf("expected alarm in 3s, got %v", alarm.d)
	}
}

func TestRecomputeAccountsForElapsed(t *testing.T) {
	s, alarm, c := newScheduler()

	s.Register(cmd("a", 1), 10*time.Second)
	c.advance(8 * time.Second)
	s.Register(cmd("b", 2), 5*time.Second)

	if pid := nextPID(t, s); pid != 1 {
		t.Errorf("expected pid 1 (2s left) armed, got %d", pid)
	}
	if alarm.d != 2*time.Second {
		t.Errorf("expected alarm in 2s, got %v", alarm.d)
	}
}

func TestRemoveRearmsForNext(t *testing.T) {
	s, alarm, c := newScheduler()

	s.Register(cmd("a", 1), 10*time.Second)
	s.Register(cmd("b", 2), 3*time.Second)
	s.Register(cmd("c", 3), 6*time.Second)

	c.advance(time.Second)
	s.RemoveByPID(2)

	if pid := nextPID(t, s); pid != 3 {
		t.Errorf("expected pid 3 armed, got %d", pid)
	}
	if alarm.d != 5*time.Second {
		t.Errorf("expected alarm in 5s, got %v", alarm.d)
	}

	s.RemoveByPID(3)
	s.RemoveByPID(1)

	if _, ok := s.Next(); ok {
		t.Error("expected no armed target")
	}
	if alarm.armed {
		t.Error("alarm should be cancelled once no entries remain")
	}
	if s.Len() != 0 {
		t.Errorf("expected no entries, got %d", s.Len())
	}
}

func TestTieGoesToEarliestCreated(t *testing.T) {
	s, _, c := newScheduler()

	s.Register(cmd("a", 1), 5*time.Second)
	c.advance(time.Second)
	s.Register(cmd("b", 2), 4*time.Second)

	if pid := nextPID(t, s); pid != 1 {
		t.Errorf("expected earliest created pid 1, got %d", pid)
	}
}

func TestOverdueEntryIsDueImmediately(t *testing.T) {
	s, alarm, c := newScheduler()

	s.Register(cmd("a", 1), 2*time.Second)
	s.Register(cmd("b", 2), 20*time.Second)
	c.advance(5 * time.Second)
	s.Recompute()

	if pid := nextPID(t, s); pid != 1 {
		t.Errorf("expected overdue pid 1, got %d", pid)
	}
	if alarm.d != 0 {
		t.Errorf("expected immediate alarm, got %v", alarm.d)
	}
	if due, ok := s.Due(); !ok || due.PID != 1 {
		t.Errorf("expected pid 1 due, got %+v", due)
	}
}

func TestDueIgnoresEarlyAlarm(t *testing.T) {
	s, _, c := newScheduler()

	s.Register(cmd("a", 1), 10*time.Second)
	c.advance(4 * time.Second)

	if _, ok := s.Due(); ok {
		t.Error("nothing should be due after 4s of 10s")
	}

	c.advance(6 * time.Second)
	if due, ok := s.Due(); !ok || due.PID != 1 {
		t.Errorf("expected pid 1 due, got %+v", due)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	s, alarm, _ := newScheduler()
	s.Register(cmd("a", 1), 4*time.Second)
	s.Register(cmd("b", 2), 9*time.Second)

	for i := 0; i < 3; i++ {
		s.Recompute()
		if pid := nextPID(t, s); pid != 1 || alarm.d != 4*time.Second {
			t.Fatalf("recompute %d changed the schedule: pid=%d d=%v", i, pid, alarm.d)
		}
	}
	if s.Len() != 2 {
		t.Errorf("recompute must not change entries, got %d", s.Len())
	}
}

func TestTimerAlarmFires(t *testing.T) {
	fired := make(chan struct{}, 2)
	a := NewTimerAlarm(func() { fired <- struct{}{} })

	a.Arm(time.Hour)
	a.Arm(10 * time.Millisecond)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("alarm never fired")
	}

	select {
	case <-fired:
		t.Fatal("replaced arming should not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerAlarmCancel(t *testing.T) {
	fired := make(chan struct{}, 1)
	a := NewTimerAlarm(func() { fired <- struct{}{} })

	a.Arm(20 * time.Millisecond)
	a.Cancel()
	a.Cancel()

	select {
	case <-fired:
		t.Fatal("cancelled alarm fired")
	case <-time.After(80 * time.Millisecond):
	}
}

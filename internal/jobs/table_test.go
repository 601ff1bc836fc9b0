package jobs

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"smash/internal/command"
)

type fakeProcs struct {
	exited  map[int]bool
	failFor map[int]bool
	sent    []int
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{exited: map[int]bool{}, failFor: map[int]bool{}}
}

func (f *fakeProcs) Exited(pid int) bool { return f.exited[pid] }

func (f *fakeProcs) Signal(pid int, sig unix.Signal) error {
	if f.failFor[pid] {
		return errors.New("no such process")
	}
	f.sent = append(f.sent, pid)
	return nil
}

func cmdWithPID(text string, pid int) *command.Command {
	cmd := command.Parse(text)
	cmd.PID = pid
	return cmd
}

func newTable() (*Table, *fakeProcs) {
	procs := newFakeProcs()
	return New(procs), procs
}

func TestAddAssignsIncreasingIDs(t *testing.T) {
	tbl, _ := newTable()

	for i := 1; i <= 3; i++ {
		e := tbl.Add(cmdWithPID("sleep 100 &", 100+i), false)
		if e.ID != i {
			t.Errorf("expected id %d, got %d", i, e.ID)
		}
	}

	tbl.Remove(2)
	e := tbl.Add(cmdWithPID("sleep 1 &", 200), false)
	if e.ID != 4 {
		t.Errorf("expected id 4 after removing a middle entry, got %d", e.ID)
	}

	tbl.Remove(4)
	tbl.Remove(3)
	e = tbl.Add(cmdWithPID("sleep 1 &", 201), false)
	if e.ID != 2 {
		t.Errorf("expected id 2 once the top ids are gone, got %d", e.ID)
	}
}

func TestAddCoalescesByPID(t *testing.T) {
	tbl, _ := newTable()
	base := time.Unix(1000, 0)
	tbl.now = func() time.Time { return base }

	first := tbl.Add(cmdWithPID("sleep 100", 42), false)

	tbl.now = func() time.Time { return base.Add(5 * time.Second) }
	again := cmdWithPID("sleep 100", 42)
	second := tbl.Add(again, true)

	if tbl.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tbl.Len())
	}
	if first != second {
		t.Error("expected the existing entry to be updated")
	}
	if !second.Stopped {
		t.Error("stopped flag not updated")
	}
	if !second.Since.Equal(base.Add(5 * time.Second)) {
		t.Errorf("timestamp not refreshed: %v", second.Since)
	}
	if second.Command != again {
		t.Error("command reference not updated")
	}
}

func TestLast(t *testing.T) {
	tbl, _ := newTable()

	if _, ok := tbl.Last(); ok {
		t.Error("empty table should have no last entry")
	}

	for i := 1; i <= 3; i++ {
		tbl.Add(cmdWithPID("sleep 100 &", i), false)
	}
	tbl.Remove(3)

	e, ok := tbl.Last()
	if !ok || e.ID != 2 {
		t.Errorf("expected last id 2, got %+v", e)
	}
}

func TestLastStoppedIgnoresRunning(t *testing.T) {
	tbl, _ := newTable()

	if _, ok := tbl.LastStopped(); ok {
		t.Error("empty table should have no stopped entry")
	}

	tbl.Add(cmdWithPID("a", 1), true)
	tbl.Add(cmdWithPID("b", 2), true)
	tbl.Add(cmdWithPID("c", 3), false)

	e, ok := tbl.LastStopped()
	if !ok || e.ID != 2 {
		t.Errorf("expected stopped id 2, got %+v", e)
	}

	e.Stopped = false
	e, ok = tbl.LastStopped()
	if !ok || e.ID != 1 {
		t.Errorf("expected stopped id 1, got %+v", e)
	}
}

func TestGetAndRemove(t *testing.T) {
	tbl, _ := newTable()
	tbl.Add(cmdWithPID("a", 10), false)
	tbl.Add(cmdWithPID("b", 20), false)

	if e, ok := tbl.Get(2); !ok || e.PID() != 20 {
		t.Errorf("get by id failed: %+v", e)
	}
	if e, ok := tbl.GetByPID(10); !ok || e.ID != 1 {
		t.Errorf("get by pid failed: %+v", e)
	}
	if _, ok := tbl.Get(7); ok {
		t.Error("unexpected entry for id 7")
	}

	tbl.RemoveByPID(10)
	tbl.RemoveByPID(999)
	tbl.Remove(999)

	if tbl.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tbl.Len())
	}
	if _, ok := tbl.GetByPID(10); ok {
		t.Error("entry for pid 10 should be gone")
	}
}

func TestRemoveFinished(t *testing.T) {
	tbl, procs := newTable()
	tbl.Add(cmdWithPID("a", 1), false)
	tbl.Add(cmdWithPID("b", 2), true)
	tbl.Add(cmdWithPID("c", 3), false)

	procs.exited[1] = true
	procs.exited[3] = true

	removed := tbl.RemoveFinished()
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed entries, got %d", len(removed))
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", tbl.Len())
	}
	if e, _ := tbl.Last(); e.PID() != 2 {
		t.Errorf("wrong survivor: %+v", e)
	}
}

func TestKillAllContinuesAfterFailure(t *testing.T) {
	tbl, procs := newTable()
	tbl.Add(cmdWithPID("a", 1), false)
	tbl.Add(cmdWithPID("b", 2), false)
	tbl.Add(cmdWithPID("c", 3), false)
	procs.failFor[2] = true

	var failed []int
	tbl.KillAll(unix.SIGKILL, func(e *Entry, err error) {
		failed = append(failed, e.PID())
	})

	if len(failed) != 1 || failed[0] != 2 {
		t.Errorf("expected failure for pid 2 only, got %v", failed)
	}
	if len(procs.sent) != 2 {
		t.Errorf("expected 2 successful sends, got %v", procs.sent)
	}
	if tbl.Len() != 3 {
		t.Error("KillAll must not remove entries")
	}
}

func TestPrint(t *testing.T) {
	tbl, _ := newTable()
	base := time.Unix(1000, 0)
	tbl.now = func() time.Time { return base }
	tbl.Add(cmdWithPID("sleep 100 &", 321), false)
	tbl.Add(cmdWithPID("vim", 654), true)

	tbl.now = func() time.Time { return base.Add(7 * time.Second) }
	var buf bytes.Buffer
	tbl.Print(&buf)

	want := "[1] sleep 100 & : 321 7 secs\n[2] vim : 654 7 secs (stopped)\n"
	if buf.String() != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestIDsUniqueUnderChurn(t *testing.T) {
	tbl, _ := newTable()
	pid := 1
	for round := 0; round < 20; round++ {
		tbl.Add(cmdWithPID("x", pid), false)
		pid++
		tbl.Add(cmdWithPID("y", pid), false)
		pid++
		if round%3 == 0 {
			if e, ok := tbl.Last(); ok {
				tbl.Remove(e.ID)
			}
		}
		if round%4 == 0 {
			tbl.RemoveByPID(pid - 3)
		}

		seen := map[int]bool{}
		prev := 0
		for _, e := range tbl.List() {
			if seen[e.ID] {
				t.Fatalf("duplicate id %d", e.ID)
			}
			if e.ID <= prev {
				t.Fatalf("ids out of order: %d after %d", e.ID, prev)
			}
			seen[e.ID] = true
			prev = e.ID
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl, _ := newTable()
	tbl.Add(cmdWithPID("sleep 1", 100), true)
	tbl.Add(cmdWithPID("sleep 2", 200), false)

	c := tbl.Clone()
	first, _ := c.Get(1)
	first.Stopped = false
	c.Remove(2)
	c.Add(cmdWithPID("sleep 3", 300), false)

	if tbl.Len() != 2 {
		t.Fatalf("original should keep 2 jobs, has %d", tbl.Len())
	}
	if e, _ := tbl.Get(1); !e.Stopped {
		t.Error("original entry should still be stopped")
	}
	if _, ok := tbl.GetByPID(300); ok {
		t.Error("an entry added to the clone leaked into the original")
	}
}

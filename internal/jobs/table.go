// Package jobs keeps the table of background and stopped commands.
package jobs

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"

	"smash/internal/command"
)

// Process is what the table needs from the OS.
type Process interface {
	Exited(pid int) bool
	Signal(pid int, sig unix.Signal) error
}

// Entry is one job.
type Entry struct {
	ID      int
	Command *command.Command
	Since   time.Time
	Stopped bool
}

// PID is the process id of the job's command.
func (e *Entry) PID() int {
	return e.Command.PID
}

// Table is ordered by job id. Ids are one more than the current maximum,
// so a freed id is handed out again only once it is the highest.
type Table struct {
	entries []*Entry
	procs   Process
	now     func() time.Time
}

// New creates an empty table.
func New(procs Process) *Table {
	return &Table{
		procs: procs,
		now:   time.Now,
	}
}

// Add registers cmd. A live entry with the same pid is updated in place
// instead of duplicated.
func (t *Table) Add(cmd *command.Command, stopped bool) *Entry {
	if e, ok := t.GetByPID(cmd.PID); ok {
		e.Command = cmd
		e.Stopped = stopped
		e.Since = t.now()
		return e
	}

	id := 1
	if n := len(t.entries); n > 0 {
		id = t.entries[n-1].ID + 1
	}
	e := &Entry{
		ID:      id,
		Command: cmd,
		Since:   t.now(),
		Stopped: stopped,
	}
	t.entries = append(t.entries, e)
	return e
}

// RemoveFinished drops every entry whose process has exited and returns
// the dropped entries.
func (t *Table) RemoveFinished() []*Entry {
	var removed []*Entry
	kept := t.entries[:0]
	for _, e := range t.entries {
		if t.procs.Exited(e.PID()) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(t.entries); i++ {
		t.entries[i] = nil
	}
	t.entries = kept
	return removed
}

// Get returns the entry with the given job id.
func (t *Table) Get(id int) (*Entry, bool) {
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// GetByPID returns the entry whose command has the given pid.
func (t *Table) GetByPID(pid int) (*Entry, bool) {
	for _, e := range t.entries {
		if e.PID() == pid {
			return e, true
		}
	}
	return nil, false
}

// Remove drops the entry with the given job id, if any.
func (t *Table) Remove(id int) {
	t.removeAt(t.index(func(e *Entry) bool { return e.ID == id }))
}

// RemoveByPID drops the entry whose command has the given pid, if any.
func (t *Table) RemoveByPID(pid int) {
	t.removeAt(t.index(func(e *Entry) bool { return e.PID() == pid }))
}

// Last returns the entry with the highest id.
func (t *Table) Last() (*Entry, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	return t.entries[len(t.entries)-1], true
}

// LastStopped returns the stopped entry with the highest id.
func (t *Table) LastStopped() (*Entry, bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Stopped {
			return t.entries[i], true
		}
	}
	return nil, false
}

// KillAll sends sig to every job. Send failures are passed to onErr and do
// not stop the remaining sends. Entries are left in place.
func (t *Table) KillAll(sig unix.Signal, onErr func(e *Entry, err error)) {
	for _, e := range t.entries {
		if err := t.procs.Signal(e.PID(), sig); err != nil && onErr != nil {
			onErr(e, err)
		}
	}
}

// Clone returns a copy of the table whose entries can change without
// touching t. The commands they point to are shared.
func (t *Table) Clone() *Table {
	c := &Table{
		entries: make([]*Entry, len(t.entries)),
		procs:   t.procs,
		now:     t.now,
	}
	for i, e := range t.entries {
		cp := *e
		c.entries[i] = &cp
	}
	return c
}

// List returns the entries in id order.
func (t *Table) List() []*Entry {
	return append([]*Entry(nil), t.entries...)
}

// Len returns the number of jobs.
func (t *Table) Len() int {
	return len(t.entries)
}

// Print writes the job listing.
func (t *Table) Print(w io.Writer) {
	now := t.now()
	for _, e := range t.entries {
		fmt.Fprintln(w, e.Format(now))
	}
}

// Format renders the entry as "[id] text : pid secs secs".
func (e *Entry) Format(now time.Time) string {
	line := fmt.Sprintf("[%d] %s : %d %d secs", e.ID, e.Command.Text, e.PID(), int(now.Sub(e.Since).Seconds()))
	if e.Stopped {
		line += " (stopped)"
	}
	return line
}

func (t *Table) index(match func(*Entry) bool) int {
	for i, e := range t.entries {
		if match(e) {
			return i
		}
	}
	return -1
}

func (t *Table) removeAt(i int) {
	if i < 0 {
		return
	}
	copy(t.entries[i:], t.entries[i+1:])
	t.entries[len(t.entries)-1] = nil
	t.entries = t.entries[:len(t.entries)-1]
}

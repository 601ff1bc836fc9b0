package shell

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"smash/internal/jobs"
	"smash/internal/proc"
)

// foregroundJob resumes a job and waits for it: "fg" picks the most
// recent job, "fg <id>" a specific one.
func (s *Shell) foregroundJob(args []string, out io.Writer) error {
	var e *jobs.Entry
	switch len(args) {
	case 0:
		last, ok := s.jobs.Last()
		if !ok {
			return emptyJobs("fg", "jobs list is empty")
		}
		e = last
	case 1:
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return invalidArgs("fg")
		}
		found, ok := s.jobs.Get(id)
		if !ok {
			return notExist("fg", id)
		}
		e = found
	default:
		return invalidArgs("fg")
	}

	fmt.Fprintf(out, "%s : %d\n", e.Command.Text, e.PID())
	if err := proc.Signal(e.PID(), unix.SIGCONT); err != nil {
		return syscallError("kill", err)
	}
	e.Stopped = false
	return s.foreground(e.Command)
}

// backgroundJob resumes a stopped job without waiting for it.
func (s *Shell) backgroundJob(args []string, out io.Writer) error {
	var e *jobs.Entry
	switch len(args) {
	case 0:
		last, ok := s.jobs.LastStopped()
		if !ok {
			return emptyJobs("bg", "there is no stopped jobs to resume")
		}
		e = last
	case 1:
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return invalidArgs("bg")
		}
		found, ok := s.jobs.Get(id)
		if !ok {
			return notExist("bg", id)
		}
		if !found.Stopped {
			return alreadyRunning("bg", id)
		}
		e = found
	default:
		return invalidArgs("bg")
	}

	fmt.Fprintf(out, "%s : %d\n", e.Command.Text, e.PID())
	if err := proc.Signal(e.PID(), unix.SIGCONT); err != nil {
		return syscallError("kill", err)
	}
	e.Stopped = false
	return nil
}

// killJob sends a signal to a job: "kill -<signum> <id>".
func (s *Shell) killJob(args []string, out io.Writer) error {
	if len(args) != 2 || !strings.HasPrefix(args[0], "-") {
		return invalidArgs("kill")
	}
	signum, err := strconv.Atoi(args[0][1:])
	if err != nil || signum <= 0 || signum >= 65 {
		return invalidArgs("kill")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return invalidArgs("kill")
	}

	e, ok := s.jobs.Get(id)
	if !ok {
		return notExist("kill", id)
	}

	sig := unix.Signal(signum)
	if err := proc.Signal(e.PID(), sig); err != nil {
		return syscallError("kill", err)
	}
	switch sig {
	case unix.SIGSTOP, unix.SIGTSTP:
		e.Stopped = true
	case unix.SIGCONT:
		e.Stopped = false
	}
	fmt.Fprintf(out, "signal number %d was sent to pid %d\n", signum, e.PID())
	return nil
}

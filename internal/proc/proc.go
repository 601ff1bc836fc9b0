// Package proc wraps the process syscalls the shell relies on: starting a
// child in its own process group, waiting for it with stop reporting,
// probing for exit without blocking, and sending signals.
package proc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Streams are the standard descriptors a child inherits.
type Streams struct {
	In  *os.File
	Out *os.File
	Err *os.File
}

// Std returns the process's own standard streams.
func Std() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Status describes why Wait returned.
type Status struct {
	Stopped  bool
	Signaled bool
	ExitCode int
}

// Start launches argv with the given streams. With newGroup set the child
// is placed in a process group of its own, so terminal-generated signals
// reach the shell and not the child.
func Start(argv []string, s Streams, newGroup bool) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("empty argv")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	// Assigning a nil *os.File would hand exec a non-nil interface.
	if s.In != nil {
		cmd.Stdin = s.In
	}
	if s.Out != nil {
		cmd.Stdout = s.Out
	}
	if s.Err != nil {
		cmd.Stderr = s.Err
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: newGroup}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// Reaping is done with wait4 on the pid, never through cmd.Wait.
	cmd.Process.Release()
	return pid, nil
}

// Wait blocks until pid exits or is stopped.
func Wait(pid int) (Status, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err == unix.ECHILD {
			// Already reaped elsewhere.
			return Status{}, nil
		}
		if err != nil {
			return Status{}, fmt.Errorf("wait4 %d: %w", pid, err)
		}
		break
	}

	switch {
	case ws.Stopped():
		return Status{Stopped: true}, nil
	case ws.Signaled():
		return Status{Signaled: true, ExitCode: 128 + int(ws.Signal())}, nil
	default:
		return Status{ExitCode: ws.ExitStatus()}, nil
	}
}

// Exited reports, without blocking, whether pid has terminated. A pid that
// is no longer our child counts as exited.
func Exited(pid int) bool {
	if pid <= 0 {
		return true
	}
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return errors.Is(err, unix.ECHILD)
	}
	return wpid == pid && (ws.Exited() || ws.Signaled())
}

// Signal sends sig to pid.
func Signal(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	return unix.Kill(pid, sig)
}

// Host is the live implementation of the process probes used by the job
// table.
type Host struct{}

func (Host) Exited(pid int) bool                   { return Exited(pid) }
func (Host) Signal(pid int, sig unix.Signal) error { return Signal(pid, sig) }

package shell

import (
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"smash/internal/proc"
)

type event int

const (
	evStop event = iota
	evInterrupt
	evAlarm
)

func (e event) String() string {
	switch e {
	case evStop:
		return "stop"
	case evInterrupt:
		return "interrupt"
	case evAlarm:
		return "alarm"
	default:
		return "unknown"
	}
}

// setupSignalHandling turns SIGINT and SIGTSTP into events. Nothing is
// mutated from the signal goroutine.
func (s *Shell) setupSignalHandling() {
	signal.Notify(s.signalChan, syscall.SIGINT, syscall.SIGTSTP)
	go s.handleSignals()
}

func (s *Shell) stopSignalHandling() {
	signal.Stop(s.signalChan)
	close(s.signalChan)
}

func (s *Shell) handleSignals() {
	for sig := range s.signalChan {
		switch sig {
		case syscall.SIGINT:
			s.notify(evInterrupt)
		case syscall.SIGTSTP:
			s.notify(evStop)
		}
	}
}

// notify queues ev for the main loop. It never blocks; a full queue drops
// the event the way the kernel merges pending signals.
func (s *Shell) notify(ev event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Shell) handle(ev event) {
	s.logger.Printf("event %s", ev)
	switch ev {
	case evStop:
		s.onStop()
	case evInterrupt:
		s.onInterrupt()
	case evAlarm:
		s.onAlarm()
	}
}

// onStop suspends the foreground command and moves it into the job table.
func (s *Shell) onStop() {
	fmt.Fprintln(s.console, "smash: got ctrl-Z")
	cmd := s.active
	if cmd == nil {
		return
	}
	if err := proc.Signal(cmd.PID, unix.SIGSTOP); err != nil {
		s.report(syscallError("kill", err), s.streams)
		return
	}
	fmt.Fprintf(s.console, "smash: process %d was stopped\n", cmd.PID)
	s.jobs.Add(cmd, true)
	s.active = nil
}

// onInterrupt kills the foreground command.
func (s *Shell) onInterrupt() {
	fmt.Fprintln(s.console, "smash: got ctrl-C")
	cmd := s.active
	if cmd == nil {
		return
	}
	if proc.Exited(cmd.PID) {
		s.active = nil
		return
	}
	if err := proc.Signal(cmd.PID, s.killSignal); err != nil {
		s.report(syscallError("kill", err), s.streams)
		return
	}
	fmt.Fprintf(s.console, "smash: process %d was killed\n", cmd.PID)
	s.logger.Printf("killed %s pid=%d", cmd.ID, cmd.PID)
	s.active = nil
}

// onAlarm kills the command whose deadline has passed and rearms for the
// next one.
func (s *Shell) onAlarm() {
	cmd, ok := s.timeouts.Due()
	if !ok {
		// Fired for an entry that has since been removed.
		s.timeouts.Recompute()
		return
	}
	fmt.Fprintln(s.console, "smash: got an alarm")

	if proc.Exited(cmd.PID) {
		s.jobs.RemoveByPID(cmd.PID)
		s.timeouts.RemoveByPID(cmd.PID)
		return
	}

	err := proc.Signal(cmd.PID, s.killSignal)
	if err != nil {
		s.report(syscallError("kill", err), s.streams)
	} else {
		fmt.Fprintf(s.console, "smash: %s timed out!\n", cmd.Text)
		s.logger.Printf("timed out %s pid=%d", cmd.ID, cmd.PID)
	}
	s.timeouts.RemoveByPID(cmd.PID)
}

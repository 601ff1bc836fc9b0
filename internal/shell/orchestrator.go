package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"smash/internal/command"
	"smash/internal/proc"
)

// Execute parses and runs one command line against the session's own
// streams.
func (s *Shell) Execute(line string) {
	s.execute(line, s.streams)
}

func (s *Shell) execute(line string, streams proc.Streams) {
	cmd := command.Parse(line)
	if cmd == nil {
		return
	}
	s.reapFinished()

	if err := s.dispatch(cmd, streams); err != nil {
		s.report(err, streams)
	}
}

func (s *Shell) dispatch(cmd *command.Command, streams proc.Streams) error {
	switch cmd.Kind {
	case command.Pipeline:
		return s.runPipeline(cmd, streams)
	case command.Redirected:
		return s.runRedirection(cmd, streams)
	case command.TimeoutWrapped:
		return s.runTimeout(cmd, streams)
	case command.BuiltIn:
		return s.runBuiltin(cmd, streams)
	}

	if p, ok := s.plugins[cmd.Verb]; ok {
		if err := p.Execute(cmd.Args, streams.Out); err != nil {
			return fmt.Errorf("smash error: %s: %w", cmd.Verb, err)
		}
		return nil
	}
	return s.runExternal(cmd, streams)
}

// reapFinished drops jobs whose processes have exited, along with any
// deadline they still had.
func (s *Shell) reapFinished() {
	for _, e := range s.jobs.RemoveFinished() {
		s.forgetTimeout(e.PID())
	}
}

func (s *Shell) runExternal(cmd *command.Command, streams proc.Streams) error {
	if err := s.start(cmd, cmd.ExecText(), streams); err != nil {
		return err
	}
	return s.place(cmd)
}

// runTimeout runs "timeout <secs> <command>" and registers the deadline.
func (s *Shell) runTimeout(cmd *command.Command, streams proc.Streams) error {
	if len(cmd.Args) < 2 {
		return invalidArgs("timeout")
	}
	secs, err := strconv.Atoi(cmd.Args[0])
	if err != nil || secs < 0 {
		return invalidArgs("timeout")
	}

	if err := s.start(cmd, cmd.ArgText(1), streams); err != nil {
		return err
	}
	s.timeouts.Register(cmd, time.Duration(secs)*time.Second)
	return s.place(cmd)
}

// start launches text in a sub-shell inside a new process group.
func (s *Shell) start(cmd *command.Command, text string, streams proc.Streams) error {
	pid, err := proc.Start([]string{s.config.Subshell, "-c", text}, streams, true)
	if err != nil {
		return forkError(err)
	}
	cmd.PID = pid
	s.logger.Printf("started %s pid=%d kind=%s background=%v: %s", cmd.ID, pid, cmd.Kind, cmd.Background, text)
	return nil
}

// place either backgrounds a started command or makes it the foreground
// command and waits for it.
func (s *Shell) place(cmd *command.Command) error {
	if cmd.Background {
		s.jobs.Add(cmd, false)
		return nil
	}
	return s.foreground(cmd)
}

// foreground blocks until cmd exits or stops. A stop or interrupt event
// handled meanwhile clears the foreground slot itself.
func (s *Shell) foreground(cmd *command.Command) error {
	s.active = cmd
	st, err := s.await(cmd.PID, false)

	if s.active == cmd {
		s.active = nil
		if st.Stopped {
			// Stopped by someone other than the shell.
			s.jobs.Add(cmd, true)
		}
	}
	if !st.Stopped {
		s.jobs.RemoveByPID(cmd.PID)
		s.forgetTimeout(cmd.PID)
	}

	if err != nil {
		return syscallError("waitpid", err)
	}
	return nil
}

// await waits for pid while applying events. With untilExit set, stops
// are waited through.
func (s *Shell) await(pid int, untilExit bool) (proc.Status, error) {
	type result struct {
		st  proc.Status
		err error
	}
	done := make(chan result, 1)
	go func() {
		for {
			st, err := proc.Wait(pid)
			if err == nil && st.Stopped && untilExit {
				continue
			}
			done <- result{st, err}
			return
		}
	}()

	for {
		select {
		case r := <-done:
			return r.st, r.err
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

// runPipeline connects the two sides of cmd with a pipe and waits for
// both. Built-in and plugin sides run inside the shell; every other side
// runs in a child smash started with legArgv.
func (s *Shell) runPipeline(cmd *command.Command, streams proc.Streams) error {
	r, w, err := os.Pipe()
	if err != nil {
		return syscallError("pipe", err)
	}

	left := pipeLeg{cmd: command.Parse(cmd.Pipe.Left), text: cmd.Pipe.Left, streams: streams}
	if cmd.Pipe.RouteStderr {
		left.streams.Err = w
	} else {
		left.streams.Out = w
	}
	right := pipeLeg{cmd: command.Parse(cmd.Pipe.Right), text: cmd.Pipe.Right, streams: streams}
	right.streams.In = r

	var errs []error
	var pids []int
	for _, leg := range []pipeLeg{left, right} {
		if s.inProcess(leg.cmd) {
			continue
		}
		pid, err := proc.Start(s.legArgv(leg.text), leg.streams, false)
		if err != nil {
			errs = append(errs, forkError(err))
			continue
		}
		s.logger.Printf("pipeline %s leg pid=%d: %s", cmd.ID, pid, leg.text)
		pids = append(pids, pid)
	}

	// In-process sides run once the child sides hold their pipe ends.
	leftIn, rightIn := s.inProcess(left.cmd), s.inProcess(right.cmd)
	var drained chan struct{}
	if leftIn && rightIn {
		// Neither side reads stdin; keep the left one from filling the pipe.
		drained = make(chan struct{})
		go func() {
			io.Copy(io.Discard, r)
			close(drained)
		}()
	}
	if leftIn {
		s.runLeg(left.cmd, left.streams)
	}
	w.Close()
	if drained != nil {
		<-drained
	}
	if rightIn {
		s.runLeg(right.cmd, right.streams)
	}
	r.Close()

	for _, pid := range pids {
		if _, err := s.await(pid, true); err != nil {
			errs = append(errs, syscallError("waitpid", err))
		}
	}
	return errors.Join(errs...)
}

type pipeLeg struct {
	cmd     *command.Command
	text    string
	streams proc.Streams
}

// inProcess reports whether a pipeline side runs inside the shell. An empty
// side has nothing to run and counts as in-process.
func (s *Shell) inProcess(cmd *command.Command) bool {
	if cmd == nil || cmd.Kind == command.BuiltIn {
		return true
	}
	_, ok := s.plugins[cmd.Verb]
	return ok && cmd.Kind == command.External
}

// runLeg runs a built-in or plugin side of a pipeline against a copy of the
// session, the way a forked child sees it. Changes it makes to the prompt,
// the job table, the working directory or the running flag end with it.
func (s *Shell) runLeg(cmd *command.Command, streams proc.Streams) {
	if cmd == nil {
		return
	}
	leg := *s
	leg.jobs = s.jobs.Clone()
	leg.active = nil
	if wd, err := os.Getwd(); err == nil {
		defer os.Chdir(wd)
	}

	if err := leg.dispatch(cmd, streams); err != nil {
		leg.report(err, streams)
	}
}

// runRedirection runs the inner command with stdout sent to the target
// file. The file is closed on every path once the inner command returns.
func (s *Shell) runRedirection(cmd *command.Command, streams proc.Streams) error {
	flags := os.O_WRONLY | os.O_CREATE
	if cmd.Redirect.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(cmd.Redirect.Target, flags, 0644)
	if err != nil {
		return syscallError("open", err)
	}

	inner := streams
	inner.Out = f
	s.execute(cmd.Redirect.Inner, inner)

	if err := f.Close(); err != nil {
		return syscallError("close", err)
	}
	return nil
}

func (s *Shell) forgetTimeout(pid int) {
	if _, ok := s.timeouts.Get(pid); ok {
		s.timeouts.RemoveByPID(pid)
	}
}

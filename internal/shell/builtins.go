package shell

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"smash/internal/command"
	"smash/internal/jobs"
	"smash/internal/proc"
)

func (s *Shell) runBuiltin(cmd *command.Command, streams proc.Streams) error {
	args := cmd.Args
	switch cmd.Verb {
	case "chprompt":
		return s.changePrompt(args)
	case "showpid":
		fmt.Fprintf(streams.Out, "smash pid is %d\n", os.Getpid())
		return nil
	case "pwd":
		return printWorkingDirectory(streams.Out)
	case "cd":
		return s.changeDirectory(args)
	case "history":
		return s.showHistory(args, streams.Out)
	case "jobs":
		s.jobs.Print(streams.Out)
		return nil
	case "fg":
		return s.foregroundJob(args, streams.Out)
	case "bg":
		return s.backgroundJob(args, streams.Out)
	case "kill":
		return s.killJob(args, streams.Out)
	case "quit":
		return s.quit(args, streams)
	case "tail":
		return tail(args, streams.Out)
	case "touch":
		return touch(args)
	}
	return fmt.Errorf("smash error: %s: unknown built-in", cmd.Verb)
}

func (s *Shell) changePrompt(args []string) error {
	name := s.config.Prompt
	if len(args) > 0 {
		name = args[0]
	}
	s.prompt = name + "> "
	return nil
}

func printWorkingDirectory(out io.Writer) error {
	dir, err := os.Getwd()
	if err != nil {
		return syscallError("getcwd", err)
	}
	fmt.Fprintln(out, dir)
	return nil
}

// changeDirectory handles "cd", "cd <dir>" and "cd -".
func (s *Shell) changeDirectory(args []string) error {
	if len(args) > 1 {
		return tooManyArgs("cd")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return syscallError("getcwd", err)
	}

	dir := s.config.HomeDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "-" {
		if s.lastDir == "" {
			return &Error{Kind: InvalidArguments, Op: "cd", Msg: "OLDPWD not set"}
		}
		dir = s.lastDir
	}

	if err := os.Chdir(dir); err != nil {
		return syscallError("chdir", err)
	}
	s.lastDir = cwd
	return nil
}

func (s *Shell) showHistory(args []string, out io.Writer) error {
	n := 0
	if len(args) > 1 {
		return tooManyArgs("history")
	}
	if len(args) == 1 {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
			return invalidArgs("history")
		}
	}

	items := s.history.GetAll()
	recent := s.history.Last(n)
	offset := len(items) - len(recent)
	for i, item := range recent {
		fmt.Fprintf(out, "%d: %s\n", offset+i+1, item)
	}
	return nil
}

// quit ends the loop. With "kill" every job is signalled first.
func (s *Shell) quit(args []string, streams proc.Streams) error {
	if len(args) > 0 && args[0] == "kill" {
		fmt.Fprintf(streams.Out, "smash: sending %s signal to %d jobs:\n", unix.SignalName(s.killSignal), s.jobs.Len())
		for _, e := range s.jobs.List() {
			fmt.Fprintf(streams.Out, "%d: %s\n", e.PID(), e.Command.Text)
		}
		s.jobs.KillAll(s.killSignal, func(e *jobs.Entry, err error) {
			s.report(syscallError("kill", err), streams)
		})
	}
	s.running = false
	return nil
}

// tail prints the last lines of a file: "tail [-N] <file>", N defaults to 10.
func tail(args []string, out io.Writer) error {
	n := 10
	var file string
	switch len(args) {
	case 1:
		file = args[0]
	case 2:
		if !strings.HasPrefix(args[0], "-") {
			return invalidArgs("tail")
		}
		v, err := strconv.Atoi(args[0][1:])
		if err != nil || v < 0 {
			return invalidArgs("tail")
		}
		n, file = v, args[1]
	default:
		return invalidArgs("tail")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return syscallError("open", err)
	}
	_, err = out.Write(lastLines(data, n))
	return err
}

func lastLines(data []byte, n int) []byte {
	if n == 0 {
		return nil
	}
	end := len(data)
	if end > 0 && data[end-1] == '\n' {
		end--
	}
	start := end
	for count := 0; start > 0; start-- {
		if data[start-1] == '\n' {
			count++
			if count == n {
				break
			}
		}
	}
	return data[start:]
}

// touch sets a file's access and modification time from
// "<sec>:<min>:<hour>:<day>:<month>:<year>".
func touch(args []string) error {
	if len(args) != 2 {
		return invalidArgs("touch")
	}
	fields := strings.Split(args[1], ":")
	if len(fields) != 6 {
		return invalidArgs("touch")
	}

	var v [6]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return invalidArgs("touch")
		}
		v[i] = n
	}
	sec, minute, hour, day, month, year := v[0], v[1], v[2], v[3], v[4], v[5]
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.Local)

	if err := os.Chtimes(args[0], t, t); err != nil {
		return syscallError("utime", err)
	}
	return nil
}

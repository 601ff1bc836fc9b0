package shell

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"smash/internal/command"
	"smash/internal/config"
	"smash/internal/history"
	"smash/internal/jobs"
	"smash/internal/plugin"
	"smash/internal/proc"
	"smash/internal/timeout"
)

// Shell is the session state. Everything below is owned by the goroutine
// running Run or RunCommand; signals and alarms reach it as events.
type Shell struct {
	config   *config.Config
	history  *history.History
	plugins  map[string]plugin.Plugin
	jobs     *jobs.Table
	timeouts *timeout.Scheduler
	streams  proc.Streams
	console  io.Writer
	logger   *log.Logger

	events     chan event
	signalChan chan os.Signal
	reader     lineReader

	// active is the command occupying the foreground, nil when none.
	active     *command.Command
	prompt     string
	lastDir    string
	running    bool
	killSignal unix.Signal

	// legArgv builds the argv that runs one pipeline leg in a child shell.
	legArgv func(text string) []string
}

func New(cfg *config.Config, streams proc.Streams) (*Shell, error) {
	hist, err := history.New(cfg.HistoryFile, cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("error initializing history: %w", err)
	}

	plugins, err := plugin.LoadAll(cfg.Plugins)
	if err != nil {
		return nil, fmt.Errorf("error loading plugins: %w", err)
	}

	logOut := io.Discard
	if cfg.Debug {
		logOut = streams.Err
	}

	s := &Shell{
		config:     cfg,
		history:    hist,
		plugins:    plugins,
		jobs:       jobs.New(proc.Host{}),
		streams:    streams,
		console:    streams.Out,
		logger:     log.New(logOut, "smash debug: ", log.LstdFlags|log.Lmicroseconds),
		events:     make(chan event, 32),
		signalChan: make(chan os.Signal, 1),
		prompt:     cfg.Prompt + "> ",
		running:    true,
		killSignal: unix.Signal(cfg.KillSignal),
	}
	s.timeouts = timeout.New(timeout.NewTimerAlarm(func() { s.notify(evAlarm) }))
	s.legArgv = s.selfArgv
	return s, nil
}

// Run is the interactive loop. It returns when quit is processed or input
// ends.
func (s *Shell) Run() error {
	s.setupSignalHandling()
	defer s.stopSignalHandling()

	reader, err := s.newReader()
	if err != nil {
		return fmt.Errorf("error initializing input: %w", err)
	}
	s.reader = reader
	defer reader.Close()

	for s.running {
		line, err := s.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := s.history.Add(line); err != nil {
			s.logger.Printf("saving history: %v", err)
		}

		s.Execute(line)
	}
	return nil
}

// RunCommand executes a single command line, the way a pipeline leg runs
// in its child process.
func (s *Shell) RunCommand(line string) {
	s.setupSignalHandling()
	defer s.stopSignalHandling()

	s.Execute(line)
}

// readLine waits for the next input line while still applying signal and
// alarm events as they arrive.
func (s *Shell) readLine() (string, error) {
	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := s.reader.ReadLine(s.prompt)
		done <- result{line, err}
	}()

	for {
		select {
		case r := <-done:
			return r.line, r.err
		case ev := <-s.events:
			s.handle(ev)
			s.reader.Refresh()
		}
	}
}

func (s *Shell) report(err error, streams proc.Streams) {
	fmt.Fprintln(streams.Err, err)
}

func (s *Shell) selfArgv(text string) []string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	argv := []string{exe}
	if s.config.Path != "" {
		argv = append(argv, "-config", s.config.Path)
	}
	return append(argv, "-c", text)
}

package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

type lineReader interface {
	ReadLine(prompt string) (string, error)
	Refresh()
	Close() error
}

// newReader uses readline on a terminal and a plain scanner otherwise.
func (s *Shell) newReader() (lineReader, error) {
	if s.streams.In == nil {
		return &scanReader{scanner: bufio.NewScanner(strings.NewReader("")), out: s.console}, nil
	}
	if !term.IsTerminal(int(s.streams.In.Fd())) {
		return &scanReader{scanner: bufio.NewScanner(s.streams.In), out: s.console}, nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 s.prompt,
		HistoryLimit:           s.config.HistorySize,
		DisableAutoSaveHistory: true,
		Stdin:                  s.streams.In,
		Stdout:                 s.streams.Out,
		Stderr:                 s.streams.Err,
		// ctrl-Z at the prompt must not suspend the shell itself.
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == readline.CharCtrlZ {
				s.notify(evStop)
				return r, false
			}
			return r, true
		},
	})
	if err != nil {
		return nil, err
	}
	for _, line := range s.history.GetAll() {
		rl.SaveHistory(line)
	}
	s.console = rl.Stdout()
	return &ttyReader{rl: rl, notify: s.notify}, nil
}

type ttyReader struct {
	rl     *readline.Instance
	notify func(event)
}

func (r *ttyReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	for {
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			// The terminal is raw while reading, so ctrl-C arrives as input.
			r.notify(evInterrupt)
			continue
		}
		if err == nil && strings.TrimSpace(line) != "" {
			r.rl.SaveHistory(line)
		}
		return line, err
	}
}

func (r *ttyReader) Refresh() {
	r.rl.Refresh()
}

func (r *ttyReader) Close() error {
	return r.rl.Close()
}

type scanReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *scanReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Refresh() {}

func (r *scanReader) Close() error {
	return nil
}

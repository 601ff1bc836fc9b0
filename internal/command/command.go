// Package command turns a raw input line into a Command descriptor the
// shell can dispatch.
package command

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
)

// Kind selects how the shell executes a Command.
type Kind int

const (
	External Kind = iota
	Pipeline
	Redirected
	TimeoutWrapped
	BuiltIn
)

func (k Kind) String() string {
	switch k {
	case External:
		return "external"
	case Pipeline:
		return "pipeline"
	case Redirected:
		return "redirected"
	case TimeoutWrapped:
		return "timeout"
	case BuiltIn:
		return "builtin"
	default:
		return "unknown"
	}
}

// Pipe holds the two legs of a pipeline.
type Pipe struct {
	Left        string
	Right       string
	RouteStderr bool
}

// Redirect holds an output redirection.
type Redirect struct {
	Inner  string
	Target string
	Append bool
}

// Command is a parsed command line. PID is zero until a process is started
// for it.
type Command struct {
	ID         uuid.UUID
	Verb       string
	Text       string
	Args       []string
	Background bool
	PID        int
	Kind       Kind

	Pipe     *Pipe
	Redirect *Redirect
}

var builtins = map[string]struct{}{
	"chprompt": {},
	"showpid":  {},
	"pwd":      {},
	"cd":       {},
	"jobs":     {},
	"fg":       {},
	"bg":       {},
	"kill":     {},
	"quit":     {},
	"tail":     {},
	"touch":    {},
	"history":  {},
}

// IsBuiltin reports whether verb names a shell built-in.
func IsBuiltin(verb string) bool {
	_, ok := builtins[verb]
	return ok
}

// Parse builds a Command from line. It returns nil for a blank line.
func Parse(line string) *Command {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}

	cmd := &Command{
		ID:         uuid.New(),
		Text:       text,
		Background: IsBackground(text),
	}

	if op, ok := findOperator(text, '|'); ok {
		cmd.Kind = Pipeline
		cmd.Pipe = &Pipe{
			Left:        strings.TrimSpace(text[:op.pos]),
			Right:       strings.TrimSpace(text[op.pos+op.width:]),
			RouteStderr: op.width == 2,
		}
		cmd.Verb, cmd.Args = split(cmd.Pipe.Left)
		return cmd
	}

	if op, ok := findOperator(text, '>'); ok {
		inner := strings.TrimSpace(text[:op.pos])
		target := strings.TrimSpace(text[op.pos+op.width:])
		// A trailing & belongs to the redirected command, not the file name.
		if IsBackground(target) {
			target = StripBackground(target)
			if !IsBackground(inner) {
				inner += "&"
			}
		}
		cmd.Kind = Redirected
		cmd.Redirect = &Redirect{
			Inner:  inner,
			Target: target,
			Append: op.width == 2,
		}
		cmd.Verb, cmd.Args = split(inner)
		return cmd
	}

	cmd.Verb, cmd.Args = split(StripBackground(text))
	switch {
	case cmd.Verb == "timeout":
		cmd.Kind = TimeoutWrapped
	case IsBuiltin(cmd.Verb):
		cmd.Kind = BuiltIn
	default:
		cmd.Kind = External
	}
	return cmd
}

// IsBackground reports whether text ends with an unescaped &.
func IsBackground(text string) bool {
	t := strings.TrimRight(text, whitespace)
	if !strings.HasSuffix(t, "&") {
		return false
	}
	return !escaped(t, len(t)-1)
}

// StripBackground removes a trailing background marker and the whitespace
// around it.
func StripBackground(text string) string {
	if !IsBackground(text) {
		return strings.TrimRight(text, whitespace)
	}
	t := strings.TrimRight(text, whitespace)
	return strings.TrimRight(t[:len(t)-1], whitespace)
}

// ExecText is the text handed to the sub-shell: the raw text without the
// background marker.
func (c *Command) ExecText() string {
	return StripBackground(c.Text)
}

// ArgText returns the raw text after the verb and its first n arguments,
// without the background marker. Quoting and shell operators in the rest
// are left as typed.
func (c *Command) ArgText(n int) string {
	text := c.ExecText()
	for i := 0; i <= n; i++ {
		text = strings.TrimLeft(text, whitespace)
		end := strings.IndexAny(text, whitespace)
		if end < 0 {
			return ""
		}
		text = text[end:]
	}
	return strings.TrimLeft(text, whitespace)
}

const whitespace = " \n\r\t\f\v"

func split(text string) (string, []string) {
	words, err := shellquote.Split(text)
	if err != nil {
		// Unbalanced quotes: the sub-shell reports those, we only need a verb.
		words = strings.Fields(text)
	}
	if len(words) == 0 {
		return "", nil
	}
	return words[0], words[1:]
}

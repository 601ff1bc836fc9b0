package shell

import "fmt"

// Kind classifies a failed command. None of them end the shell.
type Kind int

const (
	InvalidArguments Kind = iota
	NotFound
	EmptyCollection
	AlreadyInState
	SyscallFailure
	ForkFailure
)

// Error is reported to stderr when a command cannot be carried out.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case SyscallFailure:
		return fmt.Sprintf("smash error: %s failed: %v", e.Op, e.Err)
	case ForkFailure:
		return fmt.Sprintf("smash error: fork failed: %v", e.Err)
	default:
		return fmt.Sprintf("smash error: %s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidArgs(op string) error {
	return &Error{Kind: InvalidArguments, Op: op, Msg: "invalid arguments"}
}

func tooManyArgs(op string) error {
	return &Error{Kind: InvalidArguments, Op: op, Msg: "too many arguments"}
}

func notExist(op string, id int) error {
	return &Error{Kind: NotFound, Op: op, Msg: fmt.Sprintf("job-id %d does not exist", id)}
}

func emptyJobs(op, msg string) error {
	return &Error{Kind: EmptyCollection, Op: op, Msg: msg}
}

func alreadyRunning(op string, id int) error {
	return &Error{Kind: AlreadyInState, Op: op, Msg: fmt.Sprintf("job-id %d is already running in the background", id)}
}

func syscallError(op string, err error) error {
	return &Error{Kind: SyscallFailure, Op: op, Err: err}
}

func forkError(err error) error {
	return &Error{Kind: ForkFailure, Op: "fork", Err: err}
}

package axis

import "errors"

// ErrWrongState is returned by a command verb when the axis is not in the
// precondition state the verb requires.
var ErrWrongState = errors.New("axis: not in correct state or transition in progress")

// CommandResult is the outcome of a command verb (spec.md §3, Command
// Result).
type CommandResult struct {
	Success bool
	Message string
}

func ok() CommandResult {
	return CommandResult{Success: true}
}

func fail(err error) CommandResult {
	return CommandResult{Success: false, Message: err.Error()}
}

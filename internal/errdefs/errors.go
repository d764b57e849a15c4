// Package errdefs defines the error taxonomy shared by the ptyrun packages.
//
// Fatal conditions carry typed errors so callers can tell which stage of the
// run failed; operations that must never abort the process report their
// failures as BestEffortError instead, which callers log and move past.
package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions without an underlying cause.
var (
	// ErrOperandMissing indicates no command operand was supplied.
	ErrOperandMissing = errors.New("operand missing")

	// ErrStdioNotOpen indicates the master descriptor landed on a
	// standard-stream slot, meaning stdin, stdout or stderr was closed
	// when the process started.
	ErrStdioNotOpen = errors.New("stdin/stdout/stderr are not open")

	// ErrNotControllingTerminal indicates the slave already belongs to
	// another session and could not become the child's controlling
	// terminal.
	ErrNotControllingTerminal = errors.New("cannot become controlling process of slave pseudo-terminal")

	// ErrNotStarted indicates a session operation that needs a running
	// child was called before Start.
	ErrNotStarted = errors.New("session not started")
)

// Compile-time verification that the wrapping error types unwrap.
var (
	_ interface{ Unwrap() error } = (*AllocationError)(nil)
	_ interface{ Unwrap() error } = (*PermissionError)(nil)
	_ interface{ Unwrap() error } = (*NamingError)(nil)
	_ interface{ Unwrap() error } = (*SpawnError)(nil)
	_ interface{ Unwrap() error } = (*ForwardError)(nil)
	_ interface{ Unwrap() error } = (*ChildWaitError)(nil)
	_ interface{ Unwrap() error } = (*BestEffortError)(nil)
)

// AllocationError indicates no master pseudo-terminal could be opened.
type AllocationError struct {
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("cannot open master pseudo-terminal: %v", e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// PermissionError indicates the slave pseudo-terminal could not be granted
// or unlocked. Op is "granted" or "unlocked".
type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("pseudo-terminal permission not %s: %v", e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// NamingError indicates the slave path could not be resolved from the
// master.
type NamingError struct {
	Err error
}

func (e *NamingError) Error() string {
	return fmt.Sprintf("cannot name slave pseudo-terminal: %v", e.Err)
}

func (e *NamingError) Unwrap() error { return e.Err }

// SpawnError indicates the child process could not be created.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("cannot spawn child process: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ForwardError indicates the multiplexed wait inside the forwarding loop
// failed for a reason other than an interrupt. It is fatal to the run.
type ForwardError struct {
	Err error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("cannot find file descriptor to forward: %v", e.Err)
}

func (e *ForwardError) Unwrap() error { return e.Err }

// ChildWaitError indicates the final wait for the child process failed,
// as opposed to the child merely exiting with a nonzero status.
type ChildWaitError struct {
	Err error
}

func (e *ChildWaitError) Error() string {
	return fmt.Sprintf("cannot await child process: %v", e.Err)
}

func (e *ChildWaitError) Unwrap() error { return e.Err }

// BestEffortError wraps a failure from an operation that must never abort
// the process: forwarding-loop writes, terminal mode restoration, window
// geometry propagation. Carriers log these at debug level and continue.
type BestEffortError struct {
	Op  string
	Err error
}

func (e *BestEffortError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BestEffortError) Unwrap() error { return e.Err }

// IsBestEffort reports whether err is, or wraps, a best-effort failure.
func IsBestEffort(err error) bool {
	var be *BestEffortError
	return errors.As(err, &be)
}

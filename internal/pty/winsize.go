package pty

import (
	"os"

	ptylib "github.com/creack/pty"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
)

// Sync copies the window geometry of localOut onto the pty master. Both
// sides are best-effort: a localOut without geometry (not a terminal) or a
// master that rejects the update is reported for logging, never as a fatal
// condition.
func Sync(localOut, master *os.File) error {
	size, err := ptylib.GetsizeFull(localOut)
	if err != nil {
		return &errdefs.BestEffortError{Op: "query window size", Err: err}
	}
	if err := ptylib.Setsize(master, size); err != nil {
		return &errdefs.BestEffortError{Op: "propagate window size", Err: err}
	}
	return nil
}

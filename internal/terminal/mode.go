package terminal

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
)

// Snapshot holds the attributes of a terminal descriptor as they were when
// Capture ran. EnterRaw applies the derived raw attributes; Restore writes
// the originals back.
type Snapshot struct {
	fd    int
	state unix.Termios
	log   zerolog.Logger
}

// Capture records the current attributes of fd. It returns nil when fd is
// not a terminal; callers then skip mode changes entirely.
func Capture(fd int, logger zerolog.Logger) *Snapshot {
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil
	}
	return &Snapshot{fd: fd, state: *state, log: logger}
}

// Raw derives raw-mode attributes from t: break, CR/NL translation and flow
// control off on input, post-processing off on output, echo, canonical line
// editing, extended processing and signal generation off locally, reads of
// one byte with no inter-byte timeout.
func Raw(t unix.Termios) unix.Termios {
	t.Iflag &^= unix.BRKINT | unix.ICRNL | unix.IGNBRK | unix.IGNCR |
		unix.INLCR | unix.IXON | unix.IXOFF | unix.PARMRK
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return t
}

// EnterRaw applies the raw attributes after pending output has drained. On
// failure the terminal keeps its original mode and there is nothing to
// restore.
func (s *Snapshot) EnterRaw() error {
	raw := Raw(s.state)
	if err := unix.IoctlSetTermios(s.fd, unix.TCSETSW, &raw); err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	s.log.Debug().Int("fd", s.fd).Msg("terminal switched to raw mode")
	return nil
}

// Restore writes the captured attributes back with the same drain
// discipline. Restoration is best-effort: the returned error is for the
// caller's log and must not abort the process.
func (s *Snapshot) Restore() error {
	if err := unix.IoctlSetTermios(s.fd, unix.TCSETSW, &s.state); err != nil {
		return &errdefs.BestEffortError{Op: "restore terminal mode", Err: err}
	}
	s.log.Debug().Int("fd", s.fd).Msg("terminal mode restored")
	return nil
}

package pty

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
)

// Master owns the master end of a pseudo-terminal pair.
type Master struct {
	file      *os.File
	slavePath string
	log       zerolog.Logger
}

// Open allocates a master pseudo-terminal, unlocks its slave and resolves
// the slave path. localOut seeds the pair with the current window geometry
// when it is a terminal. The master is close-on-exec and never inherited by
// the child.
func Open(localOut *os.File, logger zerolog.Logger) (*Master, error) {
	file, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, &errdefs.AllocationError{Err: err}
	}

	ok := false
	defer func() {
		if !ok {
			file.Close()
		}
	}()

	// A master on fd 0, 1 or 2 means a standard stream was closed; the
	// child-side redirection would then clobber it.
	if file.Fd() <= 2 {
		return nil, errdefs.ErrStdioNotOpen
	}

	if err := unix.IoctlSetPointerInt(int(file.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		return nil, &errdefs.PermissionError{Op: "unlocked", Err: err}
	}

	ptn, err := unix.IoctlGetInt(int(file.Fd()), unix.TIOCGPTN)
	if err != nil {
		return nil, &errdefs.NamingError{Err: err}
	}

	m := &Master{
		file:      file,
		slavePath: fmt.Sprintf("/dev/pts/%d", ptn),
		log:       logger,
	}

	if err := Sync(localOut, file); err != nil {
		m.log.Debug().Err(err).Msg("initial window-size sync skipped")
	}

	m.log.Debug().Uint64("fd", uint64(file.Fd())).Str("slave", m.slavePath).Msg("master pseudo-terminal allocated")
	ok = true
	return m, nil
}

// OpenSlave opens the slave end for wiring into a child's standard streams.
// O_NOCTTY keeps the open itself from acquiring the terminal; acquisition is
// the child's explicit step during spawn.
func (m *Master) OpenSlave() (*os.File, error) {
	f, err := os.OpenFile(m.slavePath, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot open slave pseudo-terminal: %w", err)
	}
	return f, nil
}

// SlavePath returns the slave device path.
func (m *Master) SlavePath() string { return m.slavePath }

// File returns the master file.
func (m *Master) File() *os.File { return m.file }

// Fd returns the master descriptor for poll registration.
func (m *Master) Fd() int { return int(m.file.Fd()) }

// Close releases the master descriptor.
func (m *Master) Close() error { return m.file.Close() }

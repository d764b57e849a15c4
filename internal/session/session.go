// Package session wires the pseudo-terminal pair, the child process and the
// forwarding engine into one run of a command.
package session

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
	"github.com/PiranhaCodes/ptyrun/internal/pty"
	"github.com/PiranhaCodes/ptyrun/internal/relay"
	"github.com/PiranhaCodes/ptyrun/internal/terminal"
	"github.com/PiranhaCodes/ptyrun/internal/winch"
)

// Options configures a Session. Zero values select the process's standard
// streams, the default buffer capacity and the nop logger.
type Options struct {
	Command    string
	Args       []string
	Stdin      *os.File
	Stdout     *os.File
	BufferSize int
	Logger     *zerolog.Logger
}

// Session runs one command inside a freshly allocated pseudo-terminal.
type Session struct {
	ID string

	opts   Options
	master *pty.Master
	slave  *os.File
	cmd    *exec.Cmd
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New allocates the pseudo-terminal pair for opts and opens its slave. The
// initial window geometry is copied from the local output before anything
// else opens the slave.
func New(opts Options) (*Session, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	id := uuid.New().String()
	logger = logger.With().Str("session", id).Logger()

	master, err := pty.Open(opts.Stdout, logger)
	if err != nil {
		return nil, err
	}

	slave, err := master.OpenSlave()
	if err != nil {
		master.Close()
		return nil, err
	}

	s := &Session{
		ID:     id,
		opts:   opts,
		master: master,
		slave:  slave,
		log:    logger,
	}
	s.log.Debug().
		Str("command", opts.Command).
		Strs("args", opts.Args).
		Str("slave", master.SlavePath()).
		Msg("session prepared")
	return s, nil
}

// Start spawns the child in a new session with the slave as its standard
// streams and controlling terminal, verifies the acquisition took, then
// releases the parent's slave handle.
//
// The child-side sequence (detach into a new session, install the slave as
// the controlling terminal, exec) runs between fork and exec via
// SysProcAttr. It needs Linux-like TIOCSCTTY semantics; on hosts without
// them the spawn fails rather than degrading.
func (s *Session) Start() error {
	cmd := exec.Command(s.opts.Command, s.opts.Args...)
	cmd.Stdin = s.slave
	cmd.Stdout = s.slave
	cmd.Stderr = s.slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // the slave, at the child's stdin slot
	}

	if err := cmd.Start(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			// Image replacement failed; report under the command's name.
			return fmt.Errorf("%s: %w", s.opts.Command, execErr.Err)
		}
		return &errdefs.SpawnError{Err: err}
	}
	s.cmd = cmd

	if err := s.verifyControllingTerminal(); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return err
	}

	// A lingering parent handle would keep the slave open after the child
	// exits and the master would never report EOF.
	if err := s.slave.Close(); err != nil {
		s.log.Debug().Err(err).Msg("slave handle close failed")
	}
	s.slave = nil

	s.log.Debug().Int("pid", cmd.Process.Pid).Msg("child started")
	return nil
}

// verifyControllingTerminal compares the pair's foreground process group
// with the child's pid. The child became session and group leader in Start,
// so any mismatch means another session won the acquisition race.
func (s *Session) verifyControllingTerminal() error {
	pgrp, err := unix.IoctlGetInt(s.master.Fd(), unix.TIOCGPGRP)
	if err != nil || pgrp != s.cmd.Process.Pid {
		return errdefs.ErrNotControllingTerminal
	}
	return nil
}

// Run executes the parent branch: raw mode with scoped restore, the
// forwarding loop until outbound drains, then the child wait. The returned
// status is meaningful only when err is nil. bridge may be nil, in which
// case window resizes are not propagated.
func (s *Session) Run(bridge *winch.Bridge) (int, error) {
	if s.cmd == nil {
		return 0, errdefs.ErrNotStarted
	}

	if snap := terminal.Capture(int(s.opts.Stdin.Fd()), s.log); snap != nil {
		if err := snap.EnterRaw(); err != nil {
			s.log.Debug().Err(err).Msg("raw mode unavailable")
		} else {
			// Scoped release: the snapshot is restored on every exit
			// path from here, fatal forwarding and wait failures
			// included.
			defer func() {
				if err := snap.Restore(); err != nil {
					s.log.Debug().Err(err).Msg("terminal restore failed")
				}
			}()
		}
	}

	wakeFD := -1
	var onWake func()
	if bridge != nil {
		wakeFD = bridge.WakeFD()
		onWake = func() {
			if bridge.Consume() {
				s.resize()
			}
		}
	}

	engine := relay.NewEngine(relay.Config{
		Inbound:  relay.NewChannel("inbound", int(s.opts.Stdin.Fd()), s.master.Fd(), s.opts.BufferSize, s.log),
		Outbound: relay.NewChannel("outbound", s.master.Fd(), int(s.opts.Stdout.Fd()), s.opts.BufferSize, s.log),
		WakeFD:   wakeFD,
		OnWake:   onWake,
		Logger:   s.log,
	})
	if err := engine.Run(); err != nil {
		return 0, err
	}

	return s.wait()
}

// resize re-propagates the local geometry after a window change.
func (s *Session) resize() {
	if err := pty.Sync(s.opts.Stdout, s.master.File()); err != nil {
		s.log.Debug().Err(err).Msg("window-size sync failed")
		return
	}
	s.log.Debug().Msg("window size propagated")
}

// wait blocks for the child and translates its outcome: exit code as-is,
// terminating signal OR'd with 0x80, or a generic failure for anything
// else.
func (s *Session) wait() (int, error) {
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return 0, &errdefs.ChildWaitError{Err: err}
	}

	status, ok := s.cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return 1, nil
	}
	switch {
	case status.Exited():
		s.log.Debug().Int("code", status.ExitStatus()).Msg("child exited")
		return status.ExitStatus(), nil
	case status.Signaled():
		s.log.Debug().Str("signal", status.Signal().String()).Msg("child terminated by signal")
		return int(status.Signal()) | 0x80, nil
	}
	return 1, nil
}

// Close releases the pseudo-terminal handles. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.slave != nil {
		s.slave.Close()
		s.slave = nil
	}
	err := s.master.Close()
	s.log.Debug().Msg("session closed")
	return err
}

package relay

import (
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
)

// DefaultBufferSize is the per-channel buffer capacity in bytes.
const DefaultBufferSize = 8192

// State is the forwarding state of a Channel.
type State uint8

// Channel states. Inactive is terminal: a channel that has seen EOF or a
// source error never resumes.
const (
	StateInactive State = iota
	StateReading
	StateWriting
)

// String returns the state name for log fields.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateReading:
		return "reading"
	case StateWriting:
		return "writing"
	}
	return "unknown"
}

// Channel forwards bytes from a source descriptor to a destination
// descriptor through one fixed-capacity buffer. It alternates between
// Reading (one buffer fill) and Writing (draining, possibly over several
// steps) and retires to Inactive once the source is exhausted.
type Channel struct {
	name  string
	src   int
	dst   int
	state State
	buf   []byte
	pos   int
	end   int
	log   zerolog.Logger
}

// NewChannel returns a Reading channel from src to dst. size selects the
// buffer capacity; zero or negative means DefaultBufferSize. name appears
// only in debug logs.
func NewChannel(name string, src, dst int, size int, logger zerolog.Logger) *Channel {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Channel{
		name:  name,
		src:   src,
		dst:   dst,
		state: StateReading,
		buf:   make([]byte, size),
		log:   logger,
	}
}

// State returns the current forwarding state.
func (c *Channel) State() State { return c.state }

// Interest returns the poll registration for the current state: source
// readability while Reading, destination writability while Writing, nothing
// while Inactive.
func (c *Channel) Interest() (unix.PollFd, bool) {
	switch c.state {
	case StateReading:
		return unix.PollFd{Fd: int32(c.src), Events: unix.POLLIN}, true
	case StateWriting:
		return unix.PollFd{Fd: int32(c.dst), Events: unix.POLLOUT}, true
	}
	return unix.PollFd{}, false
}

// Advance executes at most one step: one buffer fill while Reading or one
// bounded write while Writing. ready reflects the poll verdict for the
// registered descriptor; without it the state is left untouched.
func (c *Channel) Advance(ready bool) {
	if !ready {
		return
	}
	switch c.state {
	case StateReading:
		c.fill()
	case StateWriting:
		c.drain()
	}
}

func (c *Channel) fill() {
	c.pos = 0
	n, err := unix.Read(c.src, c.buf)
	if err != nil {
		// The runtime's preemption signals interrupt blocking reads;
		// only a real failure retires the channel.
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return
		}
		c.log.Debug().Err(err).Str("channel", c.name).Msg("source failed, channel inactive")
		c.state = StateInactive
		return
	}
	if n == 0 {
		c.log.Debug().Str("channel", c.name).Msg("source EOF, channel inactive")
		c.state = StateInactive
		return
	}
	c.end = n
	c.state = StateWriting
}

func (c *Channel) drain() {
	n, err := unix.Write(c.dst, c.buf[c.pos:c.end])
	if err != nil {
		// Write failures are retried on the next readiness, never
		// escalated.
		c.log.Debug().
			Err(&errdefs.BestEffortError{Op: "forward write", Err: err}).
			Str("channel", c.name).
			Msg("write failed, will retry")
		return
	}
	c.pos += n
	if c.pos == c.end {
		c.state = StateReading
	}
}

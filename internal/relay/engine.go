package relay

import (
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
)

// Config assembles an Engine. WakeFD at zero or below disables the wake
// slot. OnWake runs on the loop goroutine whenever the wake descriptor
// fires, before any channel I/O; that iteration performs none.
type Config struct {
	Inbound  *Channel
	Outbound *Channel
	WakeFD   int
	OnWake   func()
	Logger   zerolog.Logger
}

// Engine multiplexes a channel pair over one poll loop.
type Engine struct {
	inbound  *Channel
	outbound *Channel
	wakeFD   int
	onWake   func()
	log      zerolog.Logger
}

// NewEngine builds an Engine from cfg.
func NewEngine(cfg Config) *Engine {
	wakeFD := cfg.WakeFD
	if wakeFD <= 0 {
		wakeFD = -1
	}
	return &Engine{
		inbound:  cfg.Inbound,
		outbound: cfg.Outbound,
		wakeFD:   wakeFD,
		onWake:   cfg.OnWake,
		log:      cfg.Logger,
	}
}

// Run forwards until the outbound channel goes Inactive, then returns nil.
// An interrupted poll is retried; any other poll failure is fatal and
// returned as a ForwardError. Callers restore terminal state via their own
// scoped release regardless of the return path.
func (e *Engine) Run() error {
	fds := make([]unix.PollFd, 0, 3)
	for e.outbound.State() != StateInactive {
		fds = fds[:0]
		wake, in, out := -1, -1, -1
		if e.wakeFD >= 0 {
			wake = len(fds)
			fds = append(fds, unix.PollFd{Fd: int32(e.wakeFD), Events: unix.POLLIN})
		}
		if pfd, ok := e.inbound.Interest(); ok {
			in = len(fds)
			fds = append(fds, pfd)
		}
		if pfd, ok := e.outbound.Interest(); ok {
			out = len(fds)
			fds = append(fds, pfd)
		}

		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return &errdefs.ForwardError{Err: err}
		}

		// A registered descriptor the kernel no longer recognizes can
		// never report readiness; treat it as a failed wait.
		for i := range fds {
			if fds[i].Revents&unix.POLLNVAL != 0 {
				return &errdefs.ForwardError{Err: unix.EBADF}
			}
		}

		if wake >= 0 && ready(fds[wake]) {
			e.drainWake()
			if e.onWake != nil {
				e.onWake()
			}
			continue
		}

		e.inbound.Advance(in >= 0 && ready(fds[in]))
		e.outbound.Advance(out >= 0 && ready(fds[out]))
	}
	e.log.Debug().Stringer("inbound", e.inbound.State()).Msg("outbound drained, forwarding complete")
	return nil
}

// ready treats hangup and error conditions as actionable: the following
// read or write is what observes EOF or the device error and applies the
// right transition.
func ready(pfd unix.PollFd) bool {
	return pfd.Revents&(pfd.Events|unix.POLLHUP|unix.POLLERR) != 0
}

// drainWake empties the non-blocking wake descriptor so one burst of events
// collapses into one callback.
func (e *Engine) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(e.wakeFD, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

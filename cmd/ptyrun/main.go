// Command ptyrun runs a command inside a pseudo-terminal, forwarding bytes
// between the invoking terminal and the child's terminal session while
// preserving raw-mode semantics, window-size changes and the child's exit
// status.
//
// Usage:
//
//	ptyrun [--] command [argument ...]
//
// The exit status is the command's own exit code, or its terminating signal
// number OR'd with 0x80.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/PiranhaCodes/ptyrun/internal/errdefs"
	"github.com/PiranhaCodes/ptyrun/internal/session"
	"github.com/PiranhaCodes/ptyrun/internal/winch"
)

// parseOperands extracts the command and its arguments. A single leading
// "--" is consumed; every remaining token is an operand, including tokens
// that look like options.
func parseOperands(args []string) ([]string, error) {
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) == 0 {
		return nil, errdefs.ErrOperandMissing
	}
	return args, nil
}

// fatal reports err under the invocation name and exits with the generic
// failure status.
func fatal(prog string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prog, err)
	os.Exit(1)
}

func main() {
	prog := filepath.Base(os.Args[0])

	operands, err := parseOperands(os.Args[1:])
	if err != nil {
		fatal(prog, err)
	}

	logger := zerolog.Nop()

	bridge, err := winch.Install(logger)
	if err != nil {
		fatal(prog, err)
	}

	sess, err := session.New(session.Options{
		Command: operands[0],
		Args:    operands[1:],
		Logger:  &logger,
	})
	if err != nil {
		bridge.Close()
		fatal(prog, err)
	}

	if err := sess.Start(); err != nil {
		sess.Close()
		bridge.Close()
		fatal(prog, err)
	}

	status, err := sess.Run(bridge)
	sess.Close()
	bridge.Close()
	if err != nil {
		fatal(prog, err)
	}
	os.Exit(status)
}

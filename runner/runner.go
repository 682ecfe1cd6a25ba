// Package runner executes the external collaborators (tilejson converter,
// proxy control commands) as child processes.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/One-com/gone/log"
	"github.com/pkg/errors"
)

// Runner runs a command line to completion.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// CommandError is returned when an external command could not be started
// or exited unsuccessfully.
type CommandError struct {
	Argv     []string
	ExitCode int // -1 if the process never exited normally
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("command %q exited with status %d", strings.Join(e.Argv, " "), e.ExitCode)
	}
	return fmt.Sprintf("command %q failed: %s", strings.Join(e.Argv, " "), e.Err)
}

// Cause lets github.com/pkg/errors.Cause reach the underlying exec error.
func (e *CommandError) Cause() error { return e.Err }

func (e *CommandError) Unwrap() error { return e.Err }

// Exec runs commands as child processes. The child's output is passed
// through unmodified so diagnostics reach the operator as-is.
type Exec struct {
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

// Run starts argv[0] with the remaining arguments and waits for it.
// Cancelling ctx kills the child.
func (x *Exec) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command line")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = x.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = x.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	log.DEBUG("Running command", "cmd", strings.Join(argv, " "))

	err := cmd.Run()
	if err == nil {
		return nil
	}

	cerr := &CommandError{Argv: append([]string(nil), argv...), ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return cerr
}

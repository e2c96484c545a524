// Package command runs the external programs the generator depends on
// (the cell-vector sizing script, qrstat, qsub) under a timeout.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/10amc-2/disorder/internal/utils"
	"github.com/kballard/go-shellquote"
)

// Runner runs an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExternalCommandError reports a non-zero exit, a start failure, or a timeout.
type ExternalCommandError struct {
	Cmd      string // Full command line
	Output   string // Captured stdout and stderr
	TimedOut bool
	Err      error
}

func (e *ExternalCommandError) Error() string {
	var msg strings.Builder
	if e.TimedOut {
		msg.WriteString(fmt.Sprintf("command timed out: %s", e.Cmd))
	} else {
		msg.WriteString(fmt.Sprintf("command failed: %s: %v", e.Cmd, e.Err))
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg.WriteString(fmt.Sprintf("\n\t%s: %s", utils.StyleHint("Output"), out))
	}
	return msg.String()
}

func (e *ExternalCommandError) Unwrap() error {
	return e.Err
}

// IsExternalCommandError checks if an error is an ExternalCommandError
func IsExternalCommandError(err error) bool {
	var ece *ExternalCommandError
	return errors.As(err, &ece)
}

// Exec runs commands with os/exec.
type Exec struct {
	Timeout time.Duration // Zero means no timeout beyond ctx
}

// Run executes name with args. Stdout is returned; stderr is only kept for errors.
func (e Exec) Run(ctx context.Context, name string, args ...string) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	line := Join(name, args...)
	utils.PrintDebug("Executing: %s", utils.StyleCommand(line))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &ExternalCommandError{
			Cmd:      line,
			Output:   stdout.String() + stderr.String(),
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
	}
	return stdout.String(), nil
}

// Split parses a configured command string such as "sh getsize.sh" into argv.
func Split(command string) ([]string, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", command, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return words, nil
}

// Join quotes name and args into a single shell-safe command line.
func Join(name string, args ...string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}

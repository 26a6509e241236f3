// Package adb drives the Android Debug Bridge command-line tool.
package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
)

// Config contains configuration for the adb client
type Config struct {
	// Path is the adb executable, looked up in PATH if it has no separator.
	Path string

	// Timeout bounds every short adb invocation (devices, shell ls, rm).
	Timeout time.Duration

	// PullTimeout bounds the capture file pull.
	PullTimeout time.Duration

	// StopGrace is how long a capture gets to exit after an interrupt
	// before it is killed.
	StopGrace time.Duration

	// Target is the remote capture file location.
	Target core.RemoteTarget
}

// DefaultConfig returns the default configuration for the adb client
func DefaultConfig() Config {
	return Config{
		Path:        "adb",
		Timeout:     30 * time.Second,
		PullTimeout: 5 * time.Minute,
		StopGrace:   3 * time.Second,
		Target:      core.DefaultRemoteTarget,
	}
}

// waitDelay bounds how long Wait blocks on pipes held open by orphaned
// grandchildren after adb itself has exited.
const waitDelay = 2 * time.Second

// Client implements core.Bridge on top of the adb executable.
type Client struct {
	cfg Config
}

var _ core.Bridge = (*Client)(nil)

// NewClient creates a new adb client. Zero fields in cfg take defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PullTimeout <= 0 {
		cfg.PullTimeout = def.PullTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = def.StopGrace
	}
	cfg.Target = cfg.Target.OrDefault()
	return &Client{cfg: cfg}
}

// Target returns the remote capture location used by this client.
func (c *Client) Target() core.RemoteTarget {
	return c.cfg.Target
}

// CommandError is returned when adb runs but exits non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("adb %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// run executes adb with args, bounded by timeout, and returns its combined
// output. The output is returned even when the error is a *CommandError.
func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.cfg.Path, args...)
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logging.DebugWithFields(logrus.Fields{"args": args}, "Running adb")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBridgeUnavailable, c.cfg.Path, err)
	}
	err := cmd.Wait()
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out.Bytes(), fmt.Errorf("%w: adb %s did not finish within %s", core.ErrBridgeTimeout, strings.Join(args, " "), timeout)
		}
		return out.Bytes(), ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.Bytes(), &CommandError{
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Output:   strings.TrimSpace(out.String()),
			}
		}
		return out.Bytes(), fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return out.Bytes(), nil
}

// deviceArgs prefixes args with the device selector.
func deviceArgs(id core.DeviceID, args ...string) []string {
	return append([]string{"-s", string(id)}, args...)
}

// shellArgs builds the argument list that runs command on the device. adb
// joins everything after "shell" with spaces, so passing the command as one
// argument is equivalent to splitting it.
func shellArgs(id core.DeviceID, command string) []string {
	return deviceArgs(id, "shell", command)
}

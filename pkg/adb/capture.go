package adb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/adbcap/pkg/command"
	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
)

// StartRemoteCapture launches tcpdump on the device through `adb shell`.
// It returns as soon as adb is running; the capture runs until stopped.
func (c *Client) StartRemoteCapture(id core.DeviceID, cfg core.CaptureConfig, out core.OutputFunc) (core.CaptureProcess, error) {
	remote := command.BuildCaptureCommand(c.cfg.Target, cfg)
	args := shellArgs(id, remote)

	cmd := exec.Command(c.cfg.Path, args...)
	cmd.WaitDelay = waitDelay
	lw := &lineWriter{fn: out}
	cmd.Stdout = lw
	cmd.Stderr = lw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBridgeUnavailable, c.cfg.Path, err)
	}

	p := &Process{
		cmd:   cmd,
		args:  args,
		grace: c.cfg.StopGrace,
		done:  make(chan struct{}),
	}
	go p.wait(lw)

	logging.InfoWithFields(logrus.Fields{
		"device": id,
		"pid":    cmd.Process.Pid,
	}, "Remote capture started: %s", remote)

	return p, nil
}

// StopRemoteCapture terminates a capture process started by this client.
func (c *Client) StopRemoteCapture(ctx context.Context, p core.CaptureProcess) error {
	if p == nil {
		return nil
	}
	return p.Stop(ctx)
}

// Process is a running `adb shell tcpdump` invocation.
type Process struct {
	cmd   *exec.Cmd
	args  []string
	grace time.Duration

	done chan struct{}
	err  error

	stopMu sync.Mutex
}

var _ core.CaptureProcess = (*Process)(nil)

// wait is the only caller of cmd.Wait.
func (p *Process) wait(lw *lineWriter) {
	err := p.cmd.Wait()
	lw.Flush()
	p.err = err
	close(p.done)
	logging.DebugWithFields(logrus.Fields{"pid": p.Pid()}, "Capture process exited: %v", err)
}

// Pid returns the adb client process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Args returns the adb arguments the process was started with.
func (p *Process) Args() []string {
	return append([]string(nil), p.args...)
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error, or nil while the process is still running.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Stop interrupts the process, kills it if it has not exited after the
// grace period, and waits for exit until ctx expires.
func (p *Process) Stop(ctx context.Context) error {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	select {
	case <-p.done:
		return nil
	default:
	}

	// Interrupt is not supported on every platform; fall back to kill.
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = p.cmd.Process.Kill()
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	logging.WarnWithFields(logrus.Fields{"pid": p.Pid()}, "Capture process ignored interrupt, killing")
	_ = p.cmd.Process.Kill()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: capture process %d did not exit", core.ErrBridgeTimeout, p.Pid())
	}
}

// lineWriter splits a byte stream into lines for an OutputFunc.
type lineWriter struct {
	mu  sync.Mutex
	fn  core.OutputFunc
	buf []byte
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(b), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	if w.fn == nil {
		return
	}
	w.fn(strings.TrimRight(string(line), "\r"))
}

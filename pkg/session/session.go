// Package session owns the lifecycle of a remote packet capture: start,
// size polling, stop and retrieval.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/irctrakz/adbcap/pkg/capfile"
	"github.com/irctrakz/adbcap/pkg/command"
	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
)

// State is the controller state.
type State int

const (
	Idle State = iota
	Starting
	Capturing
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Capturing:
		return "capturing"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	// DefaultPollInterval is how often the remote file size is queried.
	DefaultPollInterval = 2 * time.Second

	// DefaultStopTimeout bounds waiting for the capture process to exit.
	DefaultStopTimeout = 15 * time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval sets the size polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithStopTimeout bounds the wait for the capture process to exit on Stop.
func WithStopTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.stopTimeout = d
		}
	}
}

// WithListener sets the event listener.
func WithListener(l Listener) Option {
	return func(c *Controller) { c.listener = l }
}

// WithAllowUnsafeFilter disables the filter check, passing filters to the
// remote shell unchecked. Only for callers whose filter text is trusted.
func WithAllowUnsafeFilter(allow bool) Option {
	return func(c *Controller) { c.allowUnsafeFilter = allow }
}

// Controller runs at most one capture session at a time.
type Controller struct {
	bridge            core.Bridge
	pollInterval      time.Duration
	stopTimeout       time.Duration
	allowUnsafeFilter bool
	listener          Listener

	mu    sync.Mutex
	state State
	sess  *Session
}

// Session is the run state of one capture. It is owned by the controller.
type Session struct {
	id      string
	device  core.DeviceID
	cfg     core.CaptureConfig
	started time.Time
	proc    core.CaptureProcess

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// guarded by Controller.mu
	lastSize core.FileSize
}

// Snapshot is a read-only view of the active session.
type Snapshot struct {
	SessionID string
	Device    core.DeviceID
	Config    core.CaptureConfig
	Started   time.Time
	State     State
	LastSize  core.FileSize
}

// Result describes a finished capture.
type Result struct {
	SessionID string
	Device    core.DeviceID
	LocalPath string
	Duration  time.Duration

	// File is set when the pulled file was verified.
	File capfile.Info
}

// NewController creates a controller driving bridge.
func NewController(bridge core.Bridge, opts ...Option) *Controller {
	c := &Controller{
		bridge:       bridge,
		pollInterval: DefaultPollInterval,
		stopTimeout:  DefaultStopTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns a snapshot of the active session, if any.
func (c *Controller) Current() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return Snapshot{State: c.state}, false
	}
	s := c.sess
	return Snapshot{
		SessionID: s.id,
		Device:    s.device,
		Config:    s.cfg,
		Started:   s.started,
		State:     c.state,
		LastSize:  s.lastSize,
	}, true
}

// ListDevices returns the online devices.
func (c *Controller) ListDevices(ctx context.Context) ([]core.DeviceID, error) {
	devices, err := c.bridge.ListDevices(ctx)
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// Start launches a capture on device id. It fails with
// core.ErrInvalidSessionState unless the controller is idle.
func (c *Controller) Start(ctx context.Context, id core.DeviceID, cfg core.CaptureConfig) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: no device selected", core.ErrInvalidSessionState)
	}
	if err := command.CheckInterface(cfg.Interface()); err != nil {
		return "", err
	}
	if !c.allowUnsafeFilter {
		if err := command.CheckFilter(cfg.Filter()); err != nil {
			return "", err
		}
	}

	c.mu.Lock()
	if c.state != Idle {
		st := c.state
		c.mu.Unlock()
		return "", fmt.Errorf("%w: cannot start while %s", core.ErrInvalidSessionState, st)
	}
	c.state = Starting
	c.mu.Unlock()

	s := &Session{
		id:       uuid.NewString(),
		device:   id,
		cfg:      cfg,
		lastSize: core.SizeMissing(),
	}
	fields := logrus.Fields{"device": id, "session": s.id}

	if err := c.bridge.PrepareRemoteDir(ctx, id); err != nil {
		logging.WarnWithFields(fields, "Could not prepare remote capture directory: %v", err)
	}

	proc, err := c.bridge.StartRemoteCapture(id, cfg, func(line string) {
		c.emit(Event{SessionID: s.id, Device: id, Kind: EventOutput, Line: line})
	})
	if err != nil {
		c.mu.Lock()
		c.state = Idle
		c.mu.Unlock()
		logging.ErrorWithFields(fields, "Failed to start capture: %v", err)
		c.emit(Event{SessionID: s.id, Device: id, Kind: EventError, Err: err})
		return "", fmt.Errorf("start capture: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	s.proc = proc
	s.cancel = cancel
	s.started = time.Now()

	logging.InfoWithFields(fields, "Capture started: interface=%s filter=%q", cfg.Interface(), cfg.Filter())
	c.emit(Event{SessionID: s.id, Device: id, Kind: EventStarted})

	// The monitors must be counted before the session becomes visible to
	// Stop and Close, which wait on them.
	s.wg.Add(2)
	go c.poll(pollCtx, s)
	go c.watch(pollCtx, s)

	c.mu.Lock()
	c.sess = s
	c.state = Capturing
	c.mu.Unlock()
	return s.id, nil
}

// Stop ends the capture and retrieves the file to localPath. Every step is
// attempted even if an earlier one failed: stop the process, pull, verify,
// then remove the remote file. The controller is idle afterwards either
// way. Errors from the stop, pull and verify steps are joined; a failed
// remote removal is only reported as an event.
func (c *Controller) Stop(ctx context.Context, localPath string) (*Result, error) {
	c.mu.Lock()
	if c.state != Capturing {
		st := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot stop while %s", core.ErrInvalidSessionState, st)
	}
	s := c.sess
	c.state = Stopping
	c.mu.Unlock()

	fields := logrus.Fields{"device": s.device, "session": s.id}
	c.haltMonitors(s)

	var errs []error
	fail := func(step string, err error) {
		err = fmt.Errorf("%s: %w", step, err)
		logging.ErrorWithFields(fields, "%v", err)
		c.emit(Event{SessionID: s.id, Device: s.device, Kind: EventError, Err: err})
		errs = append(errs, err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, c.stopTimeout)
	if err := c.bridge.StopRemoteCapture(stopCtx, s.proc); err != nil {
		fail("stop capture", err)
	}
	cancel()

	res := &Result{
		SessionID: s.id,
		Device:    s.device,
		LocalPath: localPath,
		Duration:  time.Since(s.started),
	}

	if err := c.bridge.PullCaptureFile(ctx, s.device, localPath); err != nil {
		fail("pull capture file", fmt.Errorf("%w: %w", core.ErrRetrievalIncomplete, err))
	} else if info, err := capfile.Verify(localPath); err != nil {
		fail("verify capture file", err)
	} else {
		res.File = info
		logging.InfoWithFields(fields, "Capture retrieved: %s", info)
	}

	if err := c.bridge.RemoveRemoteCaptureFile(ctx, s.device); err != nil {
		logging.WarnWithFields(fields, "Failed to remove remote capture file: %v", err)
		c.emit(Event{SessionID: s.id, Device: s.device, Kind: EventError, Err: fmt.Errorf("remove remote capture file: %w", err)})
	}

	c.release()
	c.emit(Event{SessionID: s.id, Device: s.device, Kind: EventStopped})
	return res, errors.Join(errs...)
}

// Close releases the active session without retrieving the capture: the
// process is stopped and the remote file is left in place. It is a no-op
// when idle.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return nil
	case Capturing:
	default:
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot close while %s", core.ErrInvalidSessionState, st)
	}
	s := c.sess
	c.state = Stopping
	c.mu.Unlock()

	c.haltMonitors(s)

	stopCtx, cancel := context.WithTimeout(ctx, c.stopTimeout)
	defer cancel()
	err := c.bridge.StopRemoteCapture(stopCtx, s.proc)

	c.release()
	c.emit(Event{SessionID: s.id, Device: s.device, Kind: EventStopped})
	if err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	return nil
}

// haltMonitors cancels the poller and process watcher and waits for them,
// so no size query is in flight while the process is being stopped.
func (c *Controller) haltMonitors(s *Session) {
	s.cancel()
	s.wg.Wait()
}

func (c *Controller) release() {
	c.mu.Lock()
	c.sess = nil
	c.state = Idle
	c.mu.Unlock()
}

// poll queries the remote file size every interval until ctx is cancelled.
func (c *Controller) poll(ctx context.Context, s *Session) {
	defer s.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		size, err := c.bridge.RemoteCaptureFileSize(ctx, s.device)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logging.DebugWithFields(logrus.Fields{"device": s.device}, "Size query failed: %v", err)
			c.emit(Event{SessionID: s.id, Device: s.device, Kind: EventError, Err: fmt.Errorf("query capture size: %w", err)})
			continue
		}

		c.mu.Lock()
		s.lastSize = size
		c.mu.Unlock()
		c.emit(Event{SessionID: s.id, Device: s.device, Kind: EventSize, Size: size})
	}
}

// watch reports a capture process that exits before Stop.
func (c *Controller) watch(ctx context.Context, s *Session) {
	defer s.wg.Done()

	select {
	case <-ctx.Done():
	case <-s.proc.Done():
		err := s.proc.Err()
		logging.WarnWithFields(logrus.Fields{"device": s.device, "session": s.id}, "Capture process exited on its own: %v", err)
		c.emit(Event{SessionID: s.id, Device: s.device, Kind: EventProcessExited, Err: err})
	}
}

func (c *Controller) emit(e Event) {
	if c.listener == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	c.listener(e)
}

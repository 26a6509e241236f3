package session

import (
	"fmt"
	"time"

	"github.com/irctrakz/adbcap/pkg/core"
)

// EventKind classifies controller events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventSize
	EventOutput
	EventProcessExited
	EventError
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventSize:
		return "size"
	case EventOutput:
		return "output"
	case EventProcessExited:
		return "process-exited"
	case EventError:
		return "error"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is reported to the Listener on every poll tick, every line of
// capture output, every error and every lifecycle change.
type Event struct {
	Time      time.Time
	SessionID string
	Device    core.DeviceID
	Kind      EventKind

	// Size is set for EventSize.
	Size core.FileSize

	// Line is set for EventOutput.
	Line string

	// Err is set for EventError, and for EventProcessExited when the
	// process failed.
	Err error
}

// String renders the event as one human-readable line.
func (e Event) String() string {
	switch e.Kind {
	case EventStarted:
		return fmt.Sprintf("capture started on %s (session %s)", e.Device, e.SessionID)
	case EventSize:
		switch e.Size.State {
		case core.SizeKnown:
			return fmt.Sprintf("remote capture file size: %d bytes", e.Size.Bytes)
		case core.SizeNotFound:
			return "remote capture file not created yet"
		default:
			return "remote capture file size unknown: unreadable listing"
		}
	case EventOutput:
		return e.Line
	case EventProcessExited:
		if e.Err != nil {
			return fmt.Sprintf("capture process exited: %v", e.Err)
		}
		return "capture process exited"
	case EventError:
		return fmt.Sprintf("error: %v", e.Err)
	case EventStopped:
		return fmt.Sprintf("capture stopped on %s", e.Device)
	default:
		return e.Kind.String()
	}
}

// Listener receives controller events. It is called from controller
// goroutines and must not call back into the controller synchronously.
type Listener func(Event)

// MultiListener fans events out to every non-nil listener in order.
func MultiListener(ls ...Listener) Listener {
	return func(e Event) {
		for _, l := range ls {
			if l != nil {
				l(e)
			}
		}
	}
}

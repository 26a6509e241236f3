package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// EventTimeFormat prefixes every event log line.
const EventTimeFormat = "2006-01-02 15:04:05"

// EventLog is the append-only capture event log: one plain-text line per
// event, prefixed with the local time. It never rotates and never reports
// write failures. A nil *EventLog discards everything.
type EventLog struct {
	logger *logrus.Logger
	file   *os.File
}

// OpenEventLog opens path for appending, creating it if needed. If the file
// cannot be opened the returned log silently discards events.
func OpenEventLog(path string) *EventLog {
	l := newEventLog(io.Discard)
	if path == "" {
		return l
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		Warnf("Event log disabled: %v", err)
		return l
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		Warnf("Event log disabled: %v", err)
		return l
	}
	l.file = f
	l.logger.SetOutput(swallowWriter{f})
	return l
}

// NewEventLog writes events to w. Write errors from w are ignored.
func NewEventLog(w io.Writer) *EventLog {
	return newEventLog(swallowWriter{w})
}

func newEventLog(w io.Writer) *EventLog {
	lg := logrus.New()
	lg.SetFormatter(eventFormatter{})
	lg.SetOutput(w)
	lg.SetLevel(logrus.InfoLevel)
	return &EventLog{logger: lg}
}

// Printf appends one line to the log.
func (l *EventLog) Printf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.logger.Infof(format, args...)
}

// Close closes the underlying file, if any. Errors are ignored.
func (l *EventLog) Close() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	l.file = nil
	l.logger.SetOutput(io.Discard)
}

// eventFormatter renders "<local time> <message>\n" with no level or fields.
type eventFormatter struct{}

func (eventFormatter) Format(e *logrus.Entry) ([]byte, error) {
	msg := strings.ReplaceAll(strings.TrimRight(e.Message, "\r\n"), "\n", " ")
	b := make([]byte, 0, len(EventTimeFormat)+len(msg)+2)
	b = e.Time.Local().AppendFormat(b, EventTimeFormat)
	b = append(b, ' ')
	b = append(b, msg...)
	return append(b, '\n'), nil
}

// swallowWriter reports every write as complete so logrus never complains.
type swallowWriter struct{ w io.Writer }

func (s swallowWriter) Write(p []byte) (int, error) {
	_, _ = s.w.Write(p)
	return len(p), nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/session"
)

// eventRecord is the JSON form of a session event.
type eventRecord struct {
	Timestamp string `json:"ts"`
	Kind      string `json:"kind"`
	Session   string `json:"session,omitempty"`
	Device    string `json:"device,omitempty"`
	SizeState string `json:"size_state,omitempty"`
	Bytes     *int64 `json:"bytes,omitempty"`
	Line      string `json:"line,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message"`
}

// resultRecord is the JSON form of a finished capture.
type resultRecord struct {
	Timestamp string  `json:"ts"`
	Kind      string  `json:"kind"`
	Session   string  `json:"session"`
	Device    string  `json:"device"`
	Path      string  `json:"path"`
	Seconds   float64 `json:"seconds"`
	Bytes     int64   `json:"bytes"`
	Format    string  `json:"format"`
	LinkType  string  `json:"link_type"`
	Packets   int     `json:"packets"`
	Truncated bool    `json:"truncated"`
}

// reporter prints session events to the console as text lines or JSON
// objects, one per line.
type reporter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func newReporter(w io.Writer, format string) *reporter {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &reporter{w: w, format: format}
}

func (r *reporter) event(e session.Event) {
	if r.format != "json" {
		r.printf("%s %s\n", e.Time.Format(time.TimeOnly), e)
		return
	}

	rec := eventRecord{
		Timestamp: e.Time.UTC().Format(time.RFC3339),
		Kind:      e.Kind.String(),
		Session:   e.SessionID,
		Device:    string(e.Device),
		Line:      e.Line,
		Message:   e.String(),
	}
	if e.Kind == session.EventSize {
		rec.SizeState = e.Size.State.String()
		if e.Size.Known() {
			n := e.Size.Bytes
			rec.Bytes = &n
		}
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	r.json(rec)
}

func (r *reporter) devices(ids []core.DeviceID) {
	if r.format == "json" {
		if ids == nil {
			ids = []core.DeviceID{}
		}
		r.json(ids)
		return
	}
	if len(ids) == 0 {
		r.printf("no devices online\n")
		return
	}
	for _, id := range ids {
		r.printf("%s\n", id)
	}
}

func (r *reporter) result(res *session.Result) {
	if r.format != "json" {
		r.printf("saved %s (%s)\n", res.File, res.Duration.Round(time.Millisecond))
		return
	}
	r.json(resultRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Kind:      "result",
		Session:   res.SessionID,
		Device:    string(res.Device),
		Path:      res.LocalPath,
		Seconds:   res.Duration.Seconds(),
		Bytes:     res.File.Size,
		Format:    res.File.Format,
		LinkType:  res.File.LinkType.String(),
		Packets:   res.File.Packets,
		Truncated: res.File.Truncated,
	})
}

func (r *reporter) json(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.printf("%s\n", b)
}

func (r *reporter) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format, args...)
}

// defaultOutputPath names a timestamped capture file in dir, or in the
// default output directory when dir is empty.
func defaultOutputPath(dir string, now time.Time) string {
	if dir == "" {
		dir = defaultOutputDir()
	}
	return filepath.Join(dir, "capture_"+now.Format("20060102-150405")+".pcap")
}

// defaultOutputDir prefers the desktop, then home, then the working directory.
func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	desktop := filepath.Join(home, "Desktop")
	if st, err := os.Stat(desktop); err == nil && st.IsDir() {
		return desktop
	}
	return home
}

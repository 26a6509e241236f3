package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventLine = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} (.*)$`)

func TestEventLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")

	first := OpenEventLog(path)
	first.Printf("capture started on %s", "ABC123")
	first.Close()

	second := OpenEventLog(path)
	second.Printf("remote file size: %d bytes", 48213)
	second.Printf("multi\nline\n")
	second.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)

	want := []string{"capture started on ABC123", "remote file size: 48213 bytes", "multi line"}
	for i, line := range lines {
		m := eventLine.FindStringSubmatch(line)
		require.NotNil(t, m, "line %q has no timestamp prefix", line)
		assert.Equal(t, want[i], m[1])
	}
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestEventLogSwallowsWriteErrors(t *testing.T) {
	var stderr bytes.Buffer
	originalOutput := logger.Out
	logger.SetOutput(&stderr)
	defer logger.SetOutput(originalOutput)

	w := &failingWriter{}
	l := NewEventLog(w)
	assert.NotPanics(t, func() {
		l.Printf("one")
		l.Printf("two")
	})
	assert.Equal(t, 2, w.calls)
	l.Close()
}

func TestEventLogUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// A path below a regular file can never be created.
	l := OpenEventLog(filepath.Join(blocker, "sub", "capture.log"))
	assert.NotNil(t, l)
	assert.NotPanics(t, func() { l.Printf("dropped") })
	l.Close()
}

func TestNilEventLog(t *testing.T) {
	var l *EventLog
	assert.NotPanics(t, func() {
		l.Printf("ignored")
		l.Close()
	})
}

// Package adbtest provides a scriptable fake adb executable for tests.
//
// The fake understands the subset of adb the capture tooling uses: devices,
// pull, and shell with tcpdump, ls -l, rm -f and mkdir -p. Remote files live
// in a local directory keyed by base name, and every invocation is appended
// to a call log.
package adbtest

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// DefaultDevices is the `adb devices` output a new fake reports.
const DefaultDevices = "List of devices attached\nABC123\tdevice\nDEF456\toffline\n\n"

const script = `#!/bin/sh
D='@DIR@'
R="$D/remote"
printf '%s\n' "$*" >> "$D/calls.log"
if [ "$1" = "devices" ]; then cat "$D/devices.txt"; exit 0; fi
if [ "$1" = "-s" ]; then shift 2; fi
verb="$1"; shift
case "$verb" in
shell)
  set -f
  set -- $1
  tool="$1"
  if [ -f "$D/hang-$tool" ]; then exec sleep 30; fi
  case "$tool" in
  tcpdump)
    out=""
    while [ $# -gt 0 ]; do
      if [ "$1" = "-w" ]; then out="$2"; fi
      shift
    done
    echo "tcpdump: listening on any, link-type LINUX_SLL (Linux cooked v1), snapshot length 262144 bytes"
    if [ -f "$D/capture.src" ]; then cp "$D/capture.src" "$R/$(basename "$out")"; fi
    if [ -f "$D/exit-tcpdump" ]; then echo "tcpdump: any: You don't have permission to capture on that device" >&2; exit 1; fi
    trap 'exit 0' INT TERM
    while :; do sleep 0.05; done
    ;;
  ls)
    if [ -f "$D/ls-output" ]; then cat "$D/ls-output"; exit 0; fi
    f="$R/$(basename "$3")"
    if [ -f "$f" ]; then
      n=$(wc -c < "$f" | tr -d ' ')
      echo "-rw-rw---- 1 root sdcard_rw $n 2024-01-01 00:00 $3"
      exit 0
    fi
    echo "ls: $3: No such file or directory"
    exit 1
    ;;
  rm)
    rm -f "$R/$(basename "$3")"
    exit 0
    ;;
  mkdir)
    exit 0
    ;;
  esac
  ;;
pull)
  if [ -f "$D/hang-pull" ]; then exec sleep 30; fi
  f="$R/$(basename "$1")"
  if [ ! -f "$f" ]; then
    echo "adb: error: failed to stat remote object '$1': No such file or directory" >&2
    exit 1
  fi
  cp "$f" "$2"
  echo "$1: 1 file pulled, 0 skipped."
  exit 0
  ;;
esac
echo "adb: unknown command $verb" >&2
exit 1
`

// FakeADB is a fake adb installed in a temporary directory.
type FakeADB struct {
	// Path is the fake executable; pass it as the adb path.
	Path string

	dir string
	t   testing.TB
}

// New installs a fake adb. Tests using it are skipped on Windows.
func New(t testing.TB) *FakeADB {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb needs a POSIX shell")
	}
	dir := t.TempDir()
	f := &FakeADB{Path: filepath.Join(dir, "adb"), dir: dir, t: t}
	f.mustWrite(f.Path, strings.ReplaceAll(script, "@DIR@", dir), 0755)
	f.mustWrite(filepath.Join(dir, "devices.txt"), DefaultDevices, 0644)
	f.mustWrite(filepath.Join(dir, "calls.log"), "", 0644)
	if err := os.MkdirAll(filepath.Join(dir, "remote"), 0755); err != nil {
		t.Fatalf("adbtest: %v", err)
	}
	return f
}

// SetDevices replaces the `adb devices` output.
func (f *FakeADB) SetDevices(out string) {
	f.mustWrite(filepath.Join(f.dir, "devices.txt"), out, 0644)
}

// SetCapture sets the bytes tcpdump "writes" to the remote capture file
// when a capture starts.
func (f *FakeADB) SetCapture(data []byte) {
	f.mustWrite(filepath.Join(f.dir, "capture.src"), string(data), 0644)
}

// SetRemoteFile places a file on the fake device under its base name.
func (f *FakeADB) SetRemoteFile(name string, data []byte) {
	f.mustWrite(filepath.Join(f.dir, "remote", name), string(data), 0644)
}

// RemoteFileExists reports whether the fake device holds a file named name.
func (f *FakeADB) RemoteFileExists(name string) bool {
	_, err := os.Stat(filepath.Join(f.dir, "remote", name))
	return err == nil
}

// SetListing makes `shell ls` print out verbatim.
func (f *FakeADB) SetListing(out string) {
	f.mustWrite(filepath.Join(f.dir, "ls-output"), out, 0644)
}

// Hang makes the given shell tool ("ls", "rm", "tcpdump", ...) or "pull"
// block for a long time.
func (f *FakeADB) Hang(verb string) {
	f.mustWrite(filepath.Join(f.dir, "hang-"+verb), "", 0644)
}

// FailCapture makes tcpdump exit with an error right after starting.
func (f *FakeADB) FailCapture() {
	f.mustWrite(filepath.Join(f.dir, "exit-tcpdump"), "", 0644)
}

// Calls returns every invocation so far, arguments joined by spaces.
func (f *FakeADB) Calls() []string {
	data, err := os.ReadFile(filepath.Join(f.dir, "calls.log"))
	if err != nil {
		f.t.Fatalf("adbtest: %v", err)
	}
	s := strings.TrimRight(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// CallIndex returns the index of the first call with the given prefix, or -1.
func (f *FakeADB) CallIndex(prefix string) int {
	for i, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

func (f *FakeADB) mustWrite(path, data string, mode os.FileMode) {
	if err := os.WriteFile(path, []byte(data), mode); err != nil {
		f.t.Fatalf("adbtest: %v", err)
	}
}

// PcapFixture returns a small classic pcap file holding n dummy frames.
func PcapFixture(n int) []byte {
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	_ = w.WriteFileHeader(65536, layers.LinkTypeLinuxSLL)
	frame := make([]byte, 60)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		frame[0] = byte(i)
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		_ = w.WritePacket(ci, frame)
	}
	return buf.Bytes()
}

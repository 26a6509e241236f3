package core

import (
	"path"
	"strings"
)

// DefaultInterface is the capture interface used when none is given.
const DefaultInterface = "any"

// CaptureConfig describes one remote capture. It is immutable once built;
// use NewCaptureConfig to construct it.
type CaptureConfig struct {
	iface  string
	filter string
}

// NewCaptureConfig builds a capture configuration. An empty interface name
// falls back to DefaultInterface. Surrounding whitespace is trimmed from both
// values, so a whitespace-only filter means no filter.
func NewCaptureConfig(iface, filter string) CaptureConfig {
	return CaptureConfig{
		iface:  strings.TrimSpace(iface),
		filter: strings.TrimSpace(filter),
	}
}

// Interface returns the capture interface name. It is never empty.
func (c CaptureConfig) Interface() string {
	if c.iface == "" {
		return DefaultInterface
	}
	return c.iface
}

// Filter returns the raw filter clause, or "" when there is none.
func (c CaptureConfig) Filter() string {
	return c.filter
}

// HasFilter reports whether a filter clause is set.
func (c CaptureConfig) HasFilter() bool {
	return c.filter != ""
}

// DeviceID identifies a connected device as reported by device enumeration.
type DeviceID string

// RemoteTarget is the location of the capture file on the device. The
// command builder and the bridge client must share one value: tcpdump writes
// to it and every later pull, stat and remove reads it.
type RemoteTarget struct {
	// Dir is the remote directory holding the capture file.
	Dir string `json:"dir" yaml:"dir"`

	// File is the capture file name.
	File string `json:"file" yaml:"file"`
}

// DefaultRemoteTarget is where captures are written unless configured otherwise.
var DefaultRemoteTarget = RemoteTarget{
	Dir:  "/storage/my_capture_Data",
	File: "capture.pcap",
}

// Path returns the full remote path of the capture file. Remote paths are
// always slash separated regardless of the host OS.
func (t RemoteTarget) Path() string {
	return path.Join(t.Dir, t.File)
}

// IsZero reports whether the target is unset.
func (t RemoteTarget) IsZero() bool {
	return t.Dir == "" && t.File == ""
}

// OrDefault returns t, or DefaultRemoteTarget when t is unset.
func (t RemoteTarget) OrDefault() RemoteTarget {
	if t.IsZero() {
		return DefaultRemoteTarget
	}
	return t
}

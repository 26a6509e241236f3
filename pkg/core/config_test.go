package core

import (
	"testing"
)

// TestCaptureConfigDefaults tests the interface fallback and filter trimming.
func TestCaptureConfigDefaults(t *testing.T) {
	tests := []struct {
		name       string
		iface      string
		filter     string
		wantIface  string
		wantFilter string
	}{
		{"empty interface", "", "", "any", ""},
		{"whitespace interface", "  ", "", "any", ""},
		{"explicit interface", "wlan0", "", "wlan0", ""},
		{"filter kept", "any", "port 53", "any", "port 53"},
		{"filter trimmed", "any", "  -X  ", "any", "-X"},
		{"whitespace filter", "rmnet0", "\t ", "rmnet0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewCaptureConfig(tt.iface, tt.filter)
			if cfg.Interface() != tt.wantIface {
				t.Errorf("Expected interface %q, got %q", tt.wantIface, cfg.Interface())
			}
			if cfg.Filter() != tt.wantFilter {
				t.Errorf("Expected filter %q, got %q", tt.wantFilter, cfg.Filter())
			}
			if cfg.HasFilter() != (tt.wantFilter != "") {
				t.Errorf("HasFilter mismatch for filter %q", tt.wantFilter)
			}
		})
	}
}

// TestCaptureConfigZeroValue tests that the zero value still has an interface.
func TestCaptureConfigZeroValue(t *testing.T) {
	var cfg CaptureConfig
	if cfg.Interface() != DefaultInterface {
		t.Errorf("Expected zero value interface %q, got %q", DefaultInterface, cfg.Interface())
	}
	if cfg.HasFilter() {
		t.Error("Zero value should have no filter")
	}
}

// TestRemoteTarget tests the remote path helpers.
func TestRemoteTarget(t *testing.T) {
	if got := DefaultRemoteTarget.Path(); got != "/storage/my_capture_Data/capture.pcap" {
		t.Errorf("Unexpected default remote path %q", got)
	}

	var zero RemoteTarget
	if !zero.IsZero() {
		t.Error("Expected zero target to report IsZero")
	}
	if zero.OrDefault() != DefaultRemoteTarget {
		t.Errorf("Expected OrDefault to return the default target, got %+v", zero.OrDefault())
	}

	custom := RemoteTarget{Dir: "/sdcard/caps/", File: "run.pcap"}
	if custom.OrDefault() != custom {
		t.Error("OrDefault replaced a configured target")
	}
	if custom.Path() != "/sdcard/caps/run.pcap" {
		t.Errorf("Unexpected custom path %q", custom.Path())
	}
}

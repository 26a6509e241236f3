package core

import (
	"testing"
)

// TestFileSize tests the tri-state size result.
func TestFileSize(t *testing.T) {
	known := SizeOf(0)
	if !known.Known() || known.Bytes != 0 {
		t.Errorf("Expected a known zero size, got %+v", known)
	}
	if known.String() != "0 bytes" {
		t.Errorf("Unexpected string %q", known.String())
	}

	missing := SizeMissing()
	if missing.Known() {
		t.Error("A missing file must not report a known size")
	}
	if missing.String() != "not-found" {
		t.Errorf("Unexpected string %q", missing.String())
	}

	bad := SizeUnparsable()
	if bad.Known() || bad.State != SizeParseError {
		t.Errorf("Expected parse error state, got %+v", bad)
	}
	if missing == known || bad == known || bad == missing {
		t.Error("Size states must be distinguishable")
	}

	if SizeState(42).String() != "SizeState(42)" {
		t.Errorf("Unexpected unknown state string %q", SizeState(42).String())
	}
}

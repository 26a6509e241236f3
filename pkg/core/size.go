package core

import "fmt"

// SizeState tells how a remote file size query turned out.
type SizeState int

const (
	// SizeKnown means Bytes holds the file size.
	SizeKnown SizeState = iota
	// SizeNotFound means the remote file does not exist.
	SizeNotFound
	// SizeParseError means the listing could not be parsed.
	SizeParseError
)

// String returns the state name.
func (s SizeState) String() string {
	switch s {
	case SizeKnown:
		return "known"
	case SizeNotFound:
		return "not-found"
	case SizeParseError:
		return "parse-error"
	default:
		return fmt.Sprintf("SizeState(%d)", int(s))
	}
}

// FileSize is the result of a remote size query. A zero-byte file, a
// missing file and an unreadable listing are three different results.
type FileSize struct {
	State SizeState
	Bytes int64
}

// SizeOf returns a known size of n bytes.
func SizeOf(n int64) FileSize {
	return FileSize{State: SizeKnown, Bytes: n}
}

// SizeMissing returns the result for a file that does not exist.
func SizeMissing() FileSize {
	return FileSize{State: SizeNotFound}
}

// SizeUnparsable returns the result for a listing that could not be parsed.
func SizeUnparsable() FileSize {
	return FileSize{State: SizeParseError}
}

// Known reports whether Bytes is meaningful.
func (f FileSize) Known() bool {
	return f.State == SizeKnown
}

func (f FileSize) String() string {
	if f.State == SizeKnown {
		return fmt.Sprintf("%d bytes", f.Bytes)
	}
	return f.State.String()
}

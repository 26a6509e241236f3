package core

import "errors"

// Error kinds shared by the bridge client and the session controller.
// Returned errors wrap one of these; test with errors.Is.
var (
	// ErrBridgeUnavailable means the adb executable could not be launched.
	ErrBridgeUnavailable = errors.New("bridge unavailable")

	// ErrBridgeTimeout means an adb invocation exceeded its time bound.
	ErrBridgeTimeout = errors.New("bridge timeout")

	// ErrInvalidSessionState means a controller call was made in the wrong state.
	ErrInvalidSessionState = errors.New("invalid session state")

	// ErrRetrievalIncomplete means the pulled capture file is missing or unusable.
	ErrRetrievalIncomplete = errors.New("retrieval incomplete")

	// ErrParse means adb output could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrUnsafeFilter means a filter contains remote shell control characters.
	ErrUnsafeFilter = errors.New("unsafe filter expression")

	// ErrUnsafeArgument means an interface name or remote path could be
	// read by the remote shell as more than one word.
	ErrUnsafeArgument = errors.New("unsafe command argument")
)

package core

import "context"

// OutputFunc receives one line of output from a running capture process.
type OutputFunc func(line string)

// Bridge is the device bridge: everything that talks to adb.
type Bridge interface {
	// ListDevices returns the online devices in the order adb reports them.
	ListDevices(ctx context.Context) ([]DeviceID, error)

	// PrepareRemoteDir creates the remote capture directory if needed.
	PrepareRemoteDir(ctx context.Context, id DeviceID) error

	// StartRemoteCapture launches the remote capture and returns once the
	// process is running. Output lines are passed to out as they arrive.
	StartRemoteCapture(id DeviceID, cfg CaptureConfig, out OutputFunc) (CaptureProcess, error)

	// StopRemoteCapture terminates the capture process and waits for it to exit.
	// It is a no-op for a process that has already exited.
	StopRemoteCapture(ctx context.Context, p CaptureProcess) error

	// PullCaptureFile copies the remote capture file to localPath.
	PullCaptureFile(ctx context.Context, id DeviceID, localPath string) error

	// RemoveRemoteCaptureFile deletes the remote capture file.
	RemoveRemoteCaptureFile(ctx context.Context, id DeviceID) error

	// RemoteCaptureFileSize reports the size of the remote capture file.
	// A non-nil error means adb itself failed, not that the file is missing.
	RemoteCaptureFileSize(ctx context.Context, id DeviceID) (FileSize, error)
}

// CaptureProcess is a handle on a running remote capture.
type CaptureProcess interface {
	// Pid returns the local process id of the adb client.
	Pid() int

	// Done is closed once the process has exited.
	Done() <-chan struct{}

	// Err returns the exit error once Done is closed.
	Err() error

	// Stop terminates the process and waits for exit. Safe to call repeatedly.
	Stop(ctx context.Context) error
}

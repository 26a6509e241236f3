package adb

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
)

// sizeField is the index of the byte size in a long-format listing.
const sizeField = 4

// PrepareRemoteDir creates the remote capture directory.
func (c *Client) PrepareRemoteDir(ctx context.Context, id core.DeviceID) error {
	_, err := c.run(ctx, c.cfg.Timeout, shellArgs(id, "mkdir -p "+c.cfg.Target.Dir)...)
	return err
}

// PullCaptureFile copies the remote capture file to localPath, creating the
// local directory if needed.
func (c *Client) PullCaptureFile(ctx context.Context, id core.DeviceID, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}
	out, err := c.run(ctx, c.cfg.PullTimeout, deviceArgs(id, "pull", c.cfg.Target.Path(), localPath)...)
	if err != nil {
		return err
	}
	logging.InfoWithFields(logrus.Fields{"device": id, "local": localPath}, "Pulled capture file: %s", lastLine(out))
	return nil
}

// RemoveRemoteCaptureFile deletes the remote capture file.
func (c *Client) RemoveRemoteCaptureFile(ctx context.Context, id core.DeviceID) error {
	_, err := c.run(ctx, c.cfg.Timeout, shellArgs(id, "rm -f "+c.cfg.Target.Path())...)
	return err
}

// RemoteCaptureFileSize lists the remote capture file and returns its size.
// A listing that ran but could not be read yields SizeUnparsable, a missing
// file yields SizeMissing; only adb failures return an error.
func (c *Client) RemoteCaptureFileSize(ctx context.Context, id core.DeviceID) (core.FileSize, error) {
	out, err := c.run(ctx, c.cfg.Timeout, shellArgs(id, "ls -l "+c.cfg.Target.Path())...)
	if err != nil {
		// Older adb versions exit zero for a failed ls, newer ones do not.
		// Either way the listing text decides.
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) {
			return core.FileSize{}, err
		}
	}
	return ParseFileSize(out), nil
}

// ParseFileSize reads the size column from `ls -l` output for one file.
func ParseFileSize(out []byte) core.FileSize {
	if bytes.Contains(out, []byte("No such file")) {
		return core.SizeMissing()
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) <= sizeField {
			return core.SizeUnparsable()
		}
		n, err := strconv.ParseInt(fields[sizeField], 10, 64)
		if err != nil || n < 0 {
			return core.SizeUnparsable()
		}
		return core.SizeOf(n)
	}
	return core.SizeUnparsable()
}

func lastLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

package adb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
)

// onlineMarker appears on a `adb devices` line iff the device is usable.
// The leading tab keeps the "List of devices attached" header from matching.
const onlineMarker = "\tdevice"

// ListDevices returns the online devices in adb's output order.
func (c *Client) ListDevices(ctx context.Context) ([]core.DeviceID, error) {
	out, err := c.run(ctx, c.cfg.Timeout, "devices")
	if err != nil {
		return nil, err
	}
	devices, err := ParseDevices(out)
	if err != nil {
		return nil, err
	}
	logging.DebugWithFields(logrus.Fields{"count": len(devices)}, "Enumerated devices")
	return devices, nil
}

// ParseDevices extracts online device identifiers from `adb devices` output.
func ParseDevices(out []byte) ([]core.DeviceID, error) {
	devices := []core.DeviceID{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if !strings.Contains(line, onlineMarker) {
			continue
		}
		id, _, _ := strings.Cut(line, "\t")
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: device line %d has no identifier: %q", core.ErrParse, n, line)
		}
		devices = append(devices, core.DeviceID(id))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
	}
	return devices, nil
}

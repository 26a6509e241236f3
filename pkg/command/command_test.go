package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irctrakz/adbcap/pkg/core"
)

const baseCommand = "tcpdump -i any -w /storage/my_capture_Data/capture.pcap"

func TestBuildCaptureCommandNoFilter(t *testing.T) {
	cmd := BuildCaptureCommand(core.DefaultRemoteTarget, core.NewCaptureConfig("", ""))
	assert.Equal(t, baseCommand, cmd)
	assert.False(t, strings.HasSuffix(cmd, " "), "no trailing separator expected")
}

func TestBuildCaptureCommandWithFilter(t *testing.T) {
	filters := []string{"-X", "port 53", "tcp and host 10.0.0.1", "'udp port 443'", "(icmp)"}
	for _, f := range filters {
		cmd := BuildCaptureCommand(core.DefaultRemoteTarget, core.NewCaptureConfig("any", f))
		assert.Equal(t, baseCommand+" "+f, cmd)
		assert.Len(t, cmd, len(baseCommand)+1+len(f))
	}
}

func TestBuildCaptureCommandInterfaceAndTarget(t *testing.T) {
	target := core.RemoteTarget{Dir: "/data/local/tmp", File: "wlan.pcap"}
	cmd := BuildCaptureCommand(target, core.NewCaptureConfig("wlan0", ""))
	assert.Equal(t, "tcpdump -i wlan0 -w /data/local/tmp/wlan.pcap", cmd)
}

func TestCheckFilter(t *testing.T) {
	allowed := []string{"", "-X", "port 53", "tcp and (port 80 or port 443)", "'host 1.1.1.1'", "-s 0 -vv"}
	for _, f := range allowed {
		assert.NoError(t, CheckFilter(f), "filter %q", f)
	}

	rejected := []string{"; rm -rf /", "port 53 && reboot", "port 53 | nc x 1", "$(id)", "`id`", "> /dev/null", "port 1\nreboot", "< in"}
	for _, f := range rejected {
		err := CheckFilter(f)
		assert.Error(t, err, "filter %q", f)
		assert.True(t, errors.Is(err, core.ErrUnsafeFilter))
	}
}

func TestCheckInterface(t *testing.T) {
	for _, name := range []string{"any", "wlan0", "rmnet_data0", "eth0.100", "bond0:1", "veth-a@if3"} {
		assert.NoError(t, CheckInterface(name), name)
	}
	for _, name := range []string{"", "wlan0;reboot", "wlan0 -w /sdcard/x", "$(id)", "eth0|sh", "a`b`", "wlan0\nreboot"} {
		err := CheckInterface(name)
		assert.True(t, errors.Is(err, core.ErrUnsafeArgument), "%q: got %v", name, err)
	}
}

func TestCheckRemotePath(t *testing.T) {
	assert.NoError(t, CheckRemotePath(core.DefaultRemoteTarget.Path()))
	assert.NoError(t, CheckRemotePath("/sdcard/caps/run-1.pcap"))

	for _, p := range []string{"/sdcard/my caps/c.pcap", "/sdcard;reboot/c.pcap", "/sdcard/$(id).pcap", "/sdcard/c.pcap&", "/sdcard/*.pcap", "/sdcard/'c'.pcap"} {
		err := CheckRemotePath(p)
		assert.True(t, errors.Is(err, core.ErrUnsafeArgument), "%q: got %v", p, err)
	}
}

// Package command builds the remote tcpdump command line.
package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/irctrakz/adbcap/pkg/core"
)

// CaptureTool is the capture utility invoked on the device.
const CaptureTool = "tcpdump"

// BuildCaptureCommand returns the remote shell command that writes a capture
// of cfg to target. A non-empty filter is appended verbatim after a single
// space; it is not escaped, so callers that accept untrusted filters should
// run CheckFilter first.
func BuildCaptureCommand(target core.RemoteTarget, cfg core.CaptureConfig) string {
	cmd := fmt.Sprintf("%s -i %s -w %s", CaptureTool, cfg.Interface(), target.Path())
	if cfg.HasFilter() {
		cmd += " " + cfg.Filter()
	}
	return cmd
}

// shellControlChars end or redirect a remote shell command.
const shellControlChars = ";&|`$<>\n\r"

// CheckFilter rejects filters that would let the remote shell run anything
// besides tcpdump. Quotes and parentheses are allowed.
func CheckFilter(filter string) error {
	if i := strings.IndexAny(filter, shellControlChars); i >= 0 {
		return fmt.Errorf("%w: character %q at offset %d", core.ErrUnsafeFilter, filter[i], i)
	}
	return nil
}

// interfaceName covers Linux interface names, VLAN and alias suffixes
// included (wlan0, rmnet_data0, eth0.100, bond0:1).
var interfaceName = regexp.MustCompile(`^[A-Za-z0-9_.:@-]+$`)

// CheckInterface rejects interface names that are not a single plain word.
// Unlike filters there is no opt-out: no real interface needs anything else.
func CheckInterface(name string) error {
	if !interfaceName.MatchString(name) {
		return fmt.Errorf("%w: interface %q", core.ErrUnsafeArgument, name)
	}
	return nil
}

// CheckRemotePath rejects remote paths the device shell would split or
// interpret. The path is spliced unquoted into every remote command.
func CheckRemotePath(p string) error {
	if i := strings.IndexAny(p, shellControlChars+" \t'\"\\*?"); i >= 0 {
		return fmt.Errorf("%w: remote path %q has %q at offset %d", core.ErrUnsafeArgument, p, p[i], i)
	}
	return nil
}

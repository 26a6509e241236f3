// Package capfile checks that a retrieved capture file is usable.
//
// It reads only the file header and record framing; packet contents are
// never decoded.
package capfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/irctrakz/adbcap/pkg/core"
)

// Info describes a verified capture file.
type Info struct {
	Path      string
	Size      int64
	Format    string // "pcap" or "pcapng"
	LinkType  layers.LinkType
	SnapLen   uint32
	Packets   int
	Truncated bool // the last record was cut short
}

// Verify stats and scans the capture file at path. It fails with
// core.ErrRetrievalIncomplete when the file is missing, empty or has no
// readable capture header.
func Verify(path string) (Info, error) {
	info := Info{Path: path}

	st, err := os.Stat(path)
	if err != nil {
		return info, fmt.Errorf("%w: %v", core.ErrRetrievalIncomplete, err)
	}
	if st.IsDir() {
		return info, fmt.Errorf("%w: %s is a directory", core.ErrRetrievalIncomplete, path)
	}
	info.Size = st.Size()
	if info.Size == 0 {
		return info, fmt.Errorf("%w: %s is empty", core.ErrRetrievalIncomplete, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return info, fmt.Errorf("%w: %v", core.ErrRetrievalIncomplete, err)
	}
	defer f.Close()

	count := func(next func() error) {
		for {
			err := next()
			if err == nil {
				info.Packets++
				continue
			}
			if !errors.Is(err, io.EOF) {
				info.Truncated = true
			}
			return
		}
	}

	if r, err := pcapgo.NewReader(bufio.NewReader(f)); err == nil {
		info.Format = "pcap"
		info.LinkType = r.LinkType()
		info.SnapLen = r.Snaplen()
		count(func() error { _, _, err := r.ReadPacketData(); return err })
		return info, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return info, fmt.Errorf("%w: %v", core.ErrRetrievalIncomplete, err)
	}
	ng, err := pcapgo.NewNgReader(bufio.NewReader(f), pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return info, fmt.Errorf("%w: %s has no capture header: %v", core.ErrRetrievalIncomplete, path, err)
	}
	info.Format = "pcapng"
	info.LinkType = ng.LinkType()
	count(func() error { _, _, err := ng.ReadPacketData(); return err })
	return info, nil
}

func (i Info) String() string {
	s := fmt.Sprintf("%s: %d bytes, %s, %d packets", i.Path, i.Size, i.Format, i.Packets)
	if i.Truncated {
		s += " (last record truncated)"
	}
	return s
}

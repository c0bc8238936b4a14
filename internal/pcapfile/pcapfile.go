// Package pcapfile reads and writes libpcap capture files.
package pcapfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// DefaultSnaplen is written to file headers when no snapshot length is
// given.
const DefaultSnaplen = 262144

// Reader yields the records of a capture file in order.
type Reader struct {
	r      *pcapgo.Reader
	closer io.Closer
}

// Open opens the capture file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	r, err := NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader reads a capture file from r.
func NewReader(r io.Reader) (*Reader, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &Reader{r: pr}, nil
}

// LinkType returns the link type declared in the file header.
func (r *Reader) LinkType() namednumber.DataLinkType {
	return namednumber.DataLinkType(r.r.LinkType())
}

// Snaplen returns the snapshot length declared in the file header.
func (r *Reader) Snaplen() uint32 { return r.r.Snaplen() }

// ReadPacket returns the next record, or io.EOF after the last one.
func (r *Reader) ReadPacket() (core.RawPacket, error) {
	data, ci, err := r.r.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.RawPacket{}, io.EOF
		}
		return core.RawPacket{}, fmt.Errorf("failed to read packet: %w", err)
	}
	return core.RawPacket{
		Data:           data,
		Timestamp:      ci.Timestamp,
		CaptureLen:     uint32(ci.CaptureLength),
		OrigLen:        uint32(ci.Length),
		InterfaceIndex: ci.InterfaceIndex,
		LinkType:       r.LinkType(),
	}, nil
}

// Close closes the underlying file, if Open created it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Writer appends records to a capture file. Record timestamps must not
// decrease.
type Writer struct {
	mu       sync.Mutex
	w        *pcapgo.Writer
	buf      *bufio.Writer
	closer   io.Closer
	linkType namednumber.DataLinkType
	snaplen  uint32
	last     time.Time
}

// Create creates or truncates the capture file at path and writes its
// header.
func Create(path string, linkType namednumber.DataLinkType, snaplen uint32) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file %s: %w", path, err)
	}
	w, err := NewWriter(f, linkType, snaplen)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes a file header for linkType to w. A zero snaplen selects
// DefaultSnaplen.
func NewWriter(w io.Writer, linkType namednumber.DataLinkType, snaplen uint32) (*Writer, error) {
	if linkType < 0 || linkType > 0xffff {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedLinkType, linkType)
	}
	if snaplen == 0 {
		snaplen = DefaultSnaplen
	}
	buf := bufio.NewWriter(w)
	pw := pcapgo.NewWriter(buf)
	if err := pw.WriteFileHeader(snaplen, layers.LinkType(linkType)); err != nil {
		return nil, fmt.Errorf("failed to write pcap file header: %w", err)
	}
	return &Writer{w: pw, buf: buf, linkType: linkType, snaplen: snaplen}, nil
}

// LinkType returns the link type of the file.
func (w *Writer) LinkType() namednumber.DataLinkType { return w.linkType }

// WritePacket writes the encoding of p as a record captured at ts. Frames
// longer than the snapshot length are cut and recorded with their original
// length.
func (w *Writer) WritePacket(ts time.Time, p packet.Packet) error {
	data := p.RawData()
	return w.WriteRaw(core.RawPacket{
		Data:       data,
		Timestamp:  ts,
		CaptureLen: uint32(len(data)),
		OrigLen:    uint32(len(data)),
		LinkType:   w.linkType,
	})
}

// WriteRaw writes a captured record.
func (w *Writer) WriteRaw(raw core.RawPacket) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return io.ErrClosedPipe
	}
	if raw.Timestamp.Before(w.last) {
		return fmt.Errorf("%w: %s is before %s", core.ErrTimestampOrder, raw.Timestamp.Format(time.RFC3339Nano), w.last.Format(time.RFC3339Nano))
	}

	data := raw.Data
	origLen := int(raw.OrigLen)
	if origLen < len(data) {
		origLen = len(data)
	}
	if uint32(len(data)) > w.snaplen {
		log.GetLogger().WithField("snaplen", w.snaplen).Debugf("cutting %d byte frame to the snapshot length", len(data))
		data = data[:w.snaplen]
	}
	ci := gopacket.CaptureInfo{
		Timestamp:      raw.Timestamp,
		CaptureLength:  len(data),
		Length:         origLen,
		InterfaceIndex: raw.InterfaceIndex,
	}
	if err := w.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	w.last = raw.Timestamp
	return nil
}

// Close flushes buffered records and closes the file, if Create opened it.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	w.w = nil
	err := w.buf.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

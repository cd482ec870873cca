package vm

import (
	"errors"
	"io"
)

// ---------------------------------------------------------------------------
// Port: a uniform buffered byte-stream abstraction
//
// Ports are created explicitly and destroyed explicitly, not by the
// collector: they wrap OS resources that must be released
// deterministically. A port whose backing stream failed to open stays in a
// permanent error state; every read and write reports the missing stream
// instead of panicking. Operating on a closed port is a caller error.
// ---------------------------------------------------------------------------

// PortMode is the port's mode bit-set.
type PortMode uint32

const (
	PortRead PortMode = 1 << iota
	PortWrite
	// PortTrustedInput lets the reader reconstruct {type ...} forms as
	// live instances instead of literal structure.
	PortTrustedInput
	// PortAltSyntax is set when the first available byte after header
	// handling is '#'; consumers use it to switch parsing dialect.
	PortAltSyntax
	// PortWriteMarker emits the 3-byte UTF-8 marker once at stream
	// offset 0 on open for writing.
	PortWriteMarker
)

// Stream is the byte stream a port wraps.
type Stream interface {
	io.Reader
	io.Writer
}

var utf8Marker = [3]byte{0xEF, 0xBB, 0xBF}

const portBufSize = 4096

// ErrNoStream is the sticky error of a port whose backing stream could not
// be opened.
var ErrNoStream = errors.New("vm: port has no backing stream")

// Port is a buffered byte stream with pushback, sticky eof/error state,
// and mode bits.
type Port struct {
	mode   PortMode
	stream Stream    // nil: permanent error state
	closer io.Closer // non-nil when the port owns the stream

	inBuf     [portBufSize]byte
	inPos     int
	inAvail   int
	inPending []byte // pushback, consumed before the buffer
	inOffset  int64  // logical stream offset of the next byte to read

	outBuf    []byte
	outOffset int64 // logical stream offset of the next byte to write

	eof      bool
	err      error
	closed   bool
	tabWidth int
}

func newPort(mode PortMode, tabWidth int) *Port {
	if tabWidth <= 0 {
		tabWidth = defaultTabWidth
	}
	return &Port{mode: mode, tabWidth: tabWidth}
}

// Mode returns the mode bit-set.
func (p *Port) Mode() PortMode { return p.mode }

// HasMode reports whether every bit of m is set.
func (p *Port) HasMode(m PortMode) bool { return p.mode&m == m }

// Trusted reports whether reads from this port are trusted.
func (p *Port) Trusted() bool { return p.HasMode(PortTrustedInput) }

// TabWidth returns the port's tab width.
func (p *Port) TabWidth() int { return p.tabWidth }

// SetTabWidth sets the tab width.
func (p *Port) SetTabWidth(w int) { p.tabWidth = w }

// Err returns the port's sticky error, if any.
func (p *Port) Err() error { return p.err }

// EOF reports whether the input side reached end of stream.
func (p *Port) EOF() bool { return p.eof }

// Offset returns the logical read offset.
func (p *Port) Offset() int64 { return p.inOffset }

func (p *Port) checkOpen() {
	if p.closed {
		panic("vm: operation on closed port")
	}
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

func (p *Port) fill() bool {
	if p.stream == nil {
		if p.err == nil {
			p.err = ErrNoStream
		}
		return false
	}
	n, err := p.stream.Read(p.inBuf[:])
	p.inPos = 0
	p.inAvail = n
	if n > 0 {
		return true
	}
	if err == io.EOF || err == nil {
		p.eof = true
	} else {
		p.err = err
	}
	return false
}

// GetByte returns the next input byte. ok is false at end of stream or on
// error; check Err to distinguish.
func (p *Port) GetByte() (byte, bool) {
	p.checkOpen()
	if len(p.inPending) > 0 {
		b := p.inPending[0]
		p.inPending = p.inPending[1:]
		p.inOffset++
		return b, true
	}
	if p.inPos >= p.inAvail && !p.fill() {
		return 0, false
	}
	b := p.inBuf[p.inPos]
	p.inPos++
	p.inOffset++
	return b, true
}

// UngetByte pushes b back; the next GetByte returns it.
func (p *Port) UngetByte(b byte) {
	p.checkOpen()
	p.inPending = append([]byte{b}, p.inPending...)
	p.inOffset--
}

// PeekByte returns the next input byte without consuming it.
func (p *Port) PeekByte() (byte, bool) {
	b, ok := p.GetByte()
	if ok {
		p.UngetByte(b)
	}
	return b, ok
}

// ReadBytes reads up to len(buf) bytes. A short result is legitimate and
// is only an error when Err is also set.
func (p *Port) ReadBytes(buf []byte) int {
	n := 0
	for n < len(buf) {
		b, ok := p.GetByte()
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	return n
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// PutByte appends one byte to the output buffer.
func (p *Port) PutByte(b byte) {
	p.checkOpen()
	p.outBuf = append(p.outBuf, b)
	p.outOffset++
	if len(p.outBuf) >= portBufSize {
		p.Flush()
	}
}

// WriteString appends s to the output buffer.
func (p *Port) WriteString(s string) {
	p.WriteBytes([]byte(s))
}

// WriteBytes appends buf to the output buffer.
func (p *Port) WriteBytes(buf []byte) {
	p.checkOpen()
	p.outBuf = append(p.outBuf, buf...)
	p.outOffset += int64(len(buf))
	if len(p.outBuf) >= portBufSize {
		p.Flush()
	}
}

// Flush writes the buffered output to the backing stream.
func (p *Port) Flush() error {
	p.checkOpen()
	if len(p.outBuf) == 0 {
		return p.err
	}
	if p.stream == nil {
		if p.err == nil {
			p.err = ErrNoStream
		}
		return p.err
	}
	_, err := p.stream.Write(p.outBuf)
	p.outBuf = p.outBuf[:0]
	if err != nil {
		p.err = err
	}
	return err
}

// Close flushes a writable port and releases the backing stream if the
// port owns it. Closing an already-closed port is a no-op.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	var err error
	if p.HasMode(PortWrite) && p.stream != nil {
		err = p.Flush()
	}
	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
	}
	p.closed = true
	p.stream = nil
	p.closer = nil
	return err
}

// ---------------------------------------------------------------------------
// Encoding header handling
// ---------------------------------------------------------------------------

// writeMarker emits the UTF-8 marker once iff the stream is at offset 0
// and the marker mode is set.
func (p *Port) writeMarker() {
	if !p.HasMode(PortWriteMarker) || p.outOffset != 0 || p.stream == nil {
		return
	}
	if _, err := p.stream.Write(utf8Marker[:]); err != nil {
		p.err = err
		return
	}
	p.outOffset = int64(len(utf8Marker))
}

// discardMarker peeks 3 bytes at stream offset 0. The UTF-8 marker
// sequence is discarded; anything else is pushed back so the first read
// sees the original bytes.
func (p *Port) discardMarker() {
	if p.inOffset != 0 || p.stream == nil {
		return
	}
	var head [3]byte
	n := 0
	for n < 3 {
		m, err := p.stream.Read(head[n:])
		n += m
		if err != nil || m == 0 {
			break
		}
	}
	if n == 3 && head == utf8Marker {
		p.inOffset = int64(len(utf8Marker))
		return
	}
	if n > 0 {
		p.inPending = append(p.inPending, head[:n]...)
	}
}

// detectAltSyntax flags the port when the first available byte is '#'.
// Only already-buffered bytes are consulted; no further read happens.
func (p *Port) detectAltSyntax() {
	if len(p.inPending) > 0 && p.inPending[0] == '#' {
		p.mode |= PortAltSyntax
	}
}

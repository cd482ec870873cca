package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ---------------------------------------------------------------------------
// File ports
// ---------------------------------------------------------------------------

// OpenFile opens a file-backed port. Read and write modes are independent;
// at least one must be set. A failed open does not fail construction: the
// returned port has no backing stream and keeps the open error as its
// sticky error for every subsequent operation.
func (env *Env) OpenFile(path string, mode PortMode) *Port {
	if mode&(PortRead|PortWrite) == 0 {
		panic("vm: OpenFile: need PortRead and/or PortWrite")
	}
	if env.opts.WriteMarker && mode&PortWrite != 0 {
		mode |= PortWriteMarker
	}

	p := newPort(mode, env.opts.TabWidth)

	var flags int
	switch {
	case mode&PortRead != 0 && mode&PortWrite != 0:
		flags = os.O_RDWR | os.O_CREATE
	case mode&PortWrite != 0:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	default:
		flags = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		p.err = fmt.Errorf("vm: open %s: %w", path, err)
		env.log.Errorf("port: %s", p.err)
		return p
	}
	p.stream = f
	p.closer = f

	if mode&PortWrite != 0 {
		p.writeMarker()
	}
	if mode&PortRead != 0 {
		p.discardMarker()
		p.detectAltSyntax()
	}
	return p
}

// WrapStream wraps an externally owned stream, assumed to be at offset 0,
// applying the same header handling as OpenFile. Closing the port does not
// close the stream; the embedding caller keeps ownership.
func (env *Env) WrapStream(stream Stream, mode PortMode) *Port {
	p := newPort(mode, env.opts.TabWidth)
	p.stream = stream
	if mode&PortWrite != 0 {
		p.writeMarker()
	}
	if mode&PortRead != 0 {
		p.discardMarker()
		p.detectAltSyntax()
	}
	return p
}

// WrapReader wraps a read-only stream.
func (env *Env) WrapReader(r io.Reader, mode PortMode) *Port {
	return env.WrapStream(readerStream{r}, mode|PortRead)
}

// WrapWriter wraps a write-only stream.
func (env *Env) WrapWriter(w io.Writer, mode PortMode) *Port {
	return env.WrapStream(writerStream{w}, mode|PortWrite)
}

type readerStream struct{ io.Reader }

func (readerStream) Write([]byte) (int, error) {
	return 0, errors.New("vm: stream is not writable")
}

type writerStream struct{ io.Writer }

func (writerStream) Read([]byte) (int, error) {
	return 0, errors.New("vm: stream is not readable")
}

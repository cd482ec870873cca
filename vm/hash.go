package vm

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// ---------------------------------------------------------------------------
// Structural hashing and equality
// ---------------------------------------------------------------------------

// HashCell computes a structural hash of c. Cells that are CellEqual hash
// to the same value. Hashes are deterministic within a process but are not
// part of any serialized format.
func (env *Env) HashCell(c Cell) uint64 {
	h := fnv.New64a()
	env.hashInto(h, c, 0)
	return h.Sum64()
}

type hashWriter interface {
	Write(p []byte) (int, error)
}

const maxHashDepth = 64

func (env *Env) hashInto(h hashWriter, c Cell, depth int) {
	if depth > maxHashDepth {
		return
	}
	var buf [9]byte
	if c == Nil {
		buf[0] = byte(FreeCell)
		h.Write(buf[:1])
		return
	}
	r := &env.cells[c]
	buf[0] = byte(r.kind)
	switch r.kind {
	case IntCell:
		binary.LittleEndian.PutUint64(buf[1:], uint64(r.num))
		h.Write(buf[:])
	case FloatCell:
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(r.fnum))
		h.Write(buf[:])
	case SymbolCell, TextCell:
		h.Write(buf[:1])
		h.Write([]byte(r.text))
	case ConsCell:
		h.Write(buf[:1])
		env.hashInto(h, r.head, depth+1)
		env.hashInto(h, r.tail, depth+1)
	default:
		// Native functions and objects hash by identity.
		binary.LittleEndian.PutUint64(buf[1:], uint64(c))
		h.Write(buf[:])
	}
}

// CellEqual reports structural equality. Symbols compare by identity
// (they are interned), numbers by value, text by content, pairs
// recursively. Native functions and objects compare by handle.
func (env *Env) CellEqual(a, b Cell) bool {
	if a == b {
		return true
	}
	if a == Nil || b == Nil {
		return false
	}
	ra, rb := &env.cells[a], &env.cells[b]
	if ra.kind != rb.kind {
		return false
	}
	switch ra.kind {
	case IntCell:
		return ra.num == rb.num
	case FloatCell:
		return ra.fnum == rb.fnum
	case TextCell:
		return ra.text == rb.text
	case ConsCell:
		return env.CellEqual(ra.head, rb.head) && env.CellEqual(ra.tail, rb.tail)
	default:
		return false
	}
}

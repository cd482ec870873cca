package vm

import (
	"fmt"
)

// Cell is an opaque handle to a value in the managed heap. Handles index
// into the owning Env's cell arena; they are only meaningful together with
// the Env that produced them.
//
// Nil (handle 0) is the unique empty/absence value. It doubles as "false"
// and "not found" throughout the runtime.
type Cell int32

// Nil is the distinguished empty cell.
const Nil Cell = 0

// CellKind identifies what a cell holds.
type CellKind uint8

const (
	FreeCell CellKind = iota
	ConsCell
	IntCell
	FloatCell
	SymbolCell
	TextCell
	NativeCell
	ObjectCell
)

// NativeFn is a native function callable through Env.Apply. The argument
// list is already evaluated; evaluation policy is the caller's concern.
type NativeFn func(env *Env, args Cell) Cell

// cellRecord is one slot of the arena. A flat record with per-kind fields
// keeps handles stable across collection cycles.
type cellRecord struct {
	kind   CellKind
	marked bool

	head, tail Cell    // ConsCell
	num        int64   // IntCell
	fnum       float64 // FloatCell
	text       string  // SymbolCell, TextCell
	fn         NativeFn
	obj        *objectInstance
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Cons allocates a new pair. The new cell is pushed on the operand
// protection stack, as are all fresh allocations.
func (env *Env) Cons(head, tail Cell) Cell {
	sp := env.StackPos()
	env.Push(head)
	env.Push(tail)
	c := env.alloc()
	r := &env.cells[c]
	r.kind = ConsCell
	r.head = head
	r.tail = tail
	env.stack = append(env.stack[:sp], c)
	return c
}

// Int allocates an integer cell.
func (env *Env) Int(n int64) Cell {
	c := env.alloc()
	r := &env.cells[c]
	r.kind = IntCell
	r.num = n
	return c
}

// Float allocates a float cell.
func (env *Env) Float(f float64) Cell {
	c := env.alloc()
	r := &env.cells[c]
	r.kind = FloatCell
	r.fnum = f
	return c
}

// Text allocates a text cell.
func (env *Env) Text(s string) Cell {
	c := env.alloc()
	r := &env.cells[c]
	r.kind = TextCell
	r.text = s
	return c
}

// NativeFunc allocates a native function cell.
func (env *Env) NativeFunc(fn NativeFn) Cell {
	c := env.alloc()
	r := &env.cells[c]
	r.kind = NativeCell
	r.fn = fn
	return c
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind reports what the cell holds. Nil reports FreeCell.
func (env *Env) Kind(c Cell) CellKind {
	if c == Nil {
		return FreeCell
	}
	return env.cells[c].kind
}

// IsCons returns true if c is a pair.
func (env *Env) IsCons(c Cell) bool {
	return c != Nil && env.cells[c].kind == ConsCell
}

// Head returns the head of a pair. Head of Nil is Nil.
func (env *Env) Head(c Cell) Cell {
	if c == Nil {
		return Nil
	}
	r := &env.cells[c]
	if r.kind != ConsCell {
		panic(fmt.Sprintf("vm: Head: cell %d is not a pair", c))
	}
	return r.head
}

// Tail returns the tail of a pair. Tail of Nil is Nil.
func (env *Env) Tail(c Cell) Cell {
	if c == Nil {
		return Nil
	}
	r := &env.cells[c]
	if r.kind != ConsCell {
		panic(fmt.Sprintf("vm: Tail: cell %d is not a pair", c))
	}
	return r.tail
}

// SetHead replaces the head of a pair in place.
func (env *Env) SetHead(c, head Cell) {
	r := &env.cells[c]
	if c == Nil || r.kind != ConsCell {
		panic(fmt.Sprintf("vm: SetHead: cell %d is not a pair", c))
	}
	r.head = head
}

// SetTail replaces the tail of a pair in place.
func (env *Env) SetTail(c, tail Cell) {
	r := &env.cells[c]
	if c == Nil || r.kind != ConsCell {
		panic(fmt.Sprintf("vm: SetTail: cell %d is not a pair", c))
	}
	r.tail = tail
}

// IntValue returns the integer held by c.
// Panics if c is not an integer cell.
func (env *Env) IntValue(c Cell) int64 {
	if c == Nil || env.cells[c].kind != IntCell {
		panic(fmt.Sprintf("vm: IntValue: cell %d is not an integer", c))
	}
	return env.cells[c].num
}

// FloatValue returns the float held by c.
// Panics if c is not a float cell.
func (env *Env) FloatValue(c Cell) float64 {
	if c == Nil || env.cells[c].kind != FloatCell {
		panic(fmt.Sprintf("vm: FloatValue: cell %d is not a float", c))
	}
	return env.cells[c].fnum
}

// TextValue returns the string held by a text cell.
func (env *Env) TextValue(c Cell) string {
	if c == Nil || env.cells[c].kind != TextCell {
		panic(fmt.Sprintf("vm: TextValue: cell %d is not text", c))
	}
	return env.cells[c].text
}

// SymbolName returns the name of a symbol cell.
func (env *Env) SymbolName(c Cell) string {
	if c == Nil || env.cells[c].kind != SymbolCell {
		panic(fmt.Sprintf("vm: SymbolName: cell %d is not a symbol", c))
	}
	return env.cells[c].text
}

package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Functional object protocol
//
// A functional object is a heap cell holding a type descriptor reference
// plus a type-specific native payload. The payload implements the four
// lifecycle hooks; invocability and capability views are optional and
// probed dynamically, so generic code needs no static type knowledge.
// ---------------------------------------------------------------------------

// TypeTag is a four-character type identifier.
type TypeTag uint32

// FourCC builds a TypeTag from a four-byte string.
func FourCC(s string) TypeTag {
	if len(s) != 4 {
		panic("vm: FourCC: tag must be exactly four bytes")
	}
	return TypeTag(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]))
}

// ObjectType is the static, process-lifetime descriptor of an extension
// type. Name is used by the trusted reader for {Name ...} forms.
type ObjectType struct {
	Name string
	Tag  TypeTag
	Make func(env *Env) ObjectData
}

// ObjectData is the native payload contract every extension type
// implements.
//
// Mark must visit every cell the instance holds, directly or transitively
// through native structures it owns, by calling env.MarkLive. Destroy
// releases native-only resources; heap cells are reclaimed by the
// collector, not here. Destroy runs exactly once, when the instance
// becomes unreachable.
type ObjectData interface {
	Init(env *Env, args Cell)
	Mark(env *Env)
	Destroy(env *Env)
	Write(env *Env, p *Port)
}

// Applicable is the optional call entry point. A functional object that
// implements it can be invoked like a procedure through Env.Apply.
// Argument lists arrive already evaluated; per-argument evaluation policy
// is chosen by each type.
type Applicable interface {
	Apply(env *Env, args Cell) Cell
}

// Viewer is the optional capability query. Types opt in to capabilities by
// returning a non-nil table for a requested id and are otherwise
// indistinguishable black boxes.
type Viewer interface {
	View(id ViewID) any
}

type objectInstance struct {
	typ  *ObjectType
	data ObjectData
}

// ---------------------------------------------------------------------------
// Type registry and construction
// ---------------------------------------------------------------------------

// RegisterType registers a type descriptor by name and tag.
func (env *Env) RegisterType(t *ObjectType) {
	if t.Name == "" || t.Make == nil {
		panic("vm: RegisterType: descriptor needs a name and a factory")
	}
	env.types[t.Name] = t
	env.typesByTag[t.Tag] = t
}

// TypeByName returns a registered descriptor, or nil.
func (env *Env) TypeByName(name string) *ObjectType {
	return env.types[name]
}

// NewObject constructs a functional object instance: allocates the cell,
// builds a zeroed payload, and runs the init hook with the (already
// evaluated) constructor arguments. The result is left rooted on the
// protection stack.
func (env *Env) NewObject(t *ObjectType, args Cell) Cell {
	sp := env.StackPos()
	env.Push(args)
	c := env.alloc()
	r := &env.cells[c]
	r.kind = ObjectCell
	r.obj = &objectInstance{typ: t, data: t.Make(env)}
	r.obj.data.Init(env, args)
	env.stack = append(env.stack[:sp], c)
	return c
}

// ObjectData returns the payload of c if it is a functional object of the
// given tag (or any type when tag is zero). Returns nil otherwise.
func (env *Env) ObjectData(c Cell, tag TypeTag) ObjectData {
	if c == Nil || env.cells[c].kind != ObjectCell {
		return nil
	}
	inst := env.cells[c].obj
	if tag != 0 && inst.typ.Tag != tag {
		return nil
	}
	return inst.data
}

// ObjectTypeOf returns the descriptor of a functional object, or nil.
func (env *Env) ObjectTypeOf(c Cell) *ObjectType {
	if c == Nil || env.cells[c].kind != ObjectCell {
		return nil
	}
	return env.cells[c].obj.typ
}

// ObjectView probes c for an optional capability. Returns nil when c is
// not a functional object, has no view accessor, or does not expose the
// requested capability.
func (env *Env) ObjectView(c Cell, id ViewID) any {
	data := env.ObjectData(c, 0)
	if data == nil {
		return nil
	}
	v, ok := data.(Viewer)
	if !ok {
		return nil
	}
	return v.View(id)
}

// ---------------------------------------------------------------------------
// Invocation
// ---------------------------------------------------------------------------

// Apply invokes fn with the given argument list. Native functions are
// called directly; functional objects dispatch through their call entry
// point. Applying anything else is a programming error.
func (env *Env) Apply(fn, args Cell) Cell {
	if fn == Nil {
		panic("vm: Apply: cannot apply ()")
	}
	r := &env.cells[fn]
	switch r.kind {
	case NativeCell:
		return r.fn(env, args)
	case ObjectCell:
		a, ok := r.obj.data.(Applicable)
		if !ok {
			panic(fmt.Sprintf("vm: Apply: %s object is not applicable", r.obj.typ.Name))
		}
		return a.Apply(env, args)
	default:
		panic(fmt.Sprintf("vm: Apply: cell %d is not a function", fn))
	}
}

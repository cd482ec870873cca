package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Vector: a fixed-size array functional object
//
// A vector is invocable: applied to an index it returns the slot's value;
// applied to an index and a value it sets the slot and returns the value.
// Slots start out (). Length only grows (explicit resize), except for trim
// stripping trailing () slots.
// ---------------------------------------------------------------------------

// Vector is the native payload of the vector type.
type Vector struct {
	slots []Cell
}

// VectorTag identifies the vector type.
var VectorTag = FourCC("vect")

// VectorType is the vector type descriptor.
var VectorType = &ObjectType{
	Name: "vector",
	Tag:  VectorTag,
	Make: func(env *Env) ObjectData { return &Vector{} },
}

// NewVector creates a vector of the given length with every slot ().
// The result is left rooted on the protection stack.
func NewVector(env *Env, length int) Cell {
	if length < 0 {
		panic("vm: NewVector: negative length")
	}
	sp := env.StackPos()
	v := env.NewObject(VectorType, env.List(env.Int(int64(length))))
	env.stack = append(env.stack[:sp], v)
	return v
}

// VectorFromSlice creates a vector initialized from the given elements.
func VectorFromSlice(env *Env, elems []Cell) Cell {
	vec := NewVector(env, len(elems))
	copy(VectorOf(env, vec).slots, elems)
	return vec
}

// VectorFromList creates a vector from a proper list, copying in list
// order. An empty list yields Nil, not an empty vector.
func VectorFromList(env *Env, list Cell) Cell {
	if list == Nil {
		return Nil
	}
	return VectorFromSlice(env, env.ListToSlice(list))
}

// VectorOf returns the payload of a vector cell, or nil.
func VectorOf(env *Env, c Cell) *Vector {
	v, _ := env.ObjectData(c, VectorTag).(*Vector)
	return v
}

// ---------------------------------------------------------------------------
// Lifecycle hooks
// ---------------------------------------------------------------------------

// Init sizes the slot array from the optional first constructor argument.
func (v *Vector) Init(env *Env, args Cell) {
	n := 0
	if args != Nil {
		n = int(env.IntValue(env.Head(args)))
	}
	if n > 0 {
		v.slots = make([]Cell, n)
	}
}

// Mark visits every slot.
func (v *Vector) Mark(env *Env) {
	for _, s := range v.slots {
		env.MarkLive(s)
	}
}

// Destroy releases the slot array.
func (v *Vector) Destroy(env *Env) {
	v.slots = nil
}

// Write emits {vector e1 e2 ... eN}; a trusted read reconstructs a live
// vector from this form.
func (v *Vector) Write(env *Env, p *Port) {
	p.PutByte('{')
	p.WriteString("vector")
	for _, s := range v.slots {
		p.PutByte(' ')
		env.WriteCell(p, s)
	}
	p.PutByte('}')
}

// Apply implements slot get and set.
func (v *Vector) Apply(env *Env, args Cell) Cell {
	if args == Nil {
		return Nil
	}
	index := int(env.IntValue(env.Head(args)))
	if rest := env.Tail(args); rest != Nil {
		return v.Put(env, index, env.Head(rest))
	}
	return v.Get(env, index)
}

// View exposes the monadic and iterator capabilities.
func (v *Vector) View(id ViewID) any {
	switch id {
	case MonadViewID:
		return MonadView(v)
	case IteratorViewID:
		return IteratorView(v)
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Core operations
// ---------------------------------------------------------------------------

// Length returns the slot count.
func (v *Vector) Length() int { return len(v.slots) }

func (v *Vector) checkIndex(index int) {
	if index < 0 || index >= len(v.slots) {
		panic(fmt.Sprintf("vm: vector index %d out of range [0,%d)", index, len(v.slots)))
	}
}

// Get returns the slot at index. Index must satisfy 0 <= index < length.
func (v *Vector) Get(env *Env, index int) Cell {
	v.checkIndex(index)
	return v.slots[index]
}

// Put sets the slot at index and returns the value.
func (v *Vector) Put(env *Env, index int, value Cell) Cell {
	v.checkIndex(index)
	v.slots[index] = value
	return value
}

// Resize grows the vector to newLength, filling new slots with ().
// Resize never shrinks.
func (v *Vector) Resize(env *Env, newLength int) {
	if newLength <= len(v.slots) {
		return
	}
	grown := make([]Cell, newLength)
	copy(grown, v.slots)
	v.slots = grown
}

// Trim strips trailing () slots, shrinking the length only.
func (v *Vector) Trim() {
	n := len(v.slots)
	for n > 0 && v.slots[n-1] == Nil {
		n--
	}
	v.slots = v.slots[:n]
}

// ToList converts the slots [from, from+step*count) with the given stride
// into a list. The caller must ensure from + step*count <= length.
func (v *Vector) ToList(env *Env, from, count, step int) Cell {
	if step <= 0 {
		panic("vm: vector ToList: step must be positive")
	}
	if from < 0 || count < 0 || from+step*count > len(v.slots) {
		panic(fmt.Sprintf("vm: vector ToList: range [%d,%d,%d) outside length %d",
			from, count, step, len(v.slots)))
	}
	elems := make([]Cell, count)
	for i := 0; i < count; i++ {
		elems[i] = v.slots[from+i*step]
	}
	return env.SliceToList(elems, 1)
}

// ---------------------------------------------------------------------------
// Monadic view
// ---------------------------------------------------------------------------

// Size returns the length as an integer cell.
func (v *Vector) Size(env *Env) Cell {
	return env.Int(int64(len(v.slots)))
}

// mergeOne stores value at slot i, combining with an occupied slot through
// reduction (old, new) when both are present.
func (v *Vector) mergeOne(env *Env, i int, value, reduction Cell) {
	if reduction != Nil && v.slots[i] != Nil {
		v.slots[i] = env.Apply(reduction, env.List(v.slots[i], value))
	} else {
		v.slots[i] = value
	}
}

// Map applies fn to every element, producing a same-length vector.
func (v *Vector) Map(env *Env, fn Cell) Cell {
	result := NewVector(env, len(v.slots))
	rv := VectorOf(env, result)

	sp := env.StackPos()
	for i, s := range v.slots {
		rv.slots[i] = env.Apply(fn, env.List(s))
		env.Unwind(sp)
	}
	return result
}

// Join appends the receiver's storage and each vector in others, in source
// order. The reduction function is unused for vectors: appended storage
// never collides.
func (v *Vector) Join(env *Env, others, reduction Cell) Cell {
	total := len(v.slots)
	for node := others; node != Nil; node = env.Tail(node) {
		other := VectorOf(env, env.Head(node))
		if other == nil {
			panic(fmt.Sprintf("vm: vector join: cell %d is not a vector", env.Head(node)))
		}
		total += len(other.slots)
	}

	result := NewVector(env, total)
	rv := VectorOf(env, result)

	offset := copy(rv.slots, v.slots)
	for node := others; node != Nil; node = env.Tail(node) {
		other := VectorOf(env, env.Head(node))
		offset += copy(rv.slots[offset:], other.slots)
	}
	return result
}

// Collect filters elements satisfying predicate and packs survivors into a
// fresh vector. Predicate and mapper receive a dotted (index . element)
// pair; the predicate's index is the source index, the mapper's index is
// the survivor's ordinal. A mapper returning (target . value) redirects
// the value to an arbitrary target slot, growing the result on demand and
// merging collisions through reduction. Trailing unused slots are trimmed.
func (v *Vector) Collect(env *Env, predicate, mapper, reduction Cell) Cell {
	result := NewVector(env, len(v.slots))
	rv := VectorOf(env, result)

	sp := env.StackPos()
	j := 0
	for i, elem := range v.slots {
		if predicate == Nil || env.Apply(predicate, env.Cons(env.Int(int64(i)), elem)) != Nil {
			if mapper != Nil {
				m := env.Apply(mapper, env.Cons(env.Int(int64(j)), elem))
				if m != Nil {
					target := int(env.IntValue(env.Head(m)))
					rv.Resize(env, target+1)
					rv.mergeOne(env, target, env.Tail(m), reduction)
				}
			} else {
				rv.mergeOne(env, j, elem, reduction)
			}
			j++
		}
		env.Unwind(sp)
	}

	rv.Trim()
	return result
}

// Reduce left-folds the elements in index order.
func (v *Vector) Reduce(env *Env, reduction, initial Cell) Cell {
	result := initial
	sp := env.StackPos()
	for _, s := range v.slots {
		result = env.Apply(reduction, env.List(result, s))
		env.Unwind(sp)
		env.Push(result)
	}
	return result
}

// Iterate walks the slots in index order. When cb stops the walk, the
// stopping index is returned as an integer cell.
func (v *Vector) Iterate(env *Env, cb IteratorCallback) Cell {
	sp := env.StackPos()
	for i, s := range v.slots {
		cont := cb(env, s)
		env.Unwind(sp)
		if !cont {
			return env.Int(int64(i))
		}
	}
	return Nil
}

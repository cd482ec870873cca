package vm

// ---------------------------------------------------------------------------
// Capability views
// ---------------------------------------------------------------------------

// ViewID identifies an optional capability a functional object may expose.
type ViewID int

const (
	// MonadViewID is the container capability: size/map/join/collect/reduce.
	MonadViewID ViewID = iota + 1

	// IteratorViewID is the early-terminating element walk.
	IteratorViewID
)

// MonadView is the container capability. A type implements all five
// operations or none. Implementations bracket every call into user code
// with a protection-stack save/restore so transient results stay reachable
// exactly as long as they are live.
type MonadView interface {
	// Size returns the element count as an integer cell.
	Size(env *Env) Cell

	// Map applies fn to every element, producing a same-shape container.
	Map(env *Env, fn Cell) Cell

	// Join concatenates/merges the receiver with each container in the
	// others list, in order. Containers with positional identity append;
	// associative containers combine colliding keys via reduction
	// (old, new) when supplied, else the new value overwrites.
	Join(env *Env, others, reduction Cell) Cell

	// Collect filters elements satisfying predicate (Nil: all), optionally
	// remaps survivors via mapper, merging duplicate targets as in Join.
	Collect(env *Env, predicate, mapper, reduction Cell) Cell

	// Reduce left-folds the elements in the container's natural iteration
	// order: result = reduction(result, element), starting from initial.
	Reduce(env *Env, reduction, initial Cell) Cell
}

// IteratorCallback visits one element. Returning false stops the walk.
type IteratorCallback func(env *Env, element Cell) bool

// IteratorView walks elements in the container's natural order. When the
// callback stops the walk, Iterate returns where it stopped (the key for
// associative containers, the index for positional ones); otherwise Nil.
type IteratorView interface {
	Iterate(env *Env, cb IteratorCallback) Cell
}

// ---------------------------------------------------------------------------
// Generic entry points
//
// These let generic algorithms operate over any container-like functional
// object without knowing the concrete type.
// ---------------------------------------------------------------------------

func (env *Env) monadView(c Cell) MonadView {
	if v, ok := env.ObjectView(c, MonadViewID).(MonadView); ok {
		return v
	}
	return nil
}

// SizeOf returns the element count of a container, or Nil when c does not
// expose the monadic view.
func (env *Env) SizeOf(c Cell) Cell {
	if mv := env.monadView(c); mv != nil {
		return mv.Size(env)
	}
	return Nil
}

// MapOf maps fn over a container. Nil when c has no monadic view.
func (env *Env) MapOf(c, fn Cell) Cell {
	if mv := env.monadView(c); mv != nil {
		return mv.Map(env, fn)
	}
	return Nil
}

// JoinOf joins a container with a list of others.
func (env *Env) JoinOf(c, others, reduction Cell) Cell {
	if mv := env.monadView(c); mv != nil {
		return mv.Join(env, others, reduction)
	}
	return Nil
}

// CollectOf filters and remaps a container.
func (env *Env) CollectOf(c, predicate, mapper, reduction Cell) Cell {
	if mv := env.monadView(c); mv != nil {
		return mv.Collect(env, predicate, mapper, reduction)
	}
	return Nil
}

// ReduceOf left-folds a container.
func (env *Env) ReduceOf(c, reduction, initial Cell) Cell {
	if mv := env.monadView(c); mv != nil {
		return mv.Reduce(env, reduction, initial)
	}
	return Nil
}

// IterateOver walks a container's elements, stopping when cb returns
// false. Nil when c has no iterator view.
func (env *Env) IterateOver(c Cell, cb IteratorCallback) Cell {
	if v, ok := env.ObjectView(c, IteratorViewID).(IteratorView); ok {
		return v.Iterate(env, cb)
	}
	return Nil
}

package vm

// ---------------------------------------------------------------------------
// List helpers
// ---------------------------------------------------------------------------

// List builds a proper list from the given elements.
func (env *Env) List(elems ...Cell) Cell {
	return env.SliceToList(elems, 1)
}

// ListLength returns the number of pairs in a proper list.
func (env *Env) ListLength(list Cell) int {
	n := 0
	for c := list; c != Nil; c = env.Tail(c) {
		n++
	}
	return n
}

// ListToSlice extracts the elements of a proper list into a slice.
func (env *Env) ListToSlice(list Cell) []Cell {
	var out []Cell
	for c := list; c != Nil; c = env.Tail(c) {
		out = append(out, env.Head(c))
	}
	return out
}

// SliceToList builds a list from every step-th element of the slice,
// starting at index 0.
func (env *Env) SliceToList(elems []Cell, step int) Cell {
	if step <= 0 {
		panic("vm: SliceToList: step must be positive")
	}
	sp := env.StackPos()
	result := Nil
	for i := len(elems) - 1; i >= 0; i-- {
		if i%step != 0 {
			continue
		}
		result = env.Cons(elems[i], result)
	}
	env.stack = append(env.stack[:sp], result)
	return result
}

// assocFind scans an association list for a pair whose key is structurally
// equal to key. It returns the chain node holding the pair and the previous
// chain node (Nil when the pair is the first in the chain). Both are Nil
// when the key is absent.
func (env *Env) assocFind(alist, key Cell) (prev, link Cell) {
	prev = Nil
	for node := alist; node != Nil; node = env.Tail(node) {
		pair := env.Head(node)
		if env.CellEqual(env.Head(pair), key) {
			return prev, node
		}
		prev = node
	}
	return Nil, Nil
}

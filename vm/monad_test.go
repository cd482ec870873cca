package vm

import (
	"testing"
)

// fillVector builds a vector of the first n positive integers.
func fillVector(env *Env, n int) Cell {
	vec := NewVector(env, n)
	v := VectorOf(env, vec)
	for i := 0; i < n; i++ {
		v.Put(env, i, env.Int(int64(i+1)))
	}
	return vec
}

func fillHashtable(env *Env, n int) Cell {
	ht := NewHashtable(env, n)
	h := HashtableOf(env, ht)
	for i := 0; i < n; i++ {
		h.Put(env, env.Int(int64(i)), env.Int(int64(i+1)))
	}
	return ht
}

func TestGenericSizeOf(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	if env.IntValue(env.SizeOf(fillVector(env, 4))) != 4 {
		t.Error("SizeOf vector failed")
	}
	if env.IntValue(env.SizeOf(fillHashtable(env, 4))) != 4 {
		t.Error("SizeOf hashtable failed")
	}
	// Non-containers have no view.
	if env.SizeOf(env.Int(1)) != Nil {
		t.Error("SizeOf on an integer should be ()")
	}
	if env.SizeOf(Nil) != Nil {
		t.Error("SizeOf on () should be ()")
	}
}

func TestGenericMapOverBothContainers(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	negate := env.NativeFunc(func(env *Env, args Cell) Cell {
		return env.Int(-env.IntValue(env.Head(args)))
	})

	mv := VectorOf(env, env.MapOf(fillVector(env, 3), negate))
	if env.IntValue(mv.Get(env, 2)) != -3 {
		t.Error("Generic map over vector failed")
	}

	mh := HashtableOf(env, env.MapOf(fillHashtable(env, 3), negate))
	if env.IntValue(mh.Get(env, env.Int(2))) != -3 {
		t.Error("Generic map over hashtable failed")
	}

	if env.MapOf(env.Text("no"), negate) != Nil {
		t.Error("Generic map over a non-container should be ()")
	}
}

func TestGenericReduceOverBothContainers(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	sum := env.NativeFunc(func(env *Env, args Cell) Cell {
		return env.Int(env.IntValue(env.Head(args)) + env.IntValue(env.Head(env.Tail(args))))
	})

	vt := env.ReduceOf(fillVector(env, 4), sum, env.Int(0))
	if env.IntValue(vt) != 10 {
		t.Errorf("Vector reduce = %d, want 10", env.IntValue(vt))
	}
	ht := env.ReduceOf(fillHashtable(env, 4), sum, env.Int(0))
	if env.IntValue(ht) != 10 {
		t.Errorf("Hashtable reduce = %d, want 10", env.IntValue(ht))
	}
}

func TestGenericJoinAndCollect(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	a := fillVector(env, 2)
	b := fillVector(env, 3)
	joined := VectorOf(env, env.JoinOf(a, env.List(b), Nil))
	if joined.Length() != 5 {
		t.Errorf("Generic join length = %d, want 5", joined.Length())
	}

	all := env.CollectOf(a, Nil, Nil, Nil)
	if VectorOf(env, all).Length() != 2 {
		t.Error("Collect with no predicate should keep everything")
	}

	if env.JoinOf(env.Int(1), Nil, Nil) != Nil {
		t.Error("Generic join on a non-container should be ()")
	}
}

func TestGenericIterate(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	count := 0
	res := env.IterateOver(fillVector(env, 5), func(env *Env, element Cell) bool {
		count++
		return true
	})
	if res != Nil || count != 5 {
		t.Errorf("Full iteration visited %d, returned %v", count, res)
	}

	res = env.IterateOver(fillVector(env, 5), func(env *Env, element Cell) bool {
		return env.IntValue(element) < 3
	})
	if res == Nil || env.IntValue(res) != 2 {
		t.Error("Early stop should return the stopping index")
	}

	if env.IterateOver(env.Symbol("s"), nil) != Nil {
		t.Error("Iterating a non-container should be ()")
	}
}

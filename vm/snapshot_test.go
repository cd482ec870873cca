package vm

import (
	"testing"
)

func TestSnapshotAtomRoundTrip(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	original := env.List(
		env.Int(42),
		env.Float(2.5),
		env.Symbol("sym"),
		env.Text("text"),
		Nil,
	)
	data, err := EncodeSnapshot(env, original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	back, err := DecodeSnapshot(env, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !env.CellEqual(original, back) {
		t.Errorf("Round trip changed the value: %s -> %s",
			writeToString(env, original), writeToString(env, back))
	}
	// Symbols re-intern to the same cells.
	if env.Head(env.Tail(env.Tail(back))) != env.Symbol("sym") {
		t.Error("Decoded symbol is not interned")
	}
}

func TestSnapshotSharedStructure(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	shared := env.List(env.Int(1), env.Int(2))
	pair := env.Cons(shared, shared)

	data, err := EncodeSnapshot(env, pair)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := DecodeSnapshot(env, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if env.Head(back) != env.Tail(back) {
		t.Error("Shared substructure must decode to one cell, not two copies")
	}
}

func TestSnapshotCycle(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	c := env.Cons(env.Int(1), Nil)
	env.SetTail(c, c) // one-cell cycle

	data, err := EncodeSnapshot(env, c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := DecodeSnapshot(env, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Tail(back) != back {
		t.Error("Cycle not preserved")
	}
	if env.IntValue(env.Head(back)) != 1 {
		t.Error("Cycle payload lost")
	}
}

func TestSnapshotHashtable(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	ht := NewHashtable(env, 8)
	h := HashtableOf(env, ht)
	h.Put(env, env.Symbol("a"), env.Int(1))
	h.Put(env, env.Text("b"), env.List(env.Int(2), env.Int(3)))
	h.Put(env, env.Int(7), env.Text("seven"))

	data, err := EncodeSnapshot(env, ht)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := DecodeSnapshot(env, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	bh := HashtableOf(env, back)
	if bh == nil {
		t.Fatal("Decoded cell is not a hashtable")
	}
	if bh.Count() != 3 {
		t.Fatalf("Count = %d, want 3", bh.Count())
	}
	if env.IntValue(bh.Get(env, env.Symbol("a"))) != 1 {
		t.Error("Symbol-keyed pair lost")
	}
	if env.TextValue(bh.Get(env, env.Int(7))) != "seven" {
		t.Error("Integer-keyed pair lost")
	}
	got := bh.Get(env, env.Text("b"))
	if env.ListLength(got) != 2 || env.IntValue(env.Head(got)) != 2 {
		t.Error("Text-keyed list value lost")
	}
	if bh.BucketCount()%2 != 1 {
		t.Error("Decoded bucket count should stay odd")
	}
}

func TestSnapshotVector(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	vec := NewVector(env, 4)
	v := VectorOf(env, vec)
	v.Put(env, 0, env.Int(1))
	v.Put(env, 2, env.Symbol("s"))

	data, err := EncodeSnapshot(env, vec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := DecodeSnapshot(env, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	bv := VectorOf(env, back)
	if bv == nil {
		t.Fatal("Decoded cell is not a vector")
	}
	if bv.Length() != 4 {
		t.Fatalf("Length = %d, want 4", bv.Length())
	}
	if env.IntValue(bv.Get(env, 0)) != 1 || bv.Get(env, 1) != Nil {
		t.Error("Vector slots changed")
	}
	if env.SymbolName(bv.Get(env, 2)) != "s" {
		t.Error("Symbol slot lost")
	}
}

func TestSnapshotNestedContainers(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	inner := NewVector(env, 2)
	VectorOf(env, inner).Put(env, 0, env.Int(9))

	ht := NewHashtable(env, 8)
	HashtableOf(env, ht).Put(env, env.Symbol("v"), inner)

	data, err := EncodeSnapshot(env, ht)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := DecodeSnapshot(env, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	bv := VectorOf(env, HashtableOf(env, back).Get(env, env.Symbol("v")))
	if bv == nil {
		t.Fatal("Nested vector lost")
	}
	if env.IntValue(bv.Get(env, 0)) != 9 {
		t.Error("Nested vector contents lost")
	}
}

func TestSnapshotRejectsNativeFunctions(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	fn := env.NativeFunc(func(env *Env, args Cell) Cell { return Nil })
	if _, err := EncodeSnapshot(env, env.List(fn)); err == nil {
		t.Error("Native functions must not be snapshotable")
	}
}

func TestSnapshotRejectsCorruptInput(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	if _, err := DecodeSnapshot(env, []byte("not cbor at all")); err == nil {
		t.Error("Garbage input should fail")
	}

	// Valid CBOR, wrong magic.
	data, err := EncodeSnapshot(env, env.Int(1))
	if err != nil {
		t.Fatal(err)
	}
	data[findMagicByte(data)] ^= 0xFF
	if _, err := DecodeSnapshot(env, data); err == nil {
		t.Error("Corrupted magic should fail")
	}
}

func TestSnapshotRejectsMalformedContainers(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	encode := func(nodes []snapNode) []byte {
		data, err := cborEncMode.Marshal(&snapshot{
			Magic:   SnapshotMagic,
			Version: SnapshotVersion,
			Root:    0,
			Nodes:   nodes,
		})
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	// A hashtable entry referencing a non-pair node must be a decode
	// error, not a panic.
	bad := encode([]snapNode{
		{Kind: snapHashtable, Buckets: 1, Elems: []int32{1}},
		{Kind: snapInt, Int: 5},
	})
	if _, err := DecodeSnapshot(env, bad); err == nil {
		t.Error("Non-pair hashtable entry should fail to decode")
	}

	// Same for an entry pointing at ().
	nilEntry := encode([]snapNode{
		{Kind: snapHashtable, Buckets: 1, Elems: []int32{snapNil}},
	})
	if _, err := DecodeSnapshot(env, nilEntry); err == nil {
		t.Error("() hashtable entry should fail to decode")
	}

	// And for a negative bucket count.
	negBuckets := encode([]snapNode{
		{Kind: snapHashtable, Buckets: -2},
	})
	if _, err := DecodeSnapshot(env, negBuckets); err == nil {
		t.Error("Negative bucket count should fail to decode")
	}
}

// findMagicByte locates the first byte of the magic string in the encoded
// form so the corruption test can flip it.
func findMagicByte(data []byte) int {
	for i := 0; i+3 < len(data); i++ {
		if string(data[i:i+4]) == SnapshotMagic {
			return i
		}
	}
	return 0
}

func TestSnapshotSurvivesCollection(t *testing.T) {
	env := newTestEnv()
	defer env.Shutdown()

	ht := NewHashtable(env, 8)
	HashtableOf(env, ht).Put(env, env.Symbol("k"), env.Int(5))
	data, err := EncodeSnapshot(env, ht)
	if err != nil {
		t.Fatal(err)
	}

	back, err := DecodeSnapshot(env, data)
	if err != nil {
		t.Fatal(err)
	}
	env.Collect()

	// The decoded graph is rooted; collection must not touch it.
	if env.IntValue(HashtableOf(env, back).Get(env, env.Symbol("k"))) != 5 {
		t.Error("Decoded value lost after collection")
	}
}

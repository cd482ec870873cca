package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Snapshot: versioned binary encoding of a cell graph
//
// Snapshots use canonical CBOR for deterministic output. Shared structure
// and cycles are preserved through a node index. Containers encode
// structurally: a hashtable as its bucket count plus pair nodes, a vector
// as its slot nodes. Native functions and unknown object types are not
// snapshotable.
// ---------------------------------------------------------------------------

// SnapshotMagic identifies a Calyx snapshot.
const SnapshotMagic = "CLYX"

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion uint32 = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	snapCons uint8 = iota + 1
	snapInt
	snapFloat
	snapSymbol
	snapText
	snapHashtable
	snapVector
)

// snapNil is the node index encoding the Nil cell.
const snapNil int32 = -1

type snapNode struct {
	Kind    uint8   `cbor:"k"`
	Int     int64   `cbor:"i,omitempty"`
	Float   float64 `cbor:"f,omitempty"`
	Text    string  `cbor:"s,omitempty"`
	Head    int32   `cbor:"h,omitempty"`
	Tail    int32   `cbor:"t,omitempty"`
	Elems   []int32 `cbor:"e,omitempty"`
	Buckets int32   `cbor:"b,omitempty"`
}

type snapshot struct {
	Magic   string     `cbor:"magic"`
	Version uint32     `cbor:"version"`
	Root    int32      `cbor:"root"`
	Nodes   []snapNode `cbor:"nodes"`
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

type snapshotEncoder struct {
	env   *Env
	index map[Cell]int32
	nodes []snapNode
}

// EncodeSnapshot serializes the cell graph rooted at root.
func EncodeSnapshot(env *Env, root Cell) ([]byte, error) {
	enc := &snapshotEncoder{env: env, index: make(map[Cell]int32)}
	ri, err := enc.encode(root)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&snapshot{
		Magic:   SnapshotMagic,
		Version: SnapshotVersion,
		Root:    ri,
		Nodes:   enc.nodes,
	})
}

func (enc *snapshotEncoder) encode(c Cell) (int32, error) {
	if c == Nil {
		return snapNil, nil
	}
	if i, ok := enc.index[c]; ok {
		return i, nil
	}

	env := enc.env
	r := &env.cells[c]

	// Reserve the index before descending so cycles terminate.
	i := int32(len(enc.nodes))
	enc.index[c] = i
	enc.nodes = append(enc.nodes, snapNode{})

	switch r.kind {
	case ConsCell:
		h, err := enc.encode(r.head)
		if err != nil {
			return 0, err
		}
		t, err := enc.encode(r.tail)
		if err != nil {
			return 0, err
		}
		enc.nodes[i] = snapNode{Kind: snapCons, Head: h, Tail: t}
	case IntCell:
		enc.nodes[i] = snapNode{Kind: snapInt, Int: r.num}
	case FloatCell:
		enc.nodes[i] = snapNode{Kind: snapFloat, Float: r.fnum}
	case SymbolCell:
		enc.nodes[i] = snapNode{Kind: snapSymbol, Text: r.text}
	case TextCell:
		enc.nodes[i] = snapNode{Kind: snapText, Text: r.text}
	case ObjectCell:
		switch data := r.obj.data.(type) {
		case *Hashtable:
			elems := make([]int32, 0, data.count)
			for _, bucket := range data.buckets {
				for node := bucket; node != Nil; node = env.Tail(node) {
					pi, err := enc.encode(env.Head(node))
					if err != nil {
						return 0, err
					}
					elems = append(elems, pi)
				}
			}
			enc.nodes[i] = snapNode{
				Kind:    snapHashtable,
				Buckets: int32(len(data.buckets)),
				Elems:   elems,
			}
		case *Vector:
			elems := make([]int32, len(data.slots))
			for j, s := range data.slots {
				si, err := enc.encode(s)
				if err != nil {
					return 0, err
				}
				elems[j] = si
			}
			enc.nodes[i] = snapNode{Kind: snapVector, Elems: elems}
		default:
			return 0, fmt.Errorf("vm: snapshot: %s objects are not snapshotable", r.obj.typ.Name)
		}
	default:
		return 0, fmt.Errorf("vm: snapshot: cell kind %d is not snapshotable", r.kind)
	}
	return i, nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// DecodeSnapshot reconstructs a cell graph. The result and everything it
// references are left rooted on the protection stack.
func DecodeSnapshot(env *Env, data []byte) (Cell, error) {
	var snap snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return Nil, fmt.Errorf("vm: snapshot: unmarshal: %w", err)
	}
	if snap.Magic != SnapshotMagic {
		return Nil, fmt.Errorf("vm: snapshot: bad magic %q", snap.Magic)
	}
	if snap.Version != SnapshotVersion {
		return Nil, fmt.Errorf("vm: snapshot: unsupported version %d", snap.Version)
	}

	// First pass: allocate every cell so references (including cycles)
	// resolve; second pass wires children.
	cells := make([]Cell, len(snap.Nodes))
	for i, n := range snap.Nodes {
		switch n.Kind {
		case snapCons:
			cells[i] = env.Cons(Nil, Nil)
		case snapInt:
			cells[i] = env.Int(n.Int)
		case snapFloat:
			cells[i] = env.Float(n.Float)
		case snapSymbol:
			cells[i] = env.Symbol(n.Text)
		case snapText:
			cells[i] = env.Text(n.Text)
		case snapHashtable:
			if n.Buckets < 0 {
				return Nil, fmt.Errorf("vm: snapshot: hashtable node %d has negative bucket count", i)
			}
			cells[i] = NewHashtable(env, int(n.Buckets))
		case snapVector:
			cells[i] = NewVector(env, len(n.Elems))
		default:
			return Nil, fmt.Errorf("vm: snapshot: unknown node kind %d", n.Kind)
		}
	}

	resolve := func(i int32) (Cell, error) {
		if i == snapNil {
			return Nil, nil
		}
		if i < 0 || int(i) >= len(cells) {
			return Nil, fmt.Errorf("vm: snapshot: node index %d out of range", i)
		}
		return cells[i], nil
	}

	// Pairs must be fully wired before containers re-bucket them by key
	// hash, so cons cells get their own pass.
	for i, n := range snap.Nodes {
		if n.Kind != snapCons {
			continue
		}
		h, err := resolve(n.Head)
		if err != nil {
			return Nil, err
		}
		t, err := resolve(n.Tail)
		if err != nil {
			return Nil, err
		}
		env.SetHead(cells[i], h)
		env.SetTail(cells[i], t)
	}

	for i, n := range snap.Nodes {
		switch n.Kind {
		case snapHashtable:
			h := HashtableOf(env, cells[i])
			for _, pi := range n.Elems {
				pair, err := resolve(pi)
				if err != nil {
					return Nil, err
				}
				// Hashtable entries must be (key . value) pairs; anything
				// else is a malformed snapshot, not a programming error.
				if !env.IsCons(pair) {
					return Nil, fmt.Errorf("vm: snapshot: hashtable node %d holds non-pair entry %d", i, pi)
				}
				h.addPair(env, pair)
			}
		case snapVector:
			v := VectorOf(env, cells[i])
			for j, si := range n.Elems {
				s, err := resolve(si)
				if err != nil {
					return Nil, err
				}
				v.slots[j] = s
			}
		}
	}

	return resolve(snap.Root)
}

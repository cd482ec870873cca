package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Hashtable: a chained-bucket associative functional object
//
// A hashtable is invocable: applied to a single key it returns the
// associated value, or () when absent (a key bound to () and an absent key
// are indistinguishable; documented limitation). Applied to a key and a
// value it stores the association and returns the value; storing () deletes
// the key.
// ---------------------------------------------------------------------------

// Hashtable is the native payload of the hashtable type. Each bucket is an
// association list of (key . value) pairs, most recent first.
type Hashtable struct {
	count   int
	buckets []Cell
}

// HashtableTag identifies the hashtable type.
var HashtableTag = FourCC("hash")

// HashtableType is the hashtable type descriptor.
var HashtableType = &ObjectType{
	Name: "hashtable",
	Tag:  HashtableTag,
	Make: func(env *Env) ObjectData { return &Hashtable{} },
}

// NewHashtable creates a hashtable sized for the given expected element
// count. The result is left rooted on the protection stack.
func NewHashtable(env *Env, size int) Cell {
	sp := env.StackPos()
	ht := env.NewObject(HashtableType, env.List(env.Int(int64(size))))
	env.stack = append(env.stack[:sp], ht)
	return ht
}

// HashtableOf returns the payload of a hashtable cell, or nil.
func HashtableOf(env *Env, c Cell) *Hashtable {
	h, _ := env.ObjectData(c, HashtableTag).(*Hashtable)
	return h
}

// ---------------------------------------------------------------------------
// Lifecycle hooks
// ---------------------------------------------------------------------------

// Init sizes the bucket array from the optional first constructor
// argument. The bucket count is forced odd to reduce clustering with
// typical hash distributions.
func (h *Hashtable) Init(env *Env, args Cell) {
	n := env.opts.DefaultBuckets
	if args != Nil {
		n = int(env.IntValue(env.Head(args)))
	}
	h.buckets = make([]Cell, n|1)
}

// Mark visits every bucket chain.
func (h *Hashtable) Mark(env *Env) {
	if h.count == 0 {
		return
	}
	for _, b := range h.buckets {
		env.MarkLive(b)
	}
}

// Destroy releases the bucket array. The pair cells themselves belong to
// the collector.
func (h *Hashtable) Destroy(env *Env) {
	h.buckets = nil
	h.count = 0
}

// Write emits {hashtable '((k1 . v1) (k2 . v2) ...)}; a trusted read
// reconstructs a live hashtable from this form.
func (h *Hashtable) Write(env *Env, p *Port) {
	p.PutByte('{')
	p.WriteString("hashtable '(")
	i := 0
	for _, bucket := range h.buckets {
		for node := bucket; node != Nil; node = env.Tail(node) {
			if i > 0 {
				p.PutByte(' ')
			}
			env.WriteCell(p, env.Head(node))
			i++
		}
	}
	p.WriteString(")}")
}

// Apply implements key lookup and key/value update.
func (h *Hashtable) Apply(env *Env, args Cell) Cell {
	key := env.Head(args)
	if rest := env.Tail(args); rest != Nil {
		return h.Put(env, key, env.Head(rest))
	}
	return h.Get(env, key)
}

// View exposes the monadic and iterator capabilities.
func (h *Hashtable) View(id ViewID) any {
	switch id {
	case MonadViewID:
		return MonadView(h)
	case IteratorViewID:
		return IteratorView(h)
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Core operations
// ---------------------------------------------------------------------------

// Count returns the number of live pairs.
func (h *Hashtable) Count() int { return h.count }

// BucketCount returns the current (always odd) bucket count.
func (h *Hashtable) BucketCount() int { return len(h.buckets) }

func bucketForHash(hash uint64, modulus int) int {
	// Stays non-negative for any hash.
	return int(hash % uint64(modulus))
}

// find locates the chain node holding key's pair. prev is the preceding
// chain node (Nil when the pair heads its bucket); link is Nil when the
// key is absent.
func (h *Hashtable) find(env *Env, key Cell) (bucket int, prev, link Cell) {
	bucket = bucketForHash(env.HashCell(key), len(h.buckets))
	prev, link = env.assocFind(h.buckets[bucket], key)
	return bucket, prev, link
}

// Lookup returns the (key . value) pair for key, or Nil when absent.
func (h *Hashtable) Lookup(env *Env, key Cell) Cell {
	_, _, link := h.find(env, key)
	if link == Nil {
		return Nil
	}
	return env.Head(link)
}

// Get returns the value associated with key, or Nil when absent.
func (h *Hashtable) Get(env *Env, key Cell) Cell {
	pair := h.Lookup(env, key)
	if pair == Nil {
		return Nil
	}
	return env.Tail(pair)
}

// Put associates value with key and returns value. A Nil value deletes the
// key's pair if present (a no-op otherwise) and returns Nil.
func (h *Hashtable) Put(env *Env, key, value Cell) Cell {
	bucket, prev, link := h.find(env, key)

	if link != Nil {
		if value != Nil {
			// Key exists: replace the value in place.
			env.SetTail(env.Head(link), value)
			return value
		}
		// Nil value: unlink the pair.
		if prev == Nil {
			h.buckets[bucket] = env.Tail(link)
		} else {
			env.SetTail(prev, env.Tail(link))
		}
		h.count--
		return Nil
	}

	if value == Nil {
		// Deleting an absent key is not an error.
		return Nil
	}

	h.add(env, key, value)
	return value
}

// add prepends a new pair, rehashing first when the load factor invariant
// (count < 2 * bucket_count) would otherwise break.
func (h *Hashtable) add(env *Env, key, value Cell) {
	if h.count+1 >= 2*len(h.buckets) {
		h.rehash(env, len(h.buckets)*2)
	}
	bucket := bucketForHash(env.HashCell(key), len(h.buckets))
	sp := env.StackPos()
	h.buckets[bucket] = env.Cons(env.Cons(key, value), h.buckets[bucket])
	env.Unwind(sp)
	h.count++
}

// rehash re-buckets every pair against the new (forced odd) modulus. The
// existing chain nodes are unlinked and relinked; no pair cells are
// allocated, only the bucket array, bounding collection churn.
func (h *Hashtable) rehash(env *Env, newBucketCount int) {
	newBucketCount |= 1
	newBuckets := make([]Cell, newBucketCount)

	for _, bucket := range h.buckets {
		node := bucket
		for node != Nil {
			next := env.Tail(node)
			b := bucketForHash(env.HashCell(env.Head(env.Head(node))), newBucketCount)
			env.SetTail(node, newBuckets[b])
			newBuckets[b] = node
			node = next
		}
	}

	h.buckets = newBuckets
}

// addPair links an existing (key . value) pair cell into the table,
// preserving the pair's identity. Used by alist conversion and snapshot
// decoding.
func (h *Hashtable) addPair(env *Env, pair Cell) {
	if h.count+1 >= 2*len(h.buckets) {
		h.rehash(env, len(h.buckets)*2)
	}
	bucket := bucketForHash(env.HashCell(env.Head(pair)), len(h.buckets))
	sp := env.StackPos()
	h.buckets[bucket] = env.Cons(pair, h.buckets[bucket])
	env.Unwind(sp)
	h.count++
}

// ---------------------------------------------------------------------------
// Association list conversion
// ---------------------------------------------------------------------------

// HashtableFromAlist builds a hashtable from a list of (key . value)
// pairs. The pair cells are shared with the input list; only the spine is
// rebuilt.
func HashtableFromAlist(env *Env, alist Cell) Cell {
	sp := env.StackPos()
	ht := NewHashtable(env, env.ListLength(alist))
	h := HashtableOf(env, ht)
	for node := alist; node != Nil; node = env.Tail(node) {
		h.addPair(env, env.Head(node))
	}
	env.stack = append(env.stack[:sp], ht)
	return ht
}

// ToAlist returns the table's pairs as a list. The order is unspecified
// (bucket-major, most-recent-first within a bucket) and round-tripping
// will generally disorder.
func (h *Hashtable) ToAlist(env *Env) Cell {
	pairs := make([]Cell, 0, h.count)
	for _, bucket := range h.buckets {
		for node := bucket; node != Nil; node = env.Tail(node) {
			pairs = append(pairs, env.Head(node))
		}
	}
	return env.SliceToList(pairs, 1)
}

// ---------------------------------------------------------------------------
// Monadic view
// ---------------------------------------------------------------------------

// Size returns the pair count as an integer cell.
func (h *Hashtable) Size(env *Env) Cell {
	return env.Int(int64(h.count))
}

// mergeOne stores (key, value), combining with an existing value through
// reduction (old, new) when both are present.
func (h *Hashtable) mergeOne(env *Env, key, value, reduction Cell) {
	sp := env.StackPos()
	_, _, link := h.find(env, key)
	if link != Nil {
		pair := env.Head(link)
		if reduction != Nil {
			env.SetTail(pair, env.Apply(reduction, env.List(env.Tail(pair), value)))
		} else {
			env.SetTail(pair, value)
		}
	} else {
		h.add(env, key, value)
	}
	env.Unwind(sp)
}

// mergeAll folds every pair of other into h.
func (h *Hashtable) mergeAll(env *Env, other *Hashtable, reduction Cell) {
	sp := env.StackPos()
	for _, bucket := range other.buckets {
		for node := bucket; node != Nil; node = env.Tail(node) {
			pair := env.Head(node)
			h.mergeOne(env, env.Head(pair), env.Tail(pair), reduction)
			env.Unwind(sp)
		}
	}
}

// Map applies fn to every value, building a same-shape hashtable with the
// same keys.
func (h *Hashtable) Map(env *Env, fn Cell) Cell {
	result := NewHashtable(env, h.count)
	rh := HashtableOf(env, result)

	sp := env.StackPos()
	for _, bucket := range h.buckets {
		for node := bucket; node != Nil; node = env.Tail(node) {
			pair := env.Head(node)
			rh.add(env, env.Head(pair), env.Apply(fn, env.List(env.Tail(pair))))
			env.Unwind(sp)
		}
	}
	return result
}

// Join merges the receiver with each hashtable in others, combining
// colliding keys via reduction (old, new) when supplied, else
// overwriting.
func (h *Hashtable) Join(env *Env, others, reduction Cell) Cell {
	result := NewHashtable(env, h.count)
	rh := HashtableOf(env, result)

	rh.mergeAll(env, h, Nil)
	for node := others; node != Nil; node = env.Tail(node) {
		other := HashtableOf(env, env.Head(node))
		if other == nil {
			panic(fmt.Sprintf("vm: hashtable join: cell %d is not a hashtable", env.Head(node)))
		}
		rh.mergeAll(env, other, reduction)
	}
	return result
}

// Collect filters pairs satisfying predicate, optionally remapping each
// surviving pair via mapper. Predicate and mapper both receive the
// (key . value) pair; the mapper's result pair is merged like Join.
func (h *Hashtable) Collect(env *Env, predicate, mapper, reduction Cell) Cell {
	result := NewHashtable(env, h.count)
	rh := HashtableOf(env, result)

	sp := env.StackPos()
	for _, bucket := range h.buckets {
		for node := bucket; node != Nil; node = env.Tail(node) {
			pair := env.Head(node)
			if predicate == Nil || env.Apply(predicate, pair) != Nil {
				if mapper != Nil {
					pair = env.Apply(mapper, pair)
				}
				rh.mergeOne(env, env.Head(pair), env.Tail(pair), reduction)
			}
			env.Unwind(sp)
		}
	}
	return result
}

// Reduce left-folds the values in bucket-major order.
func (h *Hashtable) Reduce(env *Env, reduction, initial Cell) Cell {
	result := initial
	sp := env.StackPos()
	for _, bucket := range h.buckets {
		for node := bucket; node != Nil; node = env.Tail(node) {
			result = env.Apply(reduction, env.List(result, env.Tail(env.Head(node))))
			env.Unwind(sp)
			env.Push(result)
		}
	}
	return result
}

// Iterate walks the values in bucket-major order. When cb stops the walk,
// the stopping pair's key is returned.
func (h *Hashtable) Iterate(env *Env, cb IteratorCallback) Cell {
	sp := env.StackPos()
	for _, bucket := range h.buckets {
		for node := bucket; node != Nil; node = env.Tail(node) {
			pair := env.Head(node)
			cont := cb(env, env.Tail(pair))
			env.Unwind(sp)
			if !cont {
				return env.Head(pair)
			}
		}
	}
	return Nil
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// HashtableStats reports bucket occupancy for tuning.
type HashtableStats struct {
	Elements      int
	Buckets       int
	UnusedBuckets int
	Collisions    int
}

// Stats computes occupancy statistics over the current buckets.
func (h *Hashtable) Stats(env *Env) HashtableStats {
	s := HashtableStats{Elements: h.count, Buckets: len(h.buckets)}
	for _, bucket := range h.buckets {
		n := env.ListLength(bucket)
		if n == 0 {
			s.UnusedBuckets++
		} else {
			s.Collisions += n - 1
		}
	}
	return s
}

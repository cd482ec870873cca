package vm

import (
	"time"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Env: the cell arena, protection stack, and collector
// ---------------------------------------------------------------------------

// Options configures a new Env. Zero fields take defaults.
type Options struct {
	InitialCells   int  // arena size at startup (default 4096)
	DefaultBuckets int  // hashtable bucket count when unspecified (default 7)
	TabWidth       int  // tab width for file ports (default 8)
	WriteMarker    bool // emit the UTF-8 marker on freshly written files
}

const (
	defaultInitialCells = 4096
	defaultBucketCount  = 7
	defaultTabWidth     = 8
	minFreeAfterCollect = 8 // grow when less than 1/8 of the arena is free
)

// Env is the value runtime: a cell arena, the interned symbol table, the
// operand protection stack, the registered extension types, and the
// standard ports. An Env is single-threaded; all operations run on the
// caller's stack, cooperatively.
type Env struct {
	cells    []cellRecord
	freeList []Cell
	stack    []Cell // operand protection stack (GC roots)

	symbols     map[string]Cell
	types       map[string]*ObjectType
	typesByTag  map[TypeTag]*ObjectType
	readerForms map[string]ReaderForm

	stdin, stdout, stderr *Port
	shutdownDone          bool

	opts Options
	log  commonlog.Logger

	gcCycles  int
	markQueue []Cell
}

// NewEnv creates a runtime with the given options and registers the
// built-in container types.
func NewEnv(opts Options) *Env {
	if opts.InitialCells <= 0 {
		opts.InitialCells = defaultInitialCells
	}
	if opts.DefaultBuckets <= 0 {
		opts.DefaultBuckets = defaultBucketCount
	}
	if opts.TabWidth <= 0 {
		opts.TabWidth = defaultTabWidth
	}

	env := &Env{
		cells:       make([]cellRecord, 1, opts.InitialCells+1),
		symbols:     make(map[string]Cell),
		types:       make(map[string]*ObjectType),
		typesByTag:  make(map[TypeTag]*ObjectType),
		readerForms: make(map[string]ReaderForm),
		opts:        opts,
		log:         commonlog.GetLogger("calyx.vm"),
	}
	env.growArena(opts.InitialCells)

	env.RegisterType(HashtableType)
	env.RegisterType(VectorType)
	env.RegisterReaderForm("hashtable", readHashtableForm)
	env.RegisterReaderForm("vector", readVectorForm)

	env.initStdPorts()

	return env
}

// Symbol interns a symbol by name. Interned symbols are permanent roots.
func (env *Env) Symbol(name string) Cell {
	if c, ok := env.symbols[name]; ok {
		return c
	}
	c := env.alloc()
	r := &env.cells[c]
	r.kind = SymbolCell
	r.text = name
	env.symbols[name] = c
	return c
}

// ---------------------------------------------------------------------------
// Operand protection stack
//
// Every fresh allocation is pushed here automatically. Callers bracket
// transient work with StackPos/Unwind so that intermediates stay reachable
// exactly as long as they are live.
// ---------------------------------------------------------------------------

// StackPos returns the current protection stack position.
func (env *Env) StackPos() int {
	return len(env.stack)
}

// Push roots c on the protection stack and returns it.
func (env *Env) Push(c Cell) Cell {
	env.stack = append(env.stack, c)
	return c
}

// Unwind releases everything rooted after the given stack position.
func (env *Env) Unwind(sp int) {
	if sp < 0 || sp > len(env.stack) {
		panic("vm: Unwind: bad stack position")
	}
	env.stack = env.stack[:sp]
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

func (env *Env) alloc() Cell {
	if len(env.freeList) == 0 {
		env.Collect()
		if len(env.freeList) < len(env.cells)/minFreeAfterCollect {
			env.growArena(len(env.cells))
		}
	}
	c := env.freeList[len(env.freeList)-1]
	env.freeList = env.freeList[:len(env.freeList)-1]
	env.cells[c] = cellRecord{}
	env.stack = append(env.stack, c)
	return c
}

func (env *Env) growArena(n int) {
	base := len(env.cells)
	for i := 0; i < n; i++ {
		env.cells = append(env.cells, cellRecord{})
	}
	// Free cells are handed out from the end of the list; push in reverse
	// so low handles are used first.
	for i := base + n - 1; i >= base; i-- {
		env.freeList = append(env.freeList, Cell(i))
	}
}

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// MarkLive records c as reachable during the mark phase. Functional object
// mark hooks call this for every cell they hold, directly or transitively;
// a missed reference is a use-after-free once the cell is reclaimed.
func (env *Env) MarkLive(c Cell) {
	if c == Nil {
		return
	}
	r := &env.cells[c]
	if r.marked || r.kind == FreeCell {
		return
	}
	r.marked = true
	env.markQueue = append(env.markQueue, c)
}

// Collect runs a full mark-sweep cycle. Roots are the protection stack and
// the interned symbol table. Unreachable functional objects get their
// destroy hook exactly once, before the slot is reused.
func (env *Env) Collect() {
	start := time.Now()

	for _, c := range env.stack {
		env.MarkLive(c)
	}
	for _, c := range env.symbols {
		env.MarkLive(c)
	}

	for len(env.markQueue) > 0 {
		c := env.markQueue[len(env.markQueue)-1]
		env.markQueue = env.markQueue[:len(env.markQueue)-1]
		r := &env.cells[c]
		switch r.kind {
		case ConsCell:
			env.MarkLive(r.head)
			env.MarkLive(r.tail)
		case ObjectCell:
			r.obj.data.Mark(env)
		}
	}

	freed := 0
	for i := 1; i < len(env.cells); i++ {
		r := &env.cells[i]
		if r.kind == FreeCell {
			continue
		}
		if r.marked {
			r.marked = false
			continue
		}
		if r.kind == ObjectCell {
			r.obj.data.Destroy(env)
		}
		*r = cellRecord{}
		env.freeList = append(env.freeList, Cell(i))
		freed++
	}

	env.gcCycles++
	env.log.Debugf("gc: cycle %d freed %d of %d cells in %s",
		env.gcCycles, freed, len(env.cells)-1, time.Since(start))
}

// CellCount returns the number of live (non-free) cells, excluding Nil.
func (env *Env) CellCount() int {
	n := 0
	for i := 1; i < len(env.cells); i++ {
		if env.cells[i].kind != FreeCell {
			n++
		}
	}
	return n
}

// GCCycles returns the number of completed collection cycles.
func (env *Env) GCCycles() int {
	return env.gcCycles
}

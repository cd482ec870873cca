package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Structural writer
// ---------------------------------------------------------------------------

// WriteCell emits a textual, round-trippable representation of c to the
// port. Functional objects write through their own write hook.
func (env *Env) WriteCell(p *Port, c Cell) {
	if c == Nil {
		p.WriteString("()")
		return
	}
	r := &env.cells[c]
	switch r.kind {
	case IntCell:
		p.WriteString(strconv.FormatInt(r.num, 10))
	case FloatCell:
		s := strconv.FormatFloat(r.fnum, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") && !strings.ContainsAny(s, "IN") {
			s += ".0"
		}
		p.WriteString(s)
	case SymbolCell:
		p.WriteString(r.text)
	case TextCell:
		p.WriteString(strconv.Quote(r.text))
	case NativeCell:
		p.WriteString("<native>")
	case ObjectCell:
		r.obj.data.Write(env, p)
	case ConsCell:
		env.writePair(p, c)
	default:
		p.WriteString("<free>")
	}
}

// WriteLine writes c followed by a newline and flushes the port.
func (env *Env) WriteLine(p *Port, c Cell) {
	env.WriteCell(p, c)
	p.PutByte('\n')
	p.Flush()
}

func (env *Env) writePair(p *Port, c Cell) {
	// (quote x) prints as 'x.
	if env.Kind(env.Head(c)) == SymbolCell && env.SymbolName(env.Head(c)) == "quote" {
		if rest := env.Tail(c); env.IsCons(rest) && env.Tail(rest) == Nil {
			p.PutByte('\'')
			env.WriteCell(p, env.Head(rest))
			return
		}
	}

	p.PutByte('(')
	node := c
	for {
		env.WriteCell(p, env.Head(node))
		next := env.Tail(node)
		if next == Nil {
			break
		}
		if !env.IsCons(next) {
			p.WriteString(" . ")
			env.WriteCell(p, next)
			break
		}
		p.PutByte(' ')
		node = next
	}
	p.PutByte(')')
}

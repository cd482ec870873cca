package vm

import (
	"fmt"
	"io"
	"strconv"
)

// ---------------------------------------------------------------------------
// Minimal structural reader
//
// This covers exactly what the serialization syntax needs: atoms, strings,
// quote, proper and dotted lists, and {type ...} forms. On a trusted port
// a braced form invokes the registered reader constructor and yields a
// live instance; untrusted reads leave it as literal structure. The full
// expression reader is the evaluator's concern, not this runtime's.
// ---------------------------------------------------------------------------

// ReaderForm reconstructs a live value from the literal arguments of a
// {name args...} form read on a trusted port.
type ReaderForm func(env *Env, args Cell) Cell

// RegisterReaderForm registers a trusted-read constructor by name.
func (env *Env) RegisterReaderForm(name string, form ReaderForm) {
	env.readerForms[name] = form
}

// ReadCell reads one value from the port. io.EOF marks a clean end of
// stream; any other error is a parse or stream error.
func (env *Env) ReadCell(p *Port) (Cell, error) {
	b, ok := env.skipSpace(p)
	if !ok {
		return Nil, env.readEOF(p)
	}
	switch b {
	case '(':
		return env.readList(p, ')')
	case '{':
		return env.readBrace(p)
	case ')', '}':
		return Nil, fmt.Errorf("vm: read: unexpected %q", b)
	case '\'':
		inner, err := env.ReadCell(p)
		if err != nil {
			return Nil, err
		}
		return env.List(env.Symbol("quote"), inner), nil
	case '"':
		return env.readString(p)
	default:
		return env.readAtom(p, b)
	}
}

func (env *Env) readEOF(p *Port) error {
	if p.Err() != nil {
		return p.Err()
	}
	return io.EOF
}

func (env *Env) skipSpace(p *Port) (byte, bool) {
	for {
		b, ok := p.GetByte()
		if !ok {
			return 0, false
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case ';':
			for {
				b, ok = p.GetByte()
				if !ok {
					return 0, false
				}
				if b == '\n' {
					break
				}
			}
		default:
			return b, true
		}
	}
}

func isDelimiter(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '(', ')', '{', '}', '\'', '"', ';':
		return true
	}
	return false
}

func (env *Env) readToken(p *Port, first byte) string {
	tok := []byte{first}
	for {
		b, ok := p.GetByte()
		if !ok {
			break
		}
		if isDelimiter(b) {
			p.UngetByte(b)
			break
		}
		tok = append(tok, b)
	}
	return string(tok)
}

func (env *Env) readAtom(p *Port, first byte) (Cell, error) {
	tok := env.readToken(p, first)
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return env.Int(n), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return env.Float(f), nil
	}
	return env.Symbol(tok), nil
}

func (env *Env) readString(p *Port) (Cell, error) {
	var out []byte
	for {
		b, ok := p.GetByte()
		if !ok {
			return Nil, fmt.Errorf("vm: read: unterminated string")
		}
		switch b {
		case '"':
			return env.Text(string(out)), nil
		case '\\':
			e, ok := p.GetByte()
			if !ok {
				return Nil, fmt.Errorf("vm: read: unterminated escape")
			}
			switch e {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			default:
				out = append(out, e)
			}
		default:
			out = append(out, b)
		}
	}
}

// readList parses elements until the closing delimiter, handling a dotted
// tail. The opening delimiter has already been consumed.
func (env *Env) readList(p *Port, close byte) (Cell, error) {
	sp := env.StackPos()
	var elems []Cell
	tail := Nil

	for {
		b, ok := env.skipSpace(p)
		if !ok {
			return Nil, fmt.Errorf("vm: read: unterminated list")
		}
		if b == close {
			break
		}
		if b == '.' {
			if nxt, ok := p.PeekByte(); !ok || isDelimiter(nxt) {
				if len(elems) == 0 {
					return Nil, fmt.Errorf("vm: read: dotted tail without head")
				}
				t, err := env.ReadCell(p)
				if err != nil {
					return Nil, err
				}
				tail = t
				b, ok = env.skipSpace(p)
				if !ok || b != close {
					return Nil, fmt.Errorf("vm: read: malformed dotted tail")
				}
				break
			}
		}
		p.UngetByte(b)
		elem, err := env.ReadCell(p)
		if err != nil {
			return Nil, err
		}
		elems = append(elems, env.Push(elem))
	}

	result := tail
	for i := len(elems) - 1; i >= 0; i-- {
		result = env.Cons(elems[i], result)
	}
	env.stack = append(env.stack[:sp], result)
	return result, nil
}

// readBrace parses {name args...}. Trusted ports reconstruct a live
// instance through the registered reader form; untrusted ports yield the
// literal (name args...) list.
func (env *Env) readBrace(p *Port) (Cell, error) {
	b, ok := env.skipSpace(p)
	if !ok {
		return Nil, fmt.Errorf("vm: read: unterminated brace form")
	}
	name := env.readToken(p, b)

	args, err := env.readList(p, '}')
	if err != nil {
		return Nil, err
	}

	if p.Trusted() {
		if form := env.readerForms[name]; form != nil {
			return form(env, args), nil
		}
	}
	return env.Cons(env.Symbol(name), args), nil
}

// ---------------------------------------------------------------------------
// Built-in reader forms
// ---------------------------------------------------------------------------

// readHashtableForm reconstructs {hashtable '((k . v) ...)}.
func readHashtableForm(env *Env, args Cell) Cell {
	alist := env.Head(args)
	// The printer quotes the pair list; unwrap (quote x).
	if env.IsCons(alist) && env.Kind(env.Head(alist)) == SymbolCell &&
		env.SymbolName(env.Head(alist)) == "quote" {
		alist = env.Head(env.Tail(alist))
	}
	return HashtableFromAlist(env, alist)
}

// readVectorForm reconstructs {vector e1 ... eN}.
func readVectorForm(env *Env, args Cell) Cell {
	return VectorFromSlice(env, env.ListToSlice(args))
}

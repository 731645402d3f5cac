package parser

import (
	"strings"

	"pycall/internal/logging"
	"pycall/internal/token"
)

// Option configures a parse.
type Option func(*parser)

// WithLimits overrides the default resource limits.
func WithLimits(l Limits) Option {
	return func(p *parser) { p.lim = l.withDefaults() }
}

// WithLexerOptions overrides the dialect keyword sets and markers.
func WithLexerOptions(o token.Options) Option {
	return func(p *parser) { p.lex = o }
}

// WithLogger attaches a logger for recovery diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(p *parser) { p.log = logging.OrNop(l) }
}

type parser struct {
	src   string
	toks  []token.Token
	lim   Limits
	lex   token.Options
	log   logging.Logger
	calls []Call
	err   *Error
}

// Parse extracts all function calls from src. It is a pure function, safe
// for concurrent use, and never panics: per-call syntax problems surface as
// completeness classifications and only resource limits set Result.Err.
func Parse(src string, opts ...Option) *Result {
	p := &parser{
		src: src,
		lim: DefaultLimits(),
		lex: token.DefaultOptions(),
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p.run()
}

func (p *parser) run() *Result {
	if p.src == "" {
		return &Result{Err: &Error{Kind: ErrEmptyInput}}
	}
	if len(p.src) > p.lim.MaxInputSize {
		return &Result{Err: &Error{Kind: ErrTooLarge, Pos: p.lim.MaxInputSize}}
	}
	p.toks = token.Tokenize(p.src, p.lex)

	first, last := -1, -1
	note := func(start, end int) {
		if first < 0 || start < first {
			first = start
		}
		if end > last {
			last = end
		}
	}

	bracketDepth := 0
	i := 0
	for i < len(p.toks) && p.err == nil {
		t := p.toks[i]
		switch {
		case isPunct(t, "["):
			if p.isCallStart(i + 1) {
				start, end := p.parseGroup(&i)
				note(start, end)
				continue
			}
			bracketDepth++
			if bracketDepth > p.lim.MaxNestingDepth {
				p.err = &Error{Kind: ErrTooDeep, Pos: t.Off}
				continue
			}
			i++
		case isPunct(t, "]"):
			if bracketDepth > 0 {
				bracketDepth--
			}
			i++
		case p.isCallStart(i):
			start := t.Off
			c := p.parseCall(&i, false)
			if c != nil {
				note(start, c.End)
			}
		default:
			i++
		}
	}

	res := &Result{Calls: p.calls, Err: p.err}
	if len(p.calls) == 0 {
		res.Content = p.src
		return res
	}
	first, last = p.absorbFences(first, last)
	res.First, res.Last = first, last
	res.Content = p.src[:first] + p.src[last:]
	return res
}

// absorbFences widens the call region over dialect fences that directly
// enclose it, so <|python_start|>/<|python_end|> never leak into content.
func (p *parser) absorbFences(first, last int) (int, int) {
	for _, t := range p.toks {
		if t.Kind != token.Marker {
			continue
		}
		if t.End() <= first && strings.TrimSpace(p.src[t.End():first]) == "" {
			first = t.Off
		}
		if t.Off >= last && strings.TrimSpace(p.src[last:t.Off]) == "" {
			last = t.End()
		}
	}
	return first, last
}

// isCallStart reports whether the token at i begins a call expression, i.e.
// an identifier immediately followed by an opening parenthesis.
func (p *parser) isCallStart(i int) bool {
	return i+1 < len(p.toks) &&
		p.toks[i].Kind == token.Identifier &&
		isPunct(p.toks[i+1], "(")
}

// parseGroup parses a bracketed [ call, call, ... ] group. i sits on the
// opening bracket. Tokens that fit no call boundary are skipped so a local
// problem never aborts the rest of the group.
func (p *parser) parseGroup(i *int) (start, end int) {
	start = p.toks[*i].Off
	end = p.toks[*i].End()
	*i++
	for *i < len(p.toks) && p.err == nil {
		t := p.toks[*i]
		switch {
		case isPunct(t, "]"):
			*i++
			return start, t.End()
		case isPunct(t, ","):
			*i++
		case p.isCallStart(*i):
			c := p.parseCall(i, true)
			if c != nil {
				end = c.End
			}
		default:
			p.log.Debug("skipping %s token %q between calls at byte %d", t.Kind, t.Raw, t.Off)
			*i++
		}
	}
	// Unclosed group: calls inside keep their own completeness.
	return start, end
}

// parseCall parses one identifier(...) expression. i sits on the name.
func (p *parser) parseCall(i *int, grouped bool) *Call {
	if len(p.calls) >= p.lim.MaxCalls {
		p.err = &Error{Kind: ErrTooManyCalls, Pos: p.toks[*i].Off}
		return nil
	}

	nameTok := p.toks[*i]
	call := Call{
		Name:    nameTok.Raw,
		Start:   nameTok.Off,
		State:   Partial,
		Grouped: grouped,
	}
	*i += 2 // name and '('
	call.End = nameTok.End() + 1

	expectDelim := false
	for {
		if *i >= len(p.toks) {
			call.End = len(p.src)
			break
		}
		t := p.toks[*i]
		if isPunct(t, ")") {
			*i++
			call.State = Complete
			call.End = t.End()
			break
		}
		if isPunct(t, ",") {
			*i++
			expectDelim = false
			continue
		}
		if t.Kind == token.Marker {
			// A closing fence cuts the call short the same way end of
			// input would.
			call.End = t.Off
			break
		}
		if expectDelim {
			p.malformed(&call, i, t.Off)
			break
		}

		var arg Argument
		if t.Kind == token.Identifier && isPunctAt(p.toks, *i+1, "=") {
			arg.Name = t.Raw
			*i += 2
			if *i >= len(p.toks) {
				// name= at end of input: the value has not started yet.
				arg.Value = Value{Kind: KindPending, Trunc: true}
				call.Args = append(call.Args, arg)
				call.End = len(p.src)
				break
			}
			if next := p.toks[*i]; isPunct(next, ",") || isPunct(next, ")") {
				// name=, and name=) carry an empty value.
				arg.Value = NullValue()
				call.Args = append(call.Args, arg)
				continue
			}
		}

		v, st := p.parseValue(i)
		switch st {
		case stOK:
			arg.Value = v
			call.Args = append(call.Args, arg)
			expectDelim = true
		case stTrunc, stTerminal:
			arg.Value = v
			call.Args = append(call.Args, arg)
			call.End = len(p.src)
		case stMalformed:
			p.malformed(&call, i, p.toks[*i].Off)
		}
		if st != stOK {
			break
		}
	}

	p.calls = append(p.calls, call)
	return &p.calls[len(p.calls)-1]
}

// malformed classifies the call and skips ahead to the next plausible
// top-level boundary so scanning can resume.
func (p *parser) malformed(call *Call, i *int, pos int) {
	call.State = Malformed
	call.End = pos
	p.log.Debug("call %q malformed at byte %d, resuming scan", call.Name, pos)
	for *i < len(p.toks) {
		t := p.toks[*i]
		if isPunct(t, ")") {
			*i++
			call.End = t.End()
			return
		}
		if isPunct(t, "]") || t.Kind == token.Marker || p.isCallStart(*i) {
			return
		}
		*i++
	}
	call.End = len(p.src)
}

type valueStatus uint8

const (
	stOK valueStatus = iota
	stTrunc
	stMalformed
	stTerminal
)

type frameKind uint8

const (
	fList frameKind = iota
	fMap
)

// frame is one open construct on the explicit work stack. Nesting depth is
// the stack length, checked before every push, so pathological input can
// never grow the native call stack.
type frame struct {
	kind    frameKind
	list    []Value
	pairs   []Pair
	key     Value
	haveKey bool
}

// parseValue parses one literal value with an explicit open-construct stack
// instead of recursive descent. i sits on the value's first token.
func (p *parser) parseValue(i *int) (Value, valueStatus) {
	var stack []frame
	expectValue := true

	// attach hands a completed value to the innermost open construct and
	// reports whether the stack was empty, making v the final result.
	attach := func(v Value) bool {
		if len(stack) == 0 {
			return true
		}
		top := &stack[len(stack)-1]
		switch top.kind {
		case fList:
			top.list = append(top.list, v)
		case fMap:
			if !top.haveKey {
				top.key = v
				top.haveKey = true
			} else {
				top.pairs = append(top.pairs, Pair{Key: top.key, Val: v})
				top.haveKey = false
			}
		}
		expectValue = false
		return false
	}

	pop := func() frame {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top
	}

	for {
		if *i >= len(p.toks) {
			return p.truncate(stack, nil), stTrunc
		}
		t := p.toks[*i]

		if expectValue {
			var v Value
			switch t.Kind {
			case token.String:
				v = StringValue(t.Str)
				v.Trunc = t.Unterminated
			case token.Number:
				if t.IsFloat {
					v = FloatValue(t.Float)
				} else {
					v = IntValue(t.Int)
				}
				v.Trunc = t.End() == len(p.src)
			case token.Bool:
				v = BoolValue(t.BoolVal)
				v.Trunc = t.End() == len(p.src)
			case token.Null:
				v = NullValue()
				v.Trunc = t.End() == len(p.src)
			case token.Identifier:
				// A bare identifier value reads as a string.
				v = StringValue(t.Raw)
				v.Bare = true
				v.Trunc = t.End() == len(p.src)
			case token.Punct:
				switch t.Raw {
				case "[", "{":
					if len(stack) >= p.lim.MaxNestingDepth {
						p.err = &Error{Kind: ErrTooDeep, Pos: t.Off}
						return p.truncate(stack, nil), stTerminal
					}
					kind := fList
					if t.Raw == "{" {
						kind = fMap
					}
					stack = append(stack, frame{kind: kind})
					*i++
					continue
				case "]":
					if len(stack) > 0 && stack[len(stack)-1].kind == fList {
						*i++
						closed := pop()
						if attach(Value{Kind: KindList, List: closed.list}) {
							return Value{Kind: KindList, List: closed.list}, stOK
						}
						continue
					}
					return Value{}, stMalformed
				case "}":
					if len(stack) > 0 && stack[len(stack)-1].kind == fMap && !stack[len(stack)-1].haveKey {
						*i++
						closed := pop()
						if attach(Value{Kind: KindMap, Pairs: closed.pairs}) {
							return Value{Kind: KindMap, Pairs: closed.pairs}, stOK
						}
						continue
					}
					return Value{}, stMalformed
				default:
					return Value{}, stMalformed
				}
			default:
				return Value{}, stMalformed
			}

			*i++
			if v.Trunc {
				// Unterminated strings run through end of input; other
				// atoms touching it could still grow with more text.
				return p.truncate(stack, &v), stTrunc
			}
			if attach(v) {
				return v, stOK
			}
			continue
		}

		// Expecting a delimiter inside an open construct.
		top := &stack[len(stack)-1]
		switch {
		case top.kind == fList && isPunct(t, ","):
			*i++
			expectValue = true
		case top.kind == fList && isPunct(t, "]"):
			*i++
			closed := pop()
			if attach(Value{Kind: KindList, List: closed.list}) {
				return Value{Kind: KindList, List: closed.list}, stOK
			}
		case top.kind == fMap && top.haveKey && isPunct(t, ":"):
			*i++
			expectValue = true
		case top.kind == fMap && !top.haveKey && isPunct(t, ","):
			*i++
			expectValue = true
		case top.kind == fMap && !top.haveKey && isPunct(t, "}"):
			*i++
			closed := pop()
			if attach(Value{Kind: KindMap, Pairs: closed.pairs}) {
				return Value{Kind: KindMap, Pairs: closed.pairs}, stOK
			}
		default:
			return Value{}, stMalformed
		}
	}
}

// truncate closes every open construct on the stack as truncated, threading
// the innermost pending value (if any) into its parent. The result is the
// rightmost-spine-truncated value of a partial call.
func (p *parser) truncate(stack []frame, pending *Value) Value {
	cur := pending
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch top.kind {
		case fList:
			if cur != nil {
				top.list = append(top.list, *cur)
			}
			v := Value{Kind: KindList, List: top.list, Trunc: true}
			cur = &v
		case fMap:
			if top.haveKey {
				val := Value{Kind: KindPending, Trunc: true}
				if cur != nil {
					val = *cur
				}
				top.pairs = append(top.pairs, Pair{Key: top.key, Val: val})
			} else if cur != nil {
				// The truncated value is a half-lexed key.
				top.pairs = append(top.pairs, Pair{Key: *cur, Val: Value{Kind: KindPending, Trunc: true}})
			}
			v := Value{Kind: KindMap, Pairs: top.pairs, Trunc: true}
			cur = &v
		}
	}
	if cur == nil {
		return Value{Kind: KindPending, Trunc: true}
	}
	return *cur
}

func isPunct(t token.Token, raw string) bool {
	return t.Kind == token.Punct && t.Raw == raw
}

func isPunctAt(toks []token.Token, i int, raw string) bool {
	return i < len(toks) && isPunct(toks[i], raw)
}

// Package extract converts free-form model output into OpenAI-style tool
// call records. It wraps the parser's recovery semantics behind an API that
// never fails: whatever cannot be read as a call comes back as content.
package extract

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"pycall/internal/logging"
	"pycall/internal/parser"
	"pycall/internal/serialize"
	"pycall/internal/streaming"
	"pycall/internal/token"
)

// FunctionCall is the function half of a tool call record. Arguments is the
// canonical serialized mapping.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is one extracted call in the host wire shape.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Result is the outcome of one extraction. It is immutable once returned;
// results may be shared between callers through the memoization cache.
type Result struct {
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
	Content     string     `json:"content,omitempty"`
	ToolsCalled bool       `json:"tools_called"`

	// Err carries a terminal parse error (resource limits) for diagnostics.
	// Calls salvaged before the limit are still present.
	Err *parser.Error `json:"-"`
}

// Options configures an Extractor.
type Options struct {
	// Limits bound each parse. Zero fields take defaults.
	Limits parser.Limits
	// Lexer overrides the dialect keyword sets and markers.
	Lexer token.Options
	// Flatten collapses a mapping with exactly one pair to its value,
	// recursively, when building host records. Core parse results are
	// never rewritten; only the serialized arguments change.
	Flatten bool
	// JSONFallback attempts to read JSON-shaped tool calls (including
	// <tool_call> tagged blocks) when no pythonic calls are found.
	JSONFallback bool
	// CacheSize bounds the memoization cache. Zero or negative disables it.
	CacheSize int
	// Logger receives recovery diagnostics. Nil disables logging.
	Logger logging.Logger
}

// DefaultOptions matches the host-boundary behavior of the reference
// integrations: flattening and the JSON fallback on, a small cache.
func DefaultOptions() Options {
	return Options{
		Flatten:      true,
		JSONFallback: true,
		CacheSize:    256,
	}
}

// Extractor runs batch extractions. It is safe for concurrent use.
type Extractor struct {
	opts  Options
	log   logging.Logger
	cache *lru.Cache[string, *Result]
}

// New returns an Extractor with the given options.
func New(opts Options) *Extractor {
	e := &Extractor{opts: opts, log: logging.OrNop(opts.Logger)}
	if opts.CacheSize > 0 {
		// Only fails on a non-positive size, which is excluded here.
		e.cache, _ = lru.New[string, *Result](opts.CacheSize)
	}
	return e
}

// Extract reads every tool call out of text. It never fails: text without
// recognizable calls comes back unchanged as Content, and a terminal
// resource-limit error still returns everything salvaged before it.
func (e *Extractor) Extract(text string) *Result {
	if e.cache != nil {
		if r, ok := e.cache.Get(text); ok {
			return r
		}
	}
	r := e.extract(text)
	if e.cache != nil {
		e.cache.Add(text, r)
	}
	return r
}

func (e *Extractor) extract(text string) *Result {
	res := parser.Parse(text,
		parser.WithLimits(e.opts.Limits),
		parser.WithLexerOptions(e.opts.Lexer),
		parser.WithLogger(e.log),
	)

	if !res.HasCalls() {
		if e.opts.JSONFallback {
			if r := e.jsonFallback(text); r != nil {
				return r
			}
		}
		return &Result{Content: text, Err: res.Err}
	}

	out := &Result{Content: res.Content, Err: res.Err}
	if last := res.Calls[len(res.Calls)-1]; last.State != parser.Complete {
		// The text ran out (or broke) inside the final call. The salvaged
		// call is still reported, but the raw text is kept as content so
		// the host loses nothing to a guessed closing.
		out.Content = text
	}
	for _, c := range res.Calls {
		if c.State == parser.Malformed && len(c.Args) == 0 {
			e.log.Debug("dropping malformed call %q with nothing salvaged", c.Name)
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:   "call_" + strconv.Itoa(len(out.ToolCalls)),
			Type: "function",
			Function: FunctionCall{
				Name:      c.Name,
				Arguments: e.arguments(c),
			},
		})
	}
	out.ToolsCalled = len(out.ToolCalls) > 0
	if !out.ToolsCalled {
		out.Content = text
	}
	return out
}

// arguments renders one call's host-boundary arguments: duplicate names
// resolve to their last value, and single-pair mappings flatten when the
// option is on.
func (e *Extractor) arguments(c parser.Call) string {
	cleaned := parser.Call{Name: c.Name}
	seen := map[string]int{}
	for _, a := range c.Args {
		if a.Name != "" {
			if at, dup := seen[a.Name]; dup {
				cleaned.Args[at].Value = a.Value
				continue
			}
			seen[a.Name] = len(cleaned.Args)
		}
		cleaned.Args = append(cleaned.Args, a)
	}
	if e.opts.Flatten {
		for i := range cleaned.Args {
			cleaned.Args[i].Value = flatten(cleaned.Args[i].Value)
		}
	}
	return serialize.Arguments(&cleaned)
}

// flatten collapses mappings with exactly one pair to that pair's value,
// recursively. Children are copied so parse results stay untouched.
func flatten(v parser.Value) parser.Value {
	switch v.Kind {
	case parser.KindMap:
		if len(v.Pairs) == 1 {
			return flatten(v.Pairs[0].Val)
		}
		pairs := make([]parser.Pair, len(v.Pairs))
		for i, p := range v.Pairs {
			pairs[i] = parser.Pair{Key: p.Key, Val: flatten(p.Val)}
		}
		v.Pairs = pairs
	case parser.KindList:
		items := make([]parser.Value, len(v.List))
		for i, item := range v.List {
			items[i] = flatten(item)
		}
		v.List = items
	}
	return v
}

// ExtractStreaming returns the delta between two snapshots of a growing
// response, in the previous/current shape streaming integrations hand over.
// Session state is rebuilt from previous on every call; long-lived consumers
// should hold a streaming.State instead.
func (e *Extractor) ExtractStreaming(previous, current string) *streaming.Delta {
	st := streaming.NewState(streaming.Options{
		Limits: e.opts.Limits,
		Lexer:  e.opts.Lexer,
		Logger: e.log,
	})
	st.Advance(previous)
	return st.Advance(current)
}

package streaming

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"pycall/internal/logging"
	"pycall/internal/parser"
	"pycall/internal/serialize"
	"pycall/internal/token"
)

// Options configures a streaming session.
type Options struct {
	// Limits bound the underlying parses. Zero fields take defaults.
	Limits parser.Limits
	// Lexer overrides the dialect keyword sets and markers.
	Lexer token.Options
	// ProvisionalIndex reports bare calls outside a bracketed group under
	// index -1, so consumers can tell them from confirmed parallel groups.
	ProvisionalIndex bool
	// Logger receives advance diagnostics. Nil disables logging.
	Logger logging.Logger
}

// cursor tracks what has already been emitted for one call.
type cursor struct {
	headerSent bool
	flushed    string
	closed     bool
}

// State is one streaming session over a growing response buffer. It is not
// safe for concurrent use; callers serialize advances per session.
//
// The emission discipline is append-only: once a byte of content or of a
// call's arguments has been emitted it is never retracted, and the
// concatenation of all argument fragments for a call equals its closed
// canonical form after Finalize.
type State struct {
	opts    Options
	log     logging.Logger
	dmp     *diffmatchpatch.DiffMatchPatch
	buf     string
	pos     int // first byte not yet settled as content or call region
	cursors []cursor
	done    bool
}

// NewState returns a fresh streaming session.
func NewState(opts Options) *State {
	return &State{
		opts: opts,
		log:  logging.OrNop(opts.Logger),
		dmp:  diffmatchpatch.New(),
	}
}

// Advance reparses the full buffer so far and returns what the new text
// settled. full must extend the previously seen buffer; a non-extending
// buffer resets the session. A nil Delta means nothing visible changed.
func (s *State) Advance(full string) *Delta {
	if s.done {
		return nil
	}
	if !strings.HasPrefix(full, s.buf) {
		s.log.Warn("stream buffer does not extend previous text, resetting session")
		s.pos = 0
		s.cursors = nil
	}
	s.buf = full
	if full == "" {
		return nil
	}

	res := s.parse(full)
	d := &Delta{}
	s.settleRegion(res, d)
	for i := range res.Calls {
		s.advanceCall(i, &res.Calls[i], d)
	}
	if res.Err == nil {
		s.flushTail(full, d)
	}
	if d.empty() {
		return nil
	}
	return d
}

// AdvanceChunk appends one chunk to the session buffer and advances.
func (s *State) AdvanceChunk(chunk string) *Delta {
	return s.Advance(s.buf + chunk)
}

// Finalize closes the session: partial calls are force-closed to their
// canonical form, malformed calls are emitted with everything salvaged, and
// held-back content is released. Further advances return nil.
func (s *State) Finalize() *Delta {
	if s.done {
		return nil
	}
	s.done = true
	if s.buf == "" {
		return nil
	}

	res := s.parse(s.buf)
	d := &Delta{}
	s.settleRegion(res, d)
	for i := range res.Calls {
		call := &res.Calls[i]
		c := s.cursor(i)
		if c.closed {
			continue
		}
		target := serialize.Arguments(call)
		frag, ok := s.unseen(c, target)
		if !ok {
			s.log.Warn("call %d diverged from emitted prefix at finalize, dropping remainder", i)
			c.closed = true
			continue
		}
		s.emit(d, i, call, c, frag)
		c.closed = true
	}
	if s.pos < len(s.buf) && (res.Err == nil || res.Err.Kind == parser.ErrEmptyInput) {
		d.Content += s.buf[s.pos:]
		s.pos = len(s.buf)
	}
	if d.empty() {
		return nil
	}
	return d
}

func (s *State) parse(full string) *parser.Result {
	return parser.Parse(full,
		parser.WithLimits(s.opts.Limits),
		parser.WithLexerOptions(s.opts.Lexer),
		parser.WithLogger(s.log),
	)
}

// settleRegion flushes content that precedes the recognized call region and
// marks the region itself as consumed.
func (s *State) settleRegion(res *parser.Result, d *Delta) {
	if !res.HasCalls() {
		return
	}
	if s.pos < res.First {
		d.Content += s.buf[s.pos:res.First]
		s.pos = res.First
	}
	if res.Last > s.pos {
		s.pos = res.Last
	}
}

func (s *State) advanceCall(i int, call *parser.Call, d *Delta) {
	c := s.cursor(i)
	if c.closed {
		return
	}

	var target string
	switch call.State {
	case parser.Complete:
		target = serialize.Arguments(call)
	case parser.Partial:
		target = serialize.PartialArguments(call)
	default:
		// Malformed calls freeze until completion or finalize.
		return
	}

	frag, ok := s.unseen(c, target)
	if !ok {
		// A transient lexing boundary; hold until the text settles.
		return
	}
	if frag == "" && c.headerSent && call.State != parser.Complete {
		return
	}
	s.emit(d, i, call, c, frag)
	if call.State == parser.Complete {
		c.closed = true
	}
}

// unseen returns the part of target not yet flushed for c. It reports false
// when the flushed prefix no longer agrees with target.
func (s *State) unseen(c *cursor, target string) (string, bool) {
	common := s.dmp.DiffCommonPrefix(c.flushed, target)
	if common < utf8.RuneCountInString(c.flushed) {
		return "", false
	}
	return target[len(c.flushed):], true
}

func (s *State) emit(d *Delta, i int, call *parser.Call, c *cursor, frag string) {
	cd := CallDelta{Index: s.callIndex(i, call)}
	if !c.headerSent {
		cd.ID = "call_" + strconv.Itoa(cd.Index)
		cd.Type = "function"
		cd.Function.Name = call.Name
		c.headerSent = true
	} else if frag == "" {
		return
	}
	cd.Function.Arguments = frag
	c.flushed += frag
	d.ToolCalls = append(d.ToolCalls, cd)
}

func (s *State) callIndex(i int, call *parser.Call) int {
	if s.opts.ProvisionalIndex && !call.Grouped {
		return -1
	}
	return i
}

func (s *State) cursor(i int) *cursor {
	for len(s.cursors) <= i {
		s.cursors = append(s.cursors, cursor{})
	}
	return &s.cursors[i]
}

// flushTail releases trailing content that can no longer become part of a
// call, holding back any suffix that still might: a trailing identifier run
// (a name may gain its parenthesis), an opening bracket, a partial dialect
// fence, or a split UTF-8 sequence.
func (s *State) flushTail(full string, d *Delta) {
	tail := full[s.pos:]
	cut := len(tail) - s.holdback(tail)
	if cut <= 0 {
		return
	}
	settled := serialize.TrimPartialRune(tail[:cut])
	if settled == "" {
		return
	}
	d.Content += settled
	s.pos += len(settled)
}

func (s *State) holdback(tail string) int {
	n := len(tail)

	// Identifier run touching the end, plus any bracket run in front of
	// it that may be opening a call group. Whitespace after the run is
	// held too: the grammar allows space between a name and its opening
	// parenthesis, so "foo " may still become the call "foo (...)".
	i := n
	for i > 0 && isSpaceByte(tail[i-1]) {
		i--
	}
	j := i
	for j > 0 && isIdentByte(tail[j-1]) {
		j--
	}
	var hold int
	if j < i {
		hold = n - j
	}
	k := j
	for k > 0 && isGroupByte(tail[k-1]) {
		k--
	}
	if strings.ContainsRune(tail[k:j], '[') {
		hold = n - k
	}

	// Any suffix that is a prefix of a dialect fence.
	markers := s.opts.Lexer.Markers
	if markers == nil {
		markers = token.DefaultOptions().Markers
	}
	for _, m := range markers {
		for k := 1; k <= len(m) && k <= n; k++ {
			if strings.HasPrefix(m, tail[n-k:]) && k > hold {
				hold = k
			}
		}
	}
	return hold
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isGroupByte(c byte) bool {
	return c == ',' || c == '[' || isSpaceByte(c)
}

func isSpaceByte(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

package token

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Options configures the keyword sets and dialect markers recognized by the
// lexer. The sets are fixed for the lifetime of a Lexer.
type Options struct {
	// BoolLiterals maps a case-sensitive keyword to its boolean value.
	BoolLiterals map[string]bool
	// NullLiterals is the case-sensitive set of null keywords.
	NullLiterals []string
	// Markers are dialect fences matched verbatim, longest first.
	Markers []string
}

// DefaultOptions covers the pythonic dialect plus its JSON-flavored variant.
func DefaultOptions() Options {
	return Options{
		BoolLiterals: map[string]bool{
			"True":  true,
			"False": false,
			"true":  true,
			"false": false,
		},
		NullLiterals: []string{"None", "null"},
		Markers:      []string{"<|python_start|>", "<|python_end|>"},
	}
}

const punctuation = "()[]{},=:"

// Lexer walks a source string and produces tokens on demand. It is total:
// every byte of input is covered by some token, and no input makes it fail.
type Lexer struct {
	src  string
	pos  int
	opts Options
}

// NewLexer returns a lexer over src using opts.
func NewLexer(src string, opts Options) *Lexer {
	if opts.BoolLiterals == nil && opts.NullLiterals == nil && opts.Markers == nil {
		opts = DefaultOptions()
	}
	return &Lexer{src: src, opts: opts}
}

// Tokenize lexes the whole input at once.
func Tokenize(src string, opts Options) []Token {
	lx := NewLexer(src, opts)
	var toks []Token
	for {
		t, ok := lx.Next()
		if !ok {
			return toks
		}
		toks = append(toks, t)
	}
}

// Next returns the next token, or ok == false at end of input. Whitespace is
// skipped and never emitted.
func (lx *Lexer) Next() (Token, bool) {
	lx.skipSpace()
	if lx.pos >= len(lx.src) {
		return Token{}, false
	}

	start := lx.pos
	c := lx.src[lx.pos]

	switch {
	case c == '<':
		if t, ok := lx.marker(start); ok {
			return t, true
		}
	case isIdentStart(c):
		return lx.identifier(start), true
	case c == '"' || c == '\'':
		return lx.quoted(start, c), true
	case c >= '0' && c <= '9':
		return lx.number(start), true
	case c == '-':
		if lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]) {
			return lx.number(start), true
		}
		if lx.pos+1 == len(lx.src) {
			// A lone minus at end of input is a number still being
			// produced, not junk.
			return lx.number(start), true
		}
	case strings.IndexByte(punctuation, c) >= 0:
		lx.pos++
		return Token{Kind: Punct, Raw: lx.src[start:lx.pos], Off: start}, true
	}

	// No rule matched: consume one rune as Unknown.
	_, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += size
	return Token{Kind: Unknown, Raw: lx.src[start:lx.pos], Off: start}, true
}

func (lx *Lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			lx.pos++
		default:
			return
		}
	}
}

func (lx *Lexer) marker(start int) (Token, bool) {
	rest := lx.src[start:]
	for _, m := range lx.opts.Markers {
		if strings.HasPrefix(rest, m) {
			lx.pos = start + len(m)
			return Token{Kind: Marker, Raw: m, Off: start}, true
		}
	}
	return Token{}, false
}

func (lx *Lexer) identifier(start int) Token {
	lx.pos++
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}
	raw := lx.src[start:lx.pos]
	if v, ok := lx.opts.BoolLiterals[raw]; ok {
		return Token{Kind: Bool, Raw: raw, Off: start, BoolVal: v}
	}
	for _, n := range lx.opts.NullLiterals {
		if raw == n {
			return Token{Kind: Null, Raw: raw, Off: start}
		}
	}
	return Token{Kind: Identifier, Raw: raw, Off: start}
}

// quoted lexes a single- or double-quoted string with standard escapes. A
// missing closing quote yields an Unterminated token running to end of input.
func (lx *Lexer) quoted(start int, quote byte) Token {
	lx.pos++ // opening quote
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == quote {
			lx.pos++
			return Token{Kind: String, Raw: lx.src[start:lx.pos], Off: start, Str: sb.String()}
		}
		if c == '\\' {
			if lx.pos+1 >= len(lx.src) {
				// Backslash at end of input: part of a still-growing escape.
				lx.pos++
				break
			}
			lx.pos++
			sb.WriteByte(unescape(lx.src[lx.pos]))
			lx.pos++
			continue
		}
		sb.WriteByte(c)
		lx.pos++
	}
	return Token{
		Kind:         String,
		Raw:          lx.src[start:lx.pos],
		Off:          start,
		Str:          sb.String(),
		Unterminated: true,
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		// Backslash, quotes, and anything else pass through.
		return c
	}
}

func (lx *Lexer) number(start int) Token {
	if lx.src[lx.pos] == '-' {
		lx.pos++
	}
	lx.digits()
	isFloat := false
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		switch {
		case lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]):
			isFloat = true
			lx.pos++
			lx.digits()
		case lx.pos+1 == len(lx.src):
			// "1." at end of input: a float still being produced.
			isFloat = true
			lx.pos++
		}
	}
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		// Only commit to the exponent when digits follow, or when the
		// input ends mid-exponent and more digits may yet arrive.
		mark := lx.pos
		lx.pos++
		if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
			lx.pos++
		}
		switch {
		case lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]):
			isFloat = true
			lx.digits()
		case lx.pos == len(lx.src):
			isFloat = true
		default:
			lx.pos = mark
		}
	}

	raw := lx.src[start:lx.pos]
	t := Token{Kind: Number, Raw: raw, Off: start, IsFloat: isFloat}
	if !isFloat {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			t.Int = v
			return t
		}
		// Out of int64 range: degrade to float.
		t.IsFloat = true
	}
	t.Float = parseFloatLenient(raw)
	return t
}

// parseFloatLenient parses raw as a float, tolerating the trailing fragment
// of a number cut off by end of input ("2e", "1.", "-").
func parseFloatLenient(raw string) float64 {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	trimmed := strings.TrimRight(raw, ".eE+-")
	f, _ := strconv.ParseFloat(trimmed, 64)
	return f
}

func (lx *Lexer) digits() {
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

package token

import "fmt"

// Kind classifies a lexed token.
type Kind uint8

const (
	// Unknown carries a byte sequence that matched no lexing rule. It is
	// emitted instead of an error so a stray character degrades the
	// surrounding grammar match rather than aborting the lex.
	Unknown Kind = iota
	Identifier
	String
	Number
	Bool
	Null
	Punct
	// Marker is a model-dialect fence such as <|python_start|>.
	Marker
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Identifier:
		return "identifier"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Null:
		return "null"
	case Punct:
		return "punct"
	case Marker:
		return "marker"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Token is a single lexed unit. Raw is the exact source slice and Off its
// byte offset, so Off+len(Raw) is the end of the token's span.
type Token struct {
	Kind Kind
	Raw  string
	Off  int

	// Decoded payloads, populated per Kind.
	Str     string  // String: unescaped content (without quotes)
	Int     int64   // Number with IsFloat == false
	Float   float64 // Number with IsFloat == true
	IsFloat bool
	BoolVal bool // Bool

	// Unterminated marks a string whose closing quote was never seen; the
	// token runs through end of input so the parser can keep the enclosing
	// call as partial instead of discarding it.
	Unterminated bool
}

// End returns the byte offset one past the token's last byte.
func (t Token) End() int {
	return t.Off + len(t.Raw)
}

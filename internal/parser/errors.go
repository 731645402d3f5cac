package parser

import "fmt"

// ErrKind enumerates the parse error taxonomy. Per-call syntax problems are
// recovered locally and surface as a Completeness classification instead;
// only resource-limit kinds terminate a parse.
type ErrKind uint8

const (
	ErrUnterminatedString ErrKind = iota
	ErrUnbalancedBrackets
	ErrUnexpectedToken
	ErrTooDeep
	ErrTooLarge
	ErrTooManyCalls
	ErrEmptyInput
)

func (k ErrKind) String() string {
	switch k {
	case ErrUnterminatedString:
		return "unterminated_string"
	case ErrUnbalancedBrackets:
		return "unbalanced_brackets"
	case ErrUnexpectedToken:
		return "unexpected_token"
	case ErrTooDeep:
		return "too_deep"
	case ErrTooLarge:
		return "too_large"
	case ErrTooManyCalls:
		return "too_many_calls"
	case ErrEmptyInput:
		return "empty_input"
	}
	return "unknown"
}

// Error is a typed parse error. Malformed generative output is routine, so
// errors are plain values and never panics.
type Error struct {
	Kind ErrKind
	Pos  int // byte offset where the condition was detected
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse: %s at byte %d", e.Kind, e.Pos)
}

// Terminal reports whether this kind aborts the whole parse rather than a
// single call.
func (e *Error) Terminal() bool {
	switch e.Kind {
	case ErrTooDeep, ErrTooLarge, ErrTooManyCalls:
		return true
	}
	return false
}

// Limits bound the parser's resource use. Exceeding one yields a typed
// error, never unbounded stack growth or memory use.
type Limits struct {
	// MaxInputSize rejects oversized input in bytes with ErrTooLarge.
	MaxInputSize int
	// MaxNestingDepth bounds the open-construct work stack; exceeding it
	// yields ErrTooDeep.
	MaxNestingDepth int
	// MaxCalls bounds the number of calls in one document; exceeding it
	// yields ErrTooManyCalls.
	MaxCalls int
}

// DefaultLimits are generous enough for real model output while keeping
// adversarial input firmly bounded.
func DefaultLimits() Limits {
	return Limits{
		MaxInputSize:    4 << 20, // 4 MiB
		MaxNestingDepth: 64,
		MaxCalls:        128,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxInputSize <= 0 {
		l.MaxInputSize = d.MaxInputSize
	}
	if l.MaxNestingDepth <= 0 {
		l.MaxNestingDepth = d.MaxNestingDepth
	}
	if l.MaxCalls <= 0 {
		l.MaxCalls = d.MaxCalls
	}
	return l
}

package parser

// Completeness classifies how much of a call's structure was confidently
// parsed. It only ever moves Partial -> Complete or Partial -> Malformed.
type Completeness uint8

const (
	// Partial means the call could still complete with more text.
	Partial Completeness = iota
	// Complete means the call's closing parenthesis was seen.
	Complete
	// Malformed means the call contains a genuine syntax contradiction.
	Malformed
)

func (c Completeness) String() string {
	switch c {
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	case Malformed:
		return "malformed"
	}
	return "invalid"
}

// Call is one extracted function call. Args preserve source order.
type Call struct {
	Name  string
	Args  []Argument
	Start int // byte offset of the name
	End   int // byte offset one past the call's last consumed byte
	State Completeness

	// Grouped is set when the call sits inside an enclosing [ ... ] list
	// (the parallel form). Bare calls have it unset.
	Grouped bool
}

// Arg returns the named argument's value, or false when absent.
func (c *Call) Arg(name string) (Value, bool) {
	for i := len(c.Args) - 1; i >= 0; i-- {
		// Later duplicates shadow earlier ones.
		if c.Args[i].Name == name {
			return c.Args[i].Value, true
		}
	}
	return Value{}, false
}

// Result is the outcome of one parse. Zero calls with a nil Err means no
// call-like structure was found and the text is ordinary content. A non-nil
// Err is terminal for the parse but Calls still carries everything salvaged
// before the limit was hit.
type Result struct {
	Calls []Call

	// Content is the text before the first recognized call plus the text
	// after the last one, verbatim. When no calls were found it is the
	// whole input.
	Content string

	// Span of the recognized call region, including enclosing brackets and
	// dialect fences. Meaningful only when len(Calls) > 0.
	First, Last int

	Err *Error
}

// HasCalls reports whether any call structure was recognized.
func (r *Result) HasCalls() bool { return len(r.Calls) > 0 }

// CompleteCalls returns only the calls whose structure fully closed.
func (r *Result) CompleteCalls() []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.State == Complete {
			out = append(out, c)
		}
	}
	return out
}

package parser

// ValueKind tags the closed set of literal value variants.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
	// KindPending marks a slot whose value has not started yet, e.g. a
	// mapping key seen without its value when the input ran out. It only
	// ever appears on partial calls.
	KindPending
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindPending:
		return "pending"
	}
	return "invalid"
}

// Value is a tagged variant holding any literal argument value. Exactly one
// payload field is meaningful for a given Kind.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	List  []Value
	Pairs []Pair // mappings keep source order

	// Trunc marks a value cut off by end of input: an unterminated string,
	// an unclosed list or mapping, or an atom that touches the end of the
	// buffer and could still grow with more text. Trunc values form the
	// rightmost spine of a partial call.
	Trunc bool

	// Bare marks a string that came from an unquoted identifier. When such
	// a value is also Trunc it may still turn into a keyword, a longer
	// identifier, or an argument name, so partial output must not commit
	// to it.
	Bare bool
}

// Pair is one ordered key/value entry of a mapping.
type Pair struct {
	Key Value
	Val Value
}

// Argument is one call argument, positional (Name empty) or named.
type Argument struct {
	Name  string
	Value Value
}

// StringValue constructs a complete string Value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IntValue constructs an integer Value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue constructs a float Value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// BoolValue constructs a boolean Value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NullValue constructs a null Value.
func NullValue() Value { return Value{Kind: KindNull} }

// ListValue constructs a list Value.
func ListValue(items ...Value) Value { return Value{Kind: KindList, List: items} }

// MapValue constructs a mapping Value.
func MapValue(pairs ...Pair) Value { return Value{Kind: KindMap, Pairs: pairs} }

// Equal reports deep equality of two values, ignoring truncation flags.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull, KindPending:
		return true
	case KindString:
		return v.Str == o.Str
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindBool:
		return v.Bool == o.Bool
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Pairs) != len(o.Pairs) {
			return false
		}
		for i := range v.Pairs {
			if !v.Pairs[i].Key.Equal(o.Pairs[i].Key) || !v.Pairs[i].Val.Equal(o.Pairs[i].Val) {
				return false
			}
		}
		return true
	}
	return false
}

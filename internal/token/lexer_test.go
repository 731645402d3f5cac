package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeCall(t *testing.T) {
	toks := Tokenize(`get_weather(location="New York City", unit="celsius")`, Options{})
	require.Len(t, toks, 10)

	assert.Equal(t, []Kind{
		Identifier, Punct, Identifier, Punct, String, Punct, Identifier, Punct, String, Punct,
	}, kinds(toks))
	assert.Equal(t, "get_weather", toks[0].Raw)
	assert.Equal(t, "New York City", toks[4].Str)
	assert.Equal(t, "celsius", toks[8].Str)
	assert.Equal(t, ")", toks[9].Raw)
}

func TestTokenizeNumbers(t *testing.T) {
	tests := []struct {
		in      string
		isFloat bool
		i       int64
		f       float64
	}{
		{"0", false, 0, 0},
		{"42", false, 42, 0},
		{"-7", false, -7, 0},
		{"3.5", true, 0, 3.5},
		{"-0.25", true, 0, -0.25},
		{"1e3", true, 0, 1000},
		{"2.5e-2", true, 0, 0.025},
	}
	for _, tt := range tests {
		toks := Tokenize(tt.in, Options{})
		require.Len(t, toks, 1, tt.in)
		require.Equal(t, Number, toks[0].Kind, tt.in)
		assert.Equal(t, tt.isFloat, toks[0].IsFloat, tt.in)
		if tt.isFloat {
			assert.Equal(t, tt.f, toks[0].Float, tt.in)
		} else {
			assert.Equal(t, tt.i, toks[0].Int, tt.in)
		}
	}
}

func TestTokenizeNumberEdges(t *testing.T) {
	// Fragments cut off by end of input read as in-progress floats so a
	// byte-at-a-time feed never reinterprets them as junk.
	for _, in := range []string{"1.", "2e", "2e-", "-"} {
		frag := Tokenize(in, Options{})
		require.Len(t, frag, 1, in)
		assert.Equal(t, Number, frag[0].Kind, in)
		assert.True(t, frag[0].IsFloat, in)
	}

	// Mid-input, a dot without following digits stays outside the number.
	toks := Tokenize("1.)", Options{})
	require.Len(t, toks, 3)
	assert.Equal(t, Number, toks[0].Kind)
	assert.Equal(t, "1", toks[0].Raw)
	assert.Equal(t, Unknown, toks[1].Kind)

	// So does a dangling exponent.
	toks = Tokenize("2e)", Options{})
	require.Len(t, toks, 3)
	assert.Equal(t, "2", toks[0].Raw)
	assert.Equal(t, Identifier, toks[1].Kind)

	// Out-of-range integers degrade to float instead of failing.
	toks = Tokenize("99999999999999999999999", Options{})
	require.Len(t, toks, 1)
	assert.True(t, toks[0].IsFloat)
}

func TestTokenizeStrings(t *testing.T) {
	toks := Tokenize(`'single' "double" "esc\"aped" "tab\there"`, Options{})
	require.Len(t, toks, 4)
	assert.Equal(t, "single", toks[0].Str)
	assert.Equal(t, "double", toks[1].Str)
	assert.Equal(t, `esc"aped`, toks[2].Str)
	assert.Equal(t, "tab\there", toks[3].Str)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	toks := Tokenize(`f(location="New`, Options{})
	require.NotEmpty(t, toks)
	last := toks[len(toks)-1]
	require.Equal(t, String, last.Kind)
	assert.True(t, last.Unterminated)
	assert.Equal(t, "New", last.Str)
	assert.Equal(t, len(`f(location="New`), last.End())
}

func TestTokenizeKeywords(t *testing.T) {
	toks := Tokenize("True False None true false null notakeyword", Options{})
	require.Len(t, toks, 7)
	assert.Equal(t, []Kind{Bool, Bool, Null, Bool, Bool, Null, Identifier}, kinds(toks))
	assert.True(t, toks[0].BoolVal)
	assert.False(t, toks[1].BoolVal)
}

func TestTokenizeCustomKeywords(t *testing.T) {
	opts := Options{
		BoolLiterals: map[string]bool{"yes": true, "no": false},
		NullLiterals: []string{"nil"},
	}
	toks := Tokenize("yes no nil True", opts)
	require.Len(t, toks, 4)
	assert.Equal(t, []Kind{Bool, Bool, Null, Identifier}, kinds(toks))
}

func TestTokenizeMarkers(t *testing.T) {
	toks := Tokenize("<|python_start|>[f(a=1)]<|python_end|>", Options{})
	require.NotEmpty(t, toks)
	assert.Equal(t, Marker, toks[0].Kind)
	assert.Equal(t, "<|python_start|>", toks[0].Raw)
	assert.Equal(t, Marker, toks[len(toks)-1].Kind)
}

func TestTokenizeUnknownBytes(t *testing.T) {
	// Total lexing: junk becomes Unknown tokens, never an error.
	toks := Tokenize("f(@#é)", Options{})
	require.Len(t, toks, 6)
	assert.Equal(t, []Kind{Identifier, Punct, Unknown, Unknown, Unknown, Punct}, kinds(toks))
	assert.Equal(t, "é", toks[4].Raw)
}

func TestTokenizeOffsets(t *testing.T) {
	src := `  foo( x = "hi" )`
	toks := Tokenize(src, Options{})
	for _, tok := range toks {
		assert.Equal(t, tok.Raw, src[tok.Off:tok.End()], "offset mismatch for %q", tok.Raw)
	}
}

func TestTokenizeLargeInputTotal(t *testing.T) {
	// The lexer must stay total and linear on degenerate input.
	src := strings.Repeat("[", 100000)
	toks := Tokenize(src, Options{})
	require.Len(t, toks, 100000)
	assert.Equal(t, Punct, toks[0].Kind)
}

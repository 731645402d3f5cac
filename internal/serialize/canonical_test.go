package serialize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycall/internal/parser"
)

func parseOne(t *testing.T, src string) *parser.Call {
	t.Helper()
	res := parser.Parse(src)
	require.Nil(t, res.Err)
	require.Len(t, res.Calls, 1)
	return &res.Calls[0]
}

func TestArgumentsNamed(t *testing.T) {
	c := parseOne(t, `get_weather(location="New York City", unit="celsius")`)
	assert.Equal(t, `{"location":"New York City","unit":"celsius"}`, Arguments(c))
}

func TestArgumentsPositionalOrdinals(t *testing.T) {
	c := parseOne(t, `f(1, "two", None, final=true)`)
	assert.Equal(t, `{"0":1,"1":"two","2":null,"final":true}`, Arguments(c))
}

func TestArgumentsNested(t *testing.T) {
	c := parseOne(t, `f(cfg={"a": [1, 2.5], "b": {"c": null}}, tags=["x", "y"])`)
	assert.Equal(t,
		`{"cfg":{"a":[1,2.5],"b":{"c":null}},"tags":["x","y"]}`,
		Arguments(c))
}

func TestArgumentsEmpty(t *testing.T) {
	c := parseOne(t, `ping()`)
	assert.Equal(t, `{}`, Arguments(c))
}

func TestCanonicalFloats(t *testing.T) {
	cases := map[string]string{
		`f(x=2.5)`:    `{"x":2.5}`,
		`f(x=3.0)`:    `{"x":3.0}`,
		`f(x=-0.25)`:  `{"x":-0.25}`,
		`f(x=1e21)`:   `{"x":1e+21}`,
		`f(x=1.5e-5)`: `{"x":1.5e-05}`,
	}
	for src, want := range cases {
		c := parseOne(t, src)
		assert.Equal(t, want, Arguments(c), src)
	}
}

func TestCanonicalStringEscaping(t *testing.T) {
	c := parseOne(t, "f(s=\"a\\\"b\\nc\")")
	assert.Equal(t, `{"s":"a\"b\nc"}`, Arguments(c))
}

func TestCanonicalNonStringMapKeys(t *testing.T) {
	c := parseOne(t, `f(m={1: "a", true: "b"})`)
	assert.Equal(t, `{"m":{"1":"a","true":"b"}}`, Arguments(c))
}

func TestArgumentsPendingRendersNull(t *testing.T) {
	res := parser.Parse(`f(x=`)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, `{"x":null}`, Arguments(&res.Calls[0]))
}

func TestCanonicalRoundTrips(t *testing.T) {
	// The canonical text of a value must parse back into the same value.
	sources := []string{
		`f(x=[1, 2.5, "a", true, null, {"k": [false]}])`,
		`f(x={"nested": {"deep": [[]]}})`,
		`f(x=-9007199254740993)`,
	}
	for _, src := range sources {
		c := parseOne(t, src)
		v, ok := c.Arg("x")
		require.True(t, ok, src)

		again := parseOne(t, "f(x="+Canonical(v)+")")
		v2, ok := again.Arg("x")
		require.True(t, ok, src)
		assert.True(t, v.Equal(v2), "round-trip of %s", src)
	}
}

func TestPartialArgumentsStreamsStrings(t *testing.T) {
	res := parser.Parse(`get_weather(location="New Yo`)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, `{"location":"New Yo`, PartialArguments(&res.Calls[0]))
}

func TestPartialArgumentsWithholdsTrailingAtoms(t *testing.T) {
	cases := map[string]string{
		`f(x=12`:          `{"x":`,
		`f(x=tru`:         `{"x":`,
		`f(x=`:            `{"x":`,
		`f(x=1, y=[2, 34`: `{"x":1,"y":[2`,
	}
	for src, want := range cases {
		res := parser.Parse(src)
		require.Len(t, res.Calls, 1, src)
		assert.Equal(t, want, PartialArguments(&res.Calls[0]), src)
	}
}

func TestPartialArgumentsWithholdsAmbiguousIdentifier(t *testing.T) {
	// "uni" could become the bare value "unit" or the argument name
	// "unit="; neither its key nor its text may be committed yet.
	res := parser.Parse(`f(x=1, uni`)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, `{"x":1`, PartialArguments(&res.Calls[0]))
}

func TestPartialArgumentsNestedSpine(t *testing.T) {
	res := parser.Parse(`f(x=[1, {"k": "ab`)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, `{"x":[1,{"k":"ab`, PartialArguments(&res.Calls[0]))
}

func TestPartialArgumentsHalfLexedKey(t *testing.T) {
	res := parser.Parse(`f(x={"ke`)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, `{"x":{"ke`, PartialArguments(&res.Calls[0]))
}

// TestPartialPrefixLaw feeds every character-by-character prefix of a full
// response through the parser and checks that each rendering extends the
// previous one purely by appending, ending exactly at the closed form.
func TestPartialPrefixLaw(t *testing.T) {
	full := `[get_weather(location="New York City", unit=celsius, opts={"retries": 3, "fast": true}, scale=1.5)]`

	prev := ""
	for i := 1; i <= len(full); i++ {
		res := parser.Parse(full[:i])
		if !res.HasCalls() {
			continue
		}
		require.Len(t, res.Calls, 1, "prefix %q", full[:i])
		c := &res.Calls[0]

		var cur string
		if c.State == parser.Complete {
			cur = Arguments(c)
		} else {
			cur = PartialArguments(c)
		}
		assert.True(t, strings.HasPrefix(cur, prev),
			"prefix %q rendered %q, not an extension of %q", full[:i], cur, prev)
		if len(cur) > len(prev) {
			prev = cur
		}
	}

	c := parseOne(t, full)
	assert.Equal(t, Arguments(c), prev)
}

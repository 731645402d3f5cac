package streaming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycall/internal/parser"
	"pycall/internal/serialize"
)

// drain feeds full to st one byte at a time, finalizes, and returns the
// accumulated content and per-index argument streams. It fails the test if
// any call's header fields arrive more than once.
func drain(t *testing.T, st *State, full string) (string, map[int]string, map[int]string) {
	t.Helper()
	var content strings.Builder
	args := map[int]string{}
	names := map[int]string{}

	apply := func(d *Delta) {
		if d == nil {
			return
		}
		content.WriteString(d.Content)
		for _, tc := range d.ToolCalls {
			if tc.ID != "" || tc.Function.Name != "" {
				_, seen := names[tc.Index]
				require.False(t, seen, "header re-emitted for index %d", tc.Index)
				names[tc.Index] = tc.Function.Name
				assert.Equal(t, "function", tc.Type)
			}
			args[tc.Index] += tc.Function.Arguments
		}
	}

	for i := 1; i <= len(full); i++ {
		apply(st.Advance(full[:i]))
	}
	apply(st.Finalize())
	return content.String(), names, args
}

func TestStreamSingleCall(t *testing.T) {
	full := `Sure! [get_weather(location="New York City", unit=celsius)] done`
	content, names, args := drain(t, NewState(Options{}), full)

	assert.Equal(t, "Sure!  done", content)
	require.Len(t, names, 1)
	assert.Equal(t, "get_weather", names[0])

	res := parser.Parse(full)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, serialize.Arguments(&res.Calls[0]), args[0])
}

func TestStreamParallelCalls(t *testing.T) {
	full := `[a(x=1), b(y="two")]`
	_, names, args := drain(t, NewState(Options{}), full)

	require.Len(t, names, 2)
	assert.Equal(t, "a", names[0])
	assert.Equal(t, "b", names[1])
	assert.Equal(t, `{"x":1}`, args[0])
	assert.Equal(t, `{"y":"two"}`, args[1])
}

func TestStreamArgumentsAppendOnly(t *testing.T) {
	full := `[f(s="ab\ncd", n=12.5e-2, flag=true, items=[1, {"k": "v"}])]`
	st := NewState(Options{})

	prev := ""
	for i := 1; i <= len(full); i++ {
		d := st.Advance(full[:i])
		if d == nil {
			continue
		}
		for _, tc := range d.ToolCalls {
			prev += tc.Function.Arguments
		}
	}
	if d := st.Finalize(); d != nil {
		for _, tc := range d.ToolCalls {
			prev += tc.Function.Arguments
		}
	}

	res := parser.Parse(full)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, serialize.Arguments(&res.Calls[0]), prev)
}

func TestStreamNumberChunkBoundary(t *testing.T) {
	st := NewState(Options{})
	argsOf := func(d *Delta) string {
		if d == nil {
			return ""
		}
		var sb strings.Builder
		for _, tc := range d.ToolCalls {
			sb.WriteString(tc.Function.Arguments)
		}
		return sb.String()
	}

	got := argsOf(st.AdvanceChunk(`f(x=1.`))
	got += argsOf(st.AdvanceChunk(`5, y=2`))
	got += argsOf(st.AdvanceChunk(`)`))
	got += argsOf(st.Finalize())
	assert.Equal(t, `{"x":1.5,"y":2}`, got)
}

func TestStreamFinalizeForceCloses(t *testing.T) {
	st := NewState(Options{})
	var got strings.Builder
	for _, d := range []*Delta{st.Advance(`[get_weather(location="New`), st.Finalize()} {
		if d == nil {
			continue
		}
		for _, tc := range d.ToolCalls {
			got.WriteString(tc.Function.Arguments)
		}
	}
	assert.Equal(t, `{"location":"New"}`, got.String())
}

func TestStreamProvisionalIndex(t *testing.T) {
	st := NewState(Options{ProvisionalIndex: true})
	d := st.Advance(`f(x=1)`)
	require.NotNil(t, d)
	require.NotEmpty(t, d.ToolCalls)
	assert.Equal(t, -1, d.ToolCalls[0].Index)
	assert.Equal(t, "call_-1", d.ToolCalls[0].ID)

	st = NewState(Options{ProvisionalIndex: true})
	d = st.Advance(`[f(x=1)]`)
	require.NotNil(t, d)
	require.NotEmpty(t, d.ToolCalls)
	assert.Equal(t, 0, d.ToolCalls[0].Index)
}

func TestStreamContentOnly(t *testing.T) {
	st := NewState(Options{})
	d := st.Advance("The weather is nice today.\n")
	require.NotNil(t, d)
	assert.Equal(t, "The weather is nice today.\n", d.Content)
	assert.Empty(t, d.ToolCalls)
	assert.Nil(t, st.Finalize())
}

func TestStreamHoldsTrailingIdentifier(t *testing.T) {
	st := NewState(Options{})
	d := st.Advance("calling get_weather")
	if d != nil {
		// "get_weather" may still gain its parenthesis.
		assert.Equal(t, "calling ", d.Content)
	}
	d = st.Advance(`calling get_weather(city="Oslo")`)
	require.NotNil(t, d)
	require.Len(t, d.ToolCalls, 1)
	assert.Equal(t, "get_weather", d.ToolCalls[0].Function.Name)
}

func TestStreamHoldsNameBeforeSpacedParen(t *testing.T) {
	st := NewState(Options{})
	d := st.Advance("calling foo ")
	if d != nil {
		// "foo " may still gain a parenthesis; space between a name and
		// its "(" is allowed.
		assert.Equal(t, "calling ", d.Content)
	}
	d = st.Advance("calling foo (x=1)")
	require.NotNil(t, d)
	require.Len(t, d.ToolCalls, 1)
	assert.Equal(t, "foo", d.ToolCalls[0].Function.Name)
	assert.Empty(t, d.Content)
}

func TestStreamHoldsPartialFence(t *testing.T) {
	st := NewState(Options{})
	d := st.Advance("ok <|python_")
	require.NotNil(t, d)
	assert.Equal(t, "ok ", d.Content)

	d = st.Advance("ok <|python_start|>[f(x=1)]<|python_end|>")
	require.NotNil(t, d)
	require.NotEmpty(t, d.ToolCalls)
	assert.Empty(t, d.Content)
}

func TestStreamSplitRune(t *testing.T) {
	full := `f(s="héllo")`
	cut := strings.Index(full, "é") + 1 // mid-rune
	st := NewState(Options{})

	var got strings.Builder
	for _, d := range []*Delta{st.Advance(full[:cut]), st.Advance(full), st.Finalize()} {
		if d == nil {
			continue
		}
		for _, tc := range d.ToolCalls {
			got.WriteString(tc.Function.Arguments)
		}
	}
	assert.Equal(t, `{"s":"héllo"}`, got.String())
}

func TestStreamAdvanceAfterFinalize(t *testing.T) {
	st := NewState(Options{})
	st.Advance("hello wor")
	d := st.Finalize()
	require.NotNil(t, d)
	assert.Equal(t, "wor", d.Content)
	assert.Nil(t, st.Advance("hello world"))
}

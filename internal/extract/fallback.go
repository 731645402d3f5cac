package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"pycall/internal/parser"
	"pycall/internal/serialize"
)

const (
	toolCallOpen  = "<tool_call>"
	toolCallClose = "</tool_call>"
)

// jsonFallback reads JSON-shaped tool calls out of text: either tagged
// <tool_call> blocks or one bare object/array carrying name/arguments
// fields. Broken JSON is repaired first. A nil result means the text holds
// nothing call-shaped and pure content handling applies.
func (e *Extractor) jsonFallback(text string) *Result {
	segments, content := splitSegments(text)
	if len(segments) == 0 {
		return nil
	}

	out := &Result{Content: content}
	for _, seg := range segments {
		repaired, err := jsonrepair.JSONRepair(seg)
		if err != nil {
			e.log.Debug("JSON fallback: segment not repairable: %v", err)
			continue
		}
		v, err := decodeJSONValue(repaired)
		if err != nil {
			e.log.Debug("JSON fallback: decode failed: %v", err)
			continue
		}
		for _, obj := range callObjects(v) {
			tc, ok := e.toolCallFromObject(obj, len(out.ToolCalls))
			if !ok {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, tc)
		}
	}
	if len(out.ToolCalls) == 0 {
		return nil
	}
	out.ToolsCalled = true
	return out
}

// splitSegments returns the call-shaped segments of text and the remaining
// content. Tagged blocks win over bare JSON spans.
func splitSegments(text string) ([]string, string) {
	if strings.Contains(text, toolCallOpen) {
		var segs []string
		var content strings.Builder
		rest := text
		for {
			open := strings.Index(rest, toolCallOpen)
			if open < 0 {
				content.WriteString(rest)
				break
			}
			content.WriteString(rest[:open])
			rest = rest[open+len(toolCallOpen):]
			clos := strings.Index(rest, toolCallClose)
			if clos < 0 {
				segs = append(segs, rest)
				break
			}
			segs = append(segs, rest[:clos])
			rest = rest[clos+len(toolCallClose):]
		}
		return segs, content.String()
	}

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return nil, text
	}
	end := strings.LastIndexAny(text, "]}")
	if end <= start {
		return nil, text
	}
	return []string{text[start : end+1]}, text[:start] + text[end+1:]
}

// callObjects unwraps a decoded value into its candidate call objects: a
// mapping stands alone, a list contributes each mapping element.
func callObjects(v parser.Value) []parser.Value {
	switch v.Kind {
	case parser.KindMap:
		return []parser.Value{v}
	case parser.KindList:
		var out []parser.Value
		for _, item := range v.List {
			if item.Kind == parser.KindMap {
				out = append(out, item)
			}
		}
		return out
	}
	return nil
}

func (e *Extractor) toolCallFromObject(obj parser.Value, ord int) (ToolCall, bool) {
	name, ok := mapString(obj, "name")
	if !ok || name == "" {
		return ToolCall{}, false
	}

	args := "{}"
	for _, field := range []string{"arguments", "parameters"} {
		v, found := mapField(obj, field)
		if !found {
			continue
		}
		if v.Kind == parser.KindString {
			// Arguments already arrived serialized.
			args = v.Str
		} else {
			if e.opts.Flatten && v.Kind == parser.KindMap {
				pairs := make([]parser.Pair, len(v.Pairs))
				for i, p := range v.Pairs {
					pairs[i] = parser.Pair{Key: p.Key, Val: flatten(p.Val)}
				}
				v.Pairs = pairs
			}
			args = serialize.Canonical(v)
		}
		break
	}

	return ToolCall{
		ID:       "call_" + strconv.Itoa(ord),
		Type:     "function",
		Function: FunctionCall{Name: name, Arguments: args},
	}, true
}

func mapField(obj parser.Value, key string) (parser.Value, bool) {
	for _, p := range obj.Pairs {
		if p.Key.Kind == parser.KindString && p.Key.Str == key {
			return p.Val, true
		}
	}
	return parser.Value{}, false
}

func mapString(obj parser.Value, key string) (string, bool) {
	v, ok := mapField(obj, key)
	if !ok || v.Kind != parser.KindString {
		return "", false
	}
	return v.Str, true
}

// decodeJSONValue decodes one JSON document into a Value, preserving key
// order, which encoding/json's map decoding would lose.
func decodeJSONValue(src string) (parser.Value, error) {
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return parser.Value{}, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (parser.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return parser.Value{}, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (parser.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := parser.Value{Kind: parser.KindMap}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return parser.Value{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return parser.Value{}, err
				}
				v.Pairs = append(v.Pairs, parser.Pair{Key: parser.StringValue(key), Val: val})
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return parser.Value{}, err
			}
			return v, nil
		case '[':
			v := parser.Value{Kind: parser.KindList}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return parser.Value{}, err
				}
				v.List = append(v.List, item)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return parser.Value{}, err
			}
			return v, nil
		}
		return parser.Value{}, nil
	case string:
		return parser.StringValue(t), nil
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return parser.IntValue(i), nil
		}
		f, _ := t.Float64()
		return parser.FloatValue(f), nil
	case bool:
		return parser.BoolValue(t), nil
	default: // nil
		return parser.NullValue(), nil
	}
}

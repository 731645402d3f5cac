// Package serialize renders argument values to their canonical textual
// form. The canonical form is a pure deterministic function of the value:
// JSON-like syntax, mapping keys in source order, integers without a decimal
// point, floats in their shortest round-trippable representation.
package serialize

import (
	"strconv"
	"strings"

	"pycall/internal/parser"
)

// Canonical renders a value to its closed canonical form. Pending slots
// (values that never started before input ran out) render as null, so the
// closed form of a partial value is always syntactically complete.
func Canonical(v parser.Value) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

// Arguments renders a call's arguments as one closed canonical mapping.
// Named arguments are keyed by name; positional arguments by their ordinal
// position in the argument list.
func Arguments(c *parser.Call) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, arg := range c.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeKeyString(&sb, argKey(arg, i))
		sb.WriteByte(':')
		writeValue(&sb, arg.Value)
	}
	sb.WriteByte('}')
	return sb.String()
}

func argKey(arg parser.Argument, ord int) string {
	if arg.Name != "" {
		return arg.Name
	}
	return strconv.Itoa(ord)
}

func writeValue(sb *strings.Builder, v parser.Value) {
	switch v.Kind {
	case parser.KindNull, parser.KindPending:
		sb.WriteString("null")
	case parser.KindString:
		writeKeyString(sb, v.Str)
	case parser.KindInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case parser.KindFloat:
		sb.WriteString(formatFloat(v.Float))
	case parser.KindBool:
		if v.Bool {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case parser.KindList:
		sb.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeValue(sb, item)
		}
		sb.WriteByte(']')
	case parser.KindMap:
		sb.WriteByte('{')
		for i, pair := range v.Pairs {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeKey(sb, pair.Key)
			sb.WriteByte(':')
			writeValue(sb, pair.Val)
		}
		sb.WriteByte('}')
	}
}

// writeKey renders a mapping key. JSON object keys must be strings, so
// non-string keys are rendered as the quoted form of their canonical text.
func writeKey(sb *strings.Builder, key parser.Value) {
	if key.Kind == parser.KindString {
		writeKeyString(sb, key.Str)
		return
	}
	writeKeyString(sb, Canonical(key))
}

func writeKeyString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	escapeInto(sb, s)
	sb.WriteByte('"')
}

func escapeInto(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 {
				const hex = "0123456789abcdef"
				sb.WriteString(`\u00`)
				sb.WriteByte(hex[c>>4])
				sb.WriteByte(hex[c&0xf])
			} else {
				sb.WriteByte(c)
			}
		}
	}
}

// formatFloat renders the shortest representation that parses back to the
// same float64. Integral results get a trailing .0 so the canonical text
// still reads back as a float, keeping round-trips type-exact.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eE") {
		return s
	}
	if s == "+Inf" || s == "-Inf" || s == "NaN" {
		// Not producible by the lexer; render as null for safety.
		return "null"
	}
	return s + ".0"
}

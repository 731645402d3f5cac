package serialize

import (
	"strings"
	"unicode/utf8"

	"pycall/internal/parser"
)

// PartialArguments renders the longest committed prefix of a partial call's
// canonical argument mapping. Every byte it returns is guaranteed to be a
// prefix of the canonical text of any future extension of the same call, so
// streaming consumers can emit it and only ever append afterwards.
//
// The prefix stops short of anything that could still change shape:
//
//   - atoms touching the end of the buffer are withheld entirely, since
//     "12" may yet grow into "12e-5" and "tru" into "true";
//   - a trailing bare identifier in argument position is withheld together
//     with its key, since it may turn out to be an argument name;
//   - unterminated quoted strings stream character by character, because
//     escaping is applied per character and a longer string can only append.
//
// The returned text is intentionally unclosed. Arguments renders the closed
// form once the call completes or is finalized.
func PartialArguments(c *parser.Call) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, arg := range c.Args {
		v := arg.Value
		if arg.Name == "" && v.Trunc && v.Bare {
			// Still ambiguous between a value and an argument name.
			break
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		writeKeyString(&sb, argKey(arg, i))
		sb.WriteByte(':')
		if !writePartialValue(&sb, v) {
			break
		}
	}
	return sb.String()
}

// writePartialValue writes the committed prefix of v and reports whether the
// value was rendered completely.
func writePartialValue(sb *strings.Builder, v parser.Value) bool {
	if !v.Trunc {
		writeValue(sb, v)
		return true
	}
	switch v.Kind {
	case parser.KindString:
		if v.Bare {
			return false
		}
		sb.WriteByte('"')
		escapeInto(sb, TrimPartialRune(v.Str))
		return false
	case parser.KindList:
		sb.WriteByte('[')
		for i, item := range v.List {
			var part strings.Builder
			done := writePartialValue(&part, item)
			if part.Len() > 0 {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(part.String())
			}
			if !done {
				break
			}
		}
		return false
	case parser.KindMap:
		sb.WriteByte('{')
		for i, pair := range v.Pairs {
			if pair.Key.Trunc {
				if pair.Key.Kind == parser.KindString && !pair.Key.Bare {
					if i > 0 {
						sb.WriteByte(',')
					}
					sb.WriteByte('"')
					escapeInto(sb, TrimPartialRune(pair.Key.Str))
				}
				break
			}
			if i > 0 {
				sb.WriteByte(',')
			}
			writeKey(sb, pair.Key)
			sb.WriteByte(':')
			if !writePartialValue(sb, pair.Val) {
				break
			}
		}
		return false
	default:
		// Pending slots and trailing atoms are withheld.
		return false
	}
}

// TrimPartialRune drops a trailing incomplete UTF-8 sequence so partial
// output always stays valid text; the bytes render once the rune is whole.
func TrimPartialRune(s string) string {
	for i := 1; i <= utf8.UTFMax && i <= len(s); i++ {
		b := s[len(s)-i]
		if b < utf8.RuneSelf {
			return s
		}
		if b&0xC0 == 0xC0 {
			if utf8.ValidString(s[len(s)-i:]) {
				return s
			}
			return s[:len(s)-i]
		}
	}
	return s
}

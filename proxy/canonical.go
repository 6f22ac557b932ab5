package proxy

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oarkflow/json"
)

const hexDigits = "0123456789abcdef"

// canonicalize rewrites compact JSON so numbers and strings take the
// spelling JSON.stringify gives them: 1.0 becomes 1, 1e2 becomes 100 and
// "a\/b" becomes "a/b". Key order and structure are kept.
func canonicalize(compacted []byte) []byte {
	out := make([]byte, 0, len(compacted))
	for i := 0; i < len(compacted); {
		c := compacted[i]
		switch {
		case c == '"':
			end := stringEnd(compacted, i)
			out = appendString(out, compacted[i:end])
			i = end
		case c == '-' || (c >= '0' && c <= '9'):
			end := i + 1
			for end < len(compacted) && isNumberByte(compacted[end]) {
				end++
			}
			out = appendNumber(out, compacted[i:end])
			i = end
		default:
			out = append(out, c)
			i++
		}
	}
	return out
}

// stringEnd returns the index just past the string literal opening at start.
func stringEnd(b []byte, start int) int {
	for j := start + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(b)
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-'
}

func appendString(out, raw []byte) []byte {
	var s string
	// Lone surrogates decode to U+FFFD; keep their original escapes.
	if err := json.Unmarshal(raw, &s); err != nil || strings.ContainsRune(s, utf8.RuneError) {
		return append(out, raw...)
	}
	out = append(out, '"')
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\b':
			out = append(out, '\\', 'b')
		case '\f':
			out = append(out, '\\', 'f')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			if r < 0x20 {
				out = append(out, '\\', 'u', '0', '0', hexDigits[r>>4], hexDigits[r&0xf])
				continue
			}
			out = utf8.AppendRune(out, r)
		}
	}
	return append(out, '"')
}

func appendNumber(out, raw []byte) []byte {
	f, err := strconv.ParseFloat(string(raw), 64)
	if math.IsInf(f, 0) {
		return append(out, "null"...)
	}
	if f == 0 {
		return append(out, '0')
	}
	if err != nil {
		return append(out, raw...)
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return append(out, mantissa+"e"+sign+digits...)
	}
	return strconv.AppendFloat(out, f, 'f', -1, 64)
}

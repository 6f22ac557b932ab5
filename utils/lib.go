package utils

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/oarkflow/json"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips combining marks so that "Benoît" and
// "benoit" compare equal.
func Fold(s string) string {
	if isLowerASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func isLowerASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= utf8.RuneSelf || (c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// Tokenize folds text and splits it on every rune that is not a letter or
// a digit. The returned tokens never alias the input.
func Tokenize(text string) []string {
	folded := Fold(text)
	var tokens []string
	start := -1
	for i, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, strings.Clone(folded[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, strings.Clone(folded[start:]))
	}
	return tokens
}

// NormalizeName produces the comparison key for a person's name: folded,
// lowercased and with inner whitespace collapsed to single spaces.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(Fold(name)), " ")
}

// CollapseSpaces trims s and collapses runs of whitespace.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Prefixes returns every rune-boundary prefix of term, shortest first.
func Prefixes(term string) []string {
	if term == "" {
		return nil
	}
	out := make([]string, 0, utf8.RuneCountInString(term))
	for i := range term {
		if i == 0 {
			continue
		}
		out = append(out, term[:i])
	}
	return append(out, term)
}

func ToString(val any) string {
	switch val := val.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case json.Number:
		return val.String()
	case int, int32, int64, int8, int16, uint, uint32, uint64, uint8, uint16:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

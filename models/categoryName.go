package models

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	UncategorizedCategory = "Uncategorized"
	CategorySeparator     = ">"
)

var unicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

// DecodeCategoryName turns the stored form of a category (HTML entities and
// literal \uXXXX escapes, nested to any depth) into its display form.
// Applying it twice gives the same result as applying it once.
func DecodeCategoryName(s string) string {
	out := s
	// decode until stable; nesting can never be deeper than the input is long
	for i := 0; i <= len(s); i++ {
		next := decodeUnicodeEscapes(html.UnescapeString(out))
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}

// decodeUnicodeEscapes replaces each \uXXXX escape with its rune. A high
// surrogate directly followed by a low surrogate escape becomes one rune;
// unpaired surrogates become U+FFFD.
func decodeUnicodeEscapes(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	matches := unicodeEscape.FindAllStringSubmatchIndex(s, -1)
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for i := 0; i < len(matches); i++ {
		m := matches[i]
		b.WriteString(s[last:m[0]])
		last = m[1]

		hi := escapedRune(s[m[2]:m[3]])
		if isHighSurrogate(hi) && i+1 < len(matches) && matches[i+1][0] == m[1] {
			next := matches[i+1]
			lo := escapedRune(s[next[2]:next[3]])
			if isLowSurrogate(lo) {
				b.WriteRune(utf16.DecodeRune(hi, lo))
				last = next[1]
				i++
				continue
			}
		}
		b.WriteString(decodeRune(hi))
	}
	b.WriteString(s[last:])
	return b.String()
}

func escapedRune(hex string) rune {
	v, _ := strconv.ParseUint(hex, 16, 32)
	return rune(v)
}

func isHighSurrogate(r rune) bool {
	return utf16.IsSurrogate(r) && r < 0xdc00
}

func isLowSurrogate(r rune) bool {
	return r >= 0xdc00 && r <= 0xdfff
}

func decodeRune(r rune) string {
	if utf16.IsSurrogate(r) {
		return string('�')
	}
	return string(r)
}

// CategoryLeaf is the segment after the last ">" ("Medical>Wound Care" -> "Wound Care").
func CategoryLeaf(name string) string {
	if i := strings.LastIndex(name, CategorySeparator); i >= 0 {
		return strings.TrimSpace(name[i+len(CategorySeparator):])
	}
	return strings.TrimSpace(name)
}

// CategoryParent returns the path before the last ">" or "" for a root category.
func CategoryParent(name string) string {
	if i := strings.LastIndex(name, CategorySeparator); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return ""
}

// NormalizeCategoryPath decodes and trims each segment of a hierarchical name.
func NormalizeCategoryPath(name string) string {
	decoded := DecodeCategoryName(name)
	segments := strings.Split(decoded, CategorySeparator)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return strings.Join(out, CategorySeparator)
}

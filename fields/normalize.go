package fields

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Data is form data keyed by normalized field name
type Data map[string]string

// Normalize canonicalizes an external field label into the comparable key space.
// Diacritics are folded to their base letter before anything outside [a-z0-9]
// is dropped, so "Endereço" and "ENDERECO" both become "endereco".
func Normalize(key any) string {
	folded := Fold(ToString(key))

	var builder strings.Builder
	builder.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// Fold lower-cases s and strips combining marks, keeping every other character
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ToString coerces a form value to its string representation.
// nil becomes the empty string.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// NormalizeData normalizes every key of raw form data.
// When several labels collapse to the same key, a non-blank value beats a blank
// one and, among non-blank values, the lexicographically smallest label wins.
func NormalizeData(raw map[string]any) Data {
	labels := make([]string, 0, len(raw))
	for label := range raw {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	data := make(Data, len(raw))
	for _, label := range labels {
		key := Normalize(label)
		if key == "" {
			continue
		}
		value := ToString(raw[label])
		if existing, ok := data[key]; ok && (strings.TrimSpace(existing) != "" || strings.TrimSpace(value) == "") {
			continue
		}
		data[key] = value
	}
	return data
}

// RelevantKeys returns the keys whose value is non-blank after trimming
func (d Data) RelevantKeys() map[string]bool {
	keys := make(map[string]bool, len(d))
	for k, v := range d {
		if strings.TrimSpace(v) != "" {
			keys[k] = true
		}
	}
	return keys
}

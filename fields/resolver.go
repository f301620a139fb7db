package fields

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnnormalizedKey = errors.New("mapping key is not normalized")
	ErrDuplicateKey    = errors.New("mapping key claimed by more than one field")
	ErrEmptySynonyms   = errors.New("mapping field has no synonyms")
)

// MappingTable maps an internal field name to the ordered list of normalized
// external keys accepted as synonyms. Order decides precedence.
type MappingTable map[string][]string

// Resolve returns the first value in data, following the table's declared
// order for internalName, that is non-blank after trimming. def is returned
// when nothing qualifies.
func (t MappingTable) Resolve(data Data, internalName, def string) string {
	for _, key := range t[internalName] {
		value, ok := data[key]
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return def
}

// Has reports whether any synonym of internalName resolves to a value
func (t MappingTable) Has(data Data, internalName string) bool {
	return t.Resolve(data, internalName, "") != ""
}

// Validate checks that every synonym is already normalized and that no synonym
// is shared by two internal fields.
func (t MappingTable) Validate() error {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	owner := make(map[string]string)
	var errs []error
	for _, name := range names {
		keys := t[name]
		if len(keys) == 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrEmptySynonyms, name))
			continue
		}
		for _, key := range keys {
			if Normalize(key) != key || key == "" {
				errs = append(errs, fmt.Errorf("%w: %s.%q", ErrUnnormalizedKey, name, key))
				continue
			}
			if prev, ok := owner[key]; ok && prev != name {
				errs = append(errs, fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateKey, key, prev, name))
				continue
			}
			owner[key] = name
		}
	}
	return errors.Join(errs...)
}

package taxonomy

import (
	"strings"
	"sync"
)

var (
	indexOnce sync.Once
	index     map[Field]map[string]string
)

// buildIndex precomputes the normalized lookup table. The table is immutable
// after load.
func buildIndex() {
	index = make(map[Field]map[string]string, len(vocabularies))

	for field, values := range vocabularies {
		m := make(map[string]string, len(values))
		for _, v := range values {
			m[normalize(v)] = v
		}

		index[field] = m
	}
}

// normalize lowercases a value and folds delimiter variants to single spaces
// so "Bomber_Jacket" and "bomber-jacket" both resolve.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	replacer := strings.NewReplacer("_", " ", "-", " ", "/", " ")
	s = replacer.Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

// Canonicalize resolves a raw value into the controlled vocabulary for the
// given field. It is case-insensitive and delimiter-tolerant. Unrecognized
// values map to the Uncertain sentinel with ok=false; the function is total.
func Canonicalize(field Field, value string) (string, bool) {
	indexOnce.Do(buildIndex)

	if strings.TrimSpace(value) == "" {
		return Uncertain, false
	}

	norm := normalize(value)
	if norm == Uncertain {
		return Uncertain, true
	}

	if canonical, ok := index[field][norm]; ok {
		return canonical, true
	}

	// Vest/gilet naming shows up under several delimiters that normalize
	// away the slash; special-case the lookup.
	if field == FieldGarment && (norm == "vest gilet" || norm == "gilet" || norm == "vest") {
		return GarmentVestGilet, true
	}

	return Uncertain, false
}

// IsGenericFabric reports whether a material string is too generic to keep.
func IsGenericFabric(value string) bool {
	_, generic := genericFabricTerms[normalize(value)]
	return generic
}

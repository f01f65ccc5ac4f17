package larder

import "github.com/mesh-intelligence/larder/internal/facade"

// Predicate tests one stored scalar value. Absent and null fields are passed
// as nil. Numbers arrive as float64.
type Predicate func(value any) bool

// Equals matches values whose stored encoding equals want's, so 1 and 1.0
// match while "1" does not.
func Equals(want any) Predicate {
	enc, err := facade.EncodeValue(want)
	return func(v any) bool {
		if err != nil {
			return false
		}
		got, gerr := facade.EncodeValue(v)
		return gerr == nil && got == enc
	}
}

// NotEquals is the negation of Equals.
func NotEquals(want any) Predicate { return Not(Equals(want)) }

// In matches any of values.
func In(values ...any) Predicate {
	preds := make([]Predicate, len(values))
	for i, v := range values {
		preds[i] = Equals(v)
	}
	return func(v any) bool {
		for _, p := range preds {
			if p(v) {
				return true
			}
		}
		return false
	}
}

// IsNull matches absent and null fields.
func IsNull() Predicate {
	return func(v any) bool { return v == nil }
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(v any) bool { return !p(v) }
}

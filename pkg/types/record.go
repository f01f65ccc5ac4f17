package types

// Record holds the field values of one entity keyed by field name. Scalar
// fields hold JSON-compatible values; relation fields hold a nested Record
// (singular) or a slice of them (collection).
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether field is present, even when its value is nil.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

package facade

import (
	"fmt"
	"strconv"
	"strings"
)

// Key layout. These formats are shared with existing dumps and must not change.
const (
	indexPrefix = "::index-of::"
	indexSuffix = "-identifiers::"
)

// TableIndexKey returns the key holding the identifiers stored in table.
func TableIndexKey(table string) string {
	return indexPrefix + table + indexSuffix
}

// RelationIndexKey returns the key of the bucket listing the identifiers in
// src whose foreign key fk, pointing at dest, equals value.
func RelationIndexKey(dest, src, fk string, value any) string {
	return fmt.Sprintf("%s%s%swhich-has-one::%s::as::%s::with-identifier::%s::",
		indexPrefix, src, indexSuffix, dest, fk, KeyString(value))
}

// DataKey returns the key of one scalar field. Delimiters inside identifiers
// are not escaped.
func DataKey(table string, id any, field string) string {
	return table + ":" + KeyString(id) + ":" + field + ";"
}

// IsIndexKey reports whether key is a table or relation index key.
func IsIndexKey(key string) bool {
	return strings.HasPrefix(key, indexPrefix)
}

// KeyString renders an identifier or foreign key value for use inside a key.
// nil renders as "null". Floats never use exponent form, so an int id and
// the float64 it decodes to from an index render alike.
func KeyString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

package larder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// ParseValue decodes s as a JSON value and falls back to the raw string, so
// "1" is a number, "null" is nil and "Ada" is a string.
func ParseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// ParseFilter parses "field=value" or "field!=value" into a condition for
// Where. The value is read with ParseValue.
func ParseFilter(expr string) (string, Predicate, error) {
	if field, value, ok := strings.Cut(expr, "!="); ok && field != "" {
		return field, NotEquals(ParseValue(value)), nil
	}
	if field, value, ok := strings.Cut(expr, "="); ok && field != "" {
		return field, Equals(ParseValue(value)), nil
	}
	return "", nil, fmt.Errorf("%w: filter %q, expected field=value", types.ErrInvalidData, expr)
}

// Filter applies every expression with ParseFilter. With no expressions it
// matches every entity.
func (q *Query) Filter(exprs ...string) *ConditionalQuery {
	c := &ConditionalQuery{q: q, err: q.err}
	for _, e := range exprs {
		field, pred, err := ParseFilter(e)
		if err != nil {
			if c.err == nil {
				c.err = err
			}
			return c
		}
		c = c.Where(field, pred)
	}
	return c
}

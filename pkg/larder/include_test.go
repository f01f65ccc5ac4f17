package larder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIncludes(t *testing.T) {
	m := ParseIncludes("address.person", "address.person.address", "owner", "")
	assert.Equal(t, []string{"address", "owner"}, m.Keys())
	assert.True(t, m.Has("address"))
	assert.False(t, m.Has("person"))
	assert.Equal(t, []string{"person"}, m.Child("address").Keys())
	assert.Equal(t, "address.person.address,owner", m.String())

	var empty *IncludeMap
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.Child("x"))
	assert.Empty(t, empty.String())
}

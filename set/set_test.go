package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	var s Set[string]
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 0, s.Len())

	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Contains("a"))
	assert.Equal(t, 2, s.Len())

	s.Remove("a")
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 1, s.Len())

	// removing from an empty set is a no-op
	var empty Set[int]
	empty.Remove(1)
	assert.Equal(t, 0, empty.Len())
}

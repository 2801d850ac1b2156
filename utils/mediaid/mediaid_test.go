package mediaid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsValidAndUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		require.True(t, IsValid(id), id)
		require.True(t, strings.HasPrefix(id, Prefix))
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewIsMonotonic(t *testing.T) {
	first := New()
	second := New()
	assert.Less(t, first, second)
}

func TestIsValidRejectsForeignIDs(t *testing.T) {
	assert.False(t, IsValid("img_01hq3z8k6v8m4d2e7w0c9x5b1n"))
	assert.False(t, IsValid("med_not-a-ulid"))
	assert.False(t, IsValid(""))
}

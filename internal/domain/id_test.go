package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.Regexp(t, idPattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("698AAD2920C7A6466F618586")
	require.NoError(t, err)
	assert.Equal(t, "698aad2920c7a6466f618586", id)

	for _, bad := range []string{"", "123", "698aad2920c7a6466f61858z", "698aad2920c7a6466f6185860"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrValidation, "input %q", bad)
	}
}

package identity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/codetally/internal/identity"
)

const fullHash = "8d0a8e7b20d4b3a2f1e09c85d6b4a3c2e1f00912"

func TestHashSetContains(t *testing.T) {
	t.Parallel()

	set := identity.NewHashSet(fullHash, "deadbeef", "")

	tests := []struct {
		name string
		hash string
		want bool
	}{
		{name: "exact_full_hash", hash: fullHash, want: true},
		{name: "exact_is_case_insensitive", hash: strings.ToUpper(fullHash), want: true},
		{name: "prefix_match", hash: "deadbeef" + strings.Repeat("0", 32), want: true},
		{name: "no_match", hash: strings.Repeat("f", 40), want: false},
		{name: "full_entry_does_not_prefix_match", hash: fullHash[:39] + "f", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, set.Contains(tt.hash))
		})
	}
}

func TestHashSetEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, identity.NewHashSet().Empty())
	assert.True(t, identity.NewHashSet("", "  ").Empty())
	assert.False(t, identity.NewHashSet("abc123").Empty())

	var nilSet *identity.HashSet

	assert.True(t, nilSet.Empty())
	assert.False(t, nilSet.Contains(fullHash))
	assert.Nil(t, nilSet.Entries())
}

func TestHashSetEntries_NormalizedInOrder(t *testing.T) {
	t.Parallel()

	set := identity.NewHashSet(" ABC123 ", "deadbeef")

	assert.Equal(t, []string{"abc123", "deadbeef"}, set.Entries())
}

package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalKeyOrdersAscending(t *testing.T) {
	assert.Equal(t, "5_9", CanonicalKey(5, 9))
	assert.Equal(t, "5_9", CanonicalKey(9, 5))
}

func TestCanonicalKeySymmetric(t *testing.T) {
	pairs := [][2]int{{1, 2}, {42, 7}, {100, 3}, {12, 21}}
	for _, p := range pairs {
		assert.Equal(t, CanonicalKey(p[0], p[1]), CanonicalKey(p[1], p[0]))
	}
}

func TestCanonicalKeyDistinctPairs(t *testing.T) {
	// "1_2" and "12_?" style collisions must not happen with the separator.
	assert.NotEqual(t, CanonicalKey(1, 22), CanonicalKey(12, 2))
}

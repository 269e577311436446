package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()

	_, ok := r.Lookup(7)
	assert.False(t, ok)

	r.Register(7, "C1")
	connID, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, "C1", connID)
}

func TestUnregisterClearsEntry(t *testing.T) {
	r := New()
	r.Register(7, "C1")

	r.Unregister("C1")
	_, ok := r.Lookup(7)
	assert.False(t, ok)
}

func TestUnregisterUnknownConnIsNoop(t *testing.T) {
	r := New()
	r.Register(7, "C1")

	r.Unregister("never-registered")
	connID, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, "C1", connID)
}

func TestStaleUnregisterKeepsNewConnection(t *testing.T) {
	r := New()

	// Two tabs: the second connect replaces the first, then the first tab's
	// disconnect arrives late.
	r.Register(7, "A")
	r.Register(7, "B")

	r.Unregister("A")
	connID, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, "B", connID)

	r.Unregister("B")
	_, ok = r.Lookup(7)
	assert.False(t, ok)
}

func TestOnline(t *testing.T) {
	r := New()
	assert.Equal(t, 0, r.Online())

	r.Register(1, "a")
	r.Register(2, "b")
	r.Register(1, "c")
	assert.Equal(t, 2, r.Online())
}

func TestConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			r.Register(i%10, connID)
			r.Lookup(i % 10)
			r.Unregister(connID)
		}(i)
	}
	wg.Wait()
}

package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	r := NewRegistry()

	s1, err := r.GetOrCreate("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", s1.UserID)
	assert.Equal(t, "/users/alice", s1.RootPath)

	s2, err := r.GetOrCreate("alice")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.Count())
}

func TestGetOrCreateRejectsInvalidIdentity(t *testing.T) {
	r := NewRegistry()

	for _, uid := range []string{"", "   ", "\t", "/abs", "../up"} {
		_, err := r.GetOrCreate(uid)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "uid %q", uid)
	}
	assert.Equal(t, 0, r.Count())
}

func TestDestroy(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetOrCreate("alice")
	require.NoError(t, err)

	r.Destroy("alice")
	_, ok := r.Get("alice")
	assert.False(t, ok)

	// No-op when absent.
	r.Destroy("alice")
}

func TestCurrent(t *testing.T) {
	r := NewRegistry()

	_, err := r.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoContext)

	ctx := WithIdentity(context.Background(), "ghost")
	_, err = r.Current(ctx)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	created, err := r.GetOrCreate("ghost")
	require.NoError(t, err)
	got, err := r.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, created, got)
}

func TestConcurrentGetOrCreateSingleSession(t *testing.T) {
	r := NewRegistry()

	const n = 64
	out := make([]*Session, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			s, err := r.GetOrCreate("shared")
			require.NoError(t, err)
			out[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, out[0], out[i])
	}
	assert.Equal(t, 1, r.Count())
}

func TestEphemeralStateIsolatedPerSession(t *testing.T) {
	r := NewRegistry()
	alice, _ := r.GetOrCreate("alice")
	bob, _ := r.GetOrCreate("bob")

	alice.EphemeralSet("k", "v1")
	bob.EphemeralSet("k", "v2")

	assert.Equal(t, "v1", alice.EphemeralGet("k", nil))
	assert.Equal(t, "v2", bob.EphemeralGet("k", nil))

	alice.EphemeralDelete("k")
	assert.Nil(t, alice.EphemeralGet("k", nil))
	assert.Equal(t, "v2", bob.EphemeralGet("k", nil))
}

package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

func ctxFor(uid string) context.Context {
	return tenant.WithIdentity(context.Background(), uid)
}

func TestTagURI(t *testing.T) {
	assert.Equal(t, "doc:///users/alice/a.txt?uid=alice", TagURI("doc:///users/alice/a.txt", "alice"))

	// First contact wins; re-tagging is a no-op.
	tagged := TagURI("doc:///a.txt", "alice")
	assert.Equal(t, tagged, TagURI(tagged, "bob"))

	assert.Equal(t, "alice", OwnerOf("doc:///a.txt?uid=alice"))
	assert.Equal(t, "", OwnerOf("doc:///a.txt"))
}

func TestEmitDeliversToOwnerOnly(t *testing.T) {
	p := NewProxy(logging.NewNop())

	var alice, bob []Event
	_, err := p.OnChange(ctxFor("alice"), func(ev Event) { alice = append(alice, ev) })
	require.NoError(t, err)
	_, err = p.OnChange(ctxFor("bob"), func(ev Event) { bob = append(bob, ev) })
	require.NoError(t, err)

	require.NoError(t, p.Emit(ctxFor("alice"), Event{URI: "doc:///users/alice/a.txt", Change: ChangeModified}))

	require.Len(t, alice, 1)
	assert.Equal(t, "alice", OwnerOf(alice[0].URI))
	assert.Empty(t, bob)
}

func TestEmitDropsMismatchedOwnership(t *testing.T) {
	p := NewProxy(logging.NewNop())

	var bob []Event
	_, err := p.OnChange(ctxFor("bob"), func(ev Event) { bob = append(bob, ev) })
	require.NoError(t, err)

	// Event tagged for bob but emitted under alice's identity: dropped.
	uri := TagURI("doc:///users/bob/b.txt", "bob")
	require.NoError(t, p.Emit(ctxFor("alice"), Event{URI: uri, Change: ChangeModified}))
	assert.Empty(t, bob)
}

func TestEmitRequiresIdentity(t *testing.T) {
	p := NewProxy(logging.NewNop())
	err := p.Emit(context.Background(), Event{URI: "doc:///x"})
	assert.ErrorIs(t, err, tenant.ErrNoContext)
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	p := NewProxy(logging.NewNop())

	var delivered int
	_, _ = p.OnChange(ctxFor("alice"), func(ev Event) { panic("boom") })
	_, _ = p.OnChange(ctxFor("alice"), func(ev Event) { delivered++ })

	require.NoError(t, p.Emit(ctxFor("alice"), Event{URI: "doc:///users/alice/a.txt", Change: ChangeCreated}))
	assert.Equal(t, 1, delivered)
}

func TestDisposeUnregisters(t *testing.T) {
	p := NewProxy(logging.NewNop())

	var got int
	d, err := p.OnChange(ctxFor("alice"), func(ev Event) { got++ })
	require.NoError(t, err)
	assert.Equal(t, 1, p.ListenerCount("alice"))

	d.Dispose()
	d.Dispose() // idempotent
	assert.Equal(t, 0, p.ListenerCount("alice"))

	require.NoError(t, p.Emit(ctxFor("alice"), Event{URI: "doc:///users/alice/a.txt", Change: ChangeDeleted}))
	assert.Equal(t, 0, got)
}

package terminal

import (
	"bufio"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TenantOS/backend/internal/storage"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// fakeShell stands in for a real PTY: input written to the terminal is
// readable from Input, and kills are counted for idempotence checks.
type fakeShell struct {
	Input *os.File

	mu       sync.Mutex
	kills    int
	done     chan struct{}
	doneOnce sync.Once
}

func (s *fakeShell) killCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kills
}

func newFakeFactory(t *testing.T) (*Factory, *fakeShell, *tenant.Registry) {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	sessions := tenant.NewRegistry()

	shell := &fakeShell{done: make(chan struct{})}
	f := NewFactory(sessions, disk)
	f.start = func(_, _ string, _, _ int, _ map[string]string) (*proc, error) {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		shell.Input = r
		return &proc{
			tty: w,
			wait: func() error {
				<-shell.done
				return nil
			},
			kill: func() error {
				shell.mu.Lock()
				shell.kills++
				shell.mu.Unlock()
				shell.doneOnce.Do(func() { close(shell.done) })
				return nil
			},
		}, nil
	}
	return f, shell, sessions
}

func userCtx(t *testing.T, sessions *tenant.Registry, uid string) context.Context {
	t.Helper()
	_, err := sessions.GetOrCreate(uid)
	require.NoError(t, err)
	return tenant.WithIdentity(context.Background(), uid)
}

func TestCreateBindsCallerWorkspace(t *testing.T) {
	f, _, sessions := newFakeFactory(t)
	ctx := userCtx(t, sessions, "alice")

	term, err := f.Create(ctx, Options{Name: "build"})
	require.NoError(t, err)
	defer term.Dispose()

	assert.Equal(t, "build", term.Name)
	assert.Equal(t, "alice", term.UserID)
	assert.Equal(t, "/users/alice", term.WorkingDir)
	assert.Equal(t, 80, term.Cols)
	assert.Equal(t, 24, term.Rows)
	assert.False(t, term.Disposed())
}

func TestSendTextReachesShell(t *testing.T) {
	f, shell, sessions := newFakeFactory(t)
	ctx := userCtx(t, sessions, "alice")

	term, err := f.Create(ctx, Options{})
	require.NoError(t, err)
	defer term.Dispose()

	require.NoError(t, term.SendText("echo hi"))

	line, err := bufio.NewReader(shell.Input).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "echo hi\n", line)
}

func TestShowHide(t *testing.T) {
	f, _, sessions := newFakeFactory(t)
	ctx := userCtx(t, sessions, "alice")

	term, err := f.Create(ctx, Options{})
	require.NoError(t, err)
	defer term.Dispose()

	assert.False(t, term.Visible())
	require.NoError(t, term.Show())
	assert.True(t, term.Visible())
	require.NoError(t, term.Hide())
	assert.False(t, term.Visible())
}

func TestDisposeIsIdempotent(t *testing.T) {
	f, shell, sessions := newFakeFactory(t)
	ctx := userCtx(t, sessions, "alice")

	term, err := f.Create(ctx, Options{})
	require.NoError(t, err)

	term.Dispose()
	term.Dispose()
	term.Dispose()

	assert.True(t, term.Disposed())
	assert.Equal(t, 1, shell.killCount(), "only the first dispose may have a side effect")

	_, err = f.Get(ctx, term.ID)
	assert.ErrorIs(t, err, ErrTerminalNotFound)
}

func TestOperationsAfterDisposeFail(t *testing.T) {
	f, _, sessions := newFakeFactory(t)
	ctx := userCtx(t, sessions, "alice")

	term, err := f.Create(ctx, Options{})
	require.NoError(t, err)
	term.Dispose()

	assert.ErrorIs(t, term.SendText("late"), ErrTerminalClosed)
	assert.ErrorIs(t, term.Show(), ErrTerminalClosed)
	assert.ErrorIs(t, term.Hide(), ErrTerminalClosed)
}

func TestTerminalsAreScopedToOwner(t *testing.T) {
	f, _, sessions := newFakeFactory(t)
	alice := userCtx(t, sessions, "alice")
	bob := userCtx(t, sessions, "bob")

	term, err := f.Create(alice, Options{})
	require.NoError(t, err)
	defer term.Dispose()

	_, err = f.Get(bob, term.ID)
	assert.ErrorIs(t, err, ErrTerminalNotFound)

	mine, err := f.List(alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	theirs, err := f.List(bob)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestDisposeAll(t *testing.T) {
	f, _, sessions := newFakeFactory(t)
	ctx := userCtx(t, sessions, "alice")

	a, err := f.Create(ctx, Options{})
	require.NoError(t, err)
	b, err := f.Create(ctx, Options{})
	require.NoError(t, err)

	f.DisposeAll("alice")

	assert.True(t, a.Disposed())
	assert.True(t, b.Disposed())
	assert.Equal(t, 0, f.Count())
}

func TestLiveTerminalGaugeTracksCreateAndDispose(t *testing.T) {
	f, _, sessions := newFakeFactory(t)
	m := monitoring.NewMetrics()
	f.WithMetrics(m)
	ctx := userCtx(t, sessions, "alice")

	term, err := f.Create(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TerminalsActive))

	term.Dispose()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TerminalsActive))
}

func TestCreateRequiresSession(t *testing.T) {
	f, _, _ := newFakeFactory(t)

	_, err := f.Create(context.Background(), Options{})
	assert.ErrorIs(t, err, tenant.ErrNoContext)
}

func TestRingKeepsRecentOutput(t *testing.T) {
	r := newRing(8)
	r.write([]byte("0123456789"))
	assert.Equal(t, "23456789", string(r.drain()))
	assert.Empty(t, r.drain())
}

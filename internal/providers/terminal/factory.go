package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

const outputBufSize = 1 << 20

// Workspace maps logical session paths onto the physical disk. Satisfied
// by the storage backend.
type Workspace interface {
	Physical(logical string) string
	MkdirAll(ctx context.Context, path string) error
}

// Options configures a new terminal.
type Options struct {
	Name  string
	Shell string
	Cols  int
	Rows  int
	Env   map[string]string
}

// Factory creates terminals bound to the calling user's workspace root.
// Terminals of different users share nothing: each gets its own process,
// PTY, and output buffer, with the working directory inside the caller's
// root.
type Factory struct {
	sessions  *tenant.Registry
	workspace Workspace
	metrics   *monitoring.Metrics

	terminals sync.Map // terminal id -> *Terminal

	// start launches the shell process. Replaceable in tests.
	start func(shell, dir string, cols, rows int, env map[string]string) (*proc, error)
}

// NewFactory creates a terminal factory.
func NewFactory(sessions *tenant.Registry, workspace Workspace) *Factory {
	return &Factory{
		sessions:  sessions,
		workspace: workspace,
		start:     startPTY,
	}
}

// WithMetrics keeps the live-terminal gauge current across create and
// dispose.
func (f *Factory) WithMetrics(m *monitoring.Metrics) *Factory {
	f.metrics = m
	return f
}

func (f *Factory) updateGauge() {
	if f.metrics != nil {
		f.metrics.SetTerminalsActive(f.Count())
	}
}

// Create starts a terminal whose working directory is the caller's
// workspace root on disk.
func (f *Factory) Create(ctx context.Context, opts Options) (*Terminal, error) {
	sess, err := f.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
		if opts.Shell == "" {
			opts.Shell = "/bin/bash"
		}
	}
	if opts.Cols <= 0 {
		opts.Cols = 80
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}

	if err := f.workspace.MkdirAll(ctx, sess.RootPath); err != nil {
		return nil, fmt.Errorf("prepare workspace root: %w", err)
	}
	workingDir := f.workspace.Physical(sess.RootPath)

	p, err := f.start(opts.Shell, workingDir, opts.Cols, opts.Rows, opts.Env)
	if err != nil {
		return nil, fmt.Errorf("start terminal: %w", err)
	}

	termID := string(id.NewTerminalID())
	name := opts.Name
	if name == "" {
		name = "Terminal"
	}

	t := &Terminal{
		ID:         termID,
		Name:       name,
		UserID:     sess.UserID,
		Shell:      opts.Shell,
		WorkingDir: sess.RootPath,
		Cols:       opts.Cols,
		Rows:       opts.Rows,
		CreatedAt:  time.Now(),
		proc:       p,
		output:     newRing(outputBufSize),
	}
	t.onDispose = func() {
		f.terminals.Delete(termID)
		f.updateGauge()
	}

	f.terminals.Store(termID, t)
	f.updateGauge()
	go t.readOutput()
	go t.monitor()

	return t, nil
}

// Get returns the caller's terminal by id. Terminals of other users are
// reported as not found.
func (f *Factory) Get(ctx context.Context, termID string) (*Terminal, error) {
	sess, err := f.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}

	value, ok := f.terminals.Load(termID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTerminalNotFound, termID)
	}
	t := value.(*Terminal)
	if t.UserID != sess.UserID {
		return nil, fmt.Errorf("%w: %s", ErrTerminalNotFound, termID)
	}
	return t, nil
}

// List returns the caller's live terminals.
func (f *Factory) List(ctx context.Context) ([]*Terminal, error) {
	sess, err := f.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}

	var out []*Terminal
	f.terminals.Range(func(_, value interface{}) bool {
		t := value.(*Terminal)
		if t.UserID == sess.UserID {
			out = append(out, t)
		}
		return true
	})
	return out, nil
}

// Count returns the number of live terminals across all users.
func (f *Factory) Count() int {
	n := 0
	f.terminals.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// DisposeAll disposes every terminal belonging to uid. Used when a
// session is destroyed.
func (f *Factory) DisposeAll(uid string) {
	f.terminals.Range(func(_, value interface{}) bool {
		t := value.(*Terminal)
		if t.UserID == uid {
			t.Dispose()
		}
		return true
	})
}

// startPTY launches a real shell under a pseudo-terminal.
func startPTY(shell, dir string, cols, rows int, env map[string]string) (*proc, error) {
	cmd := exec.Command(shell)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, err
	}

	return &proc{
		tty:  ptmx,
		wait: cmd.Wait,
		kill: func() error {
			if cmd.Process != nil {
				return cmd.Process.Kill()
			}
			return nil
		},
	}, nil
}

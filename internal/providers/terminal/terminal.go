package terminal

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

// ErrTerminalClosed indicates an operation on a disposed terminal.
var ErrTerminalClosed = errors.New("terminal is closed")

// ErrTerminalNotFound indicates the terminal id is unknown.
var ErrTerminalNotFound = errors.New("terminal not found")

// proc is the running process behind a terminal. The indirection lets
// tests supply a fake in place of a real PTY.
type proc struct {
	tty  *os.File
	wait func() error
	kill func() error
}

// Terminal is one pty-backed shell bound to a single user's workspace.
// It starts Open and transitions to Disposed exactly once; operations
// after disposal fail with ErrTerminalClosed.
type Terminal struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UserID     string    `json:"user_id"`
	Shell      string    `json:"shell"`
	WorkingDir string    `json:"working_dir"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	CreatedAt  time.Time `json:"created_at"`

	proc   *proc
	output *ring

	mu       sync.RWMutex
	visible  bool
	disposed bool

	// onDispose unlinks the terminal from its factory. Runs at most once.
	onDispose func()
}

// SendText writes text to the terminal's input, appending a newline when
// the text does not already end with one.
func (t *Terminal) SendText(text string) error {
	t.mu.RLock()
	disposed := t.disposed
	t.mu.RUnlock()
	if disposed {
		return ErrTerminalClosed
	}

	if len(text) == 0 || text[len(text)-1] != '\n' {
		text += "\n"
	}
	_, err := t.proc.tty.Write([]byte(text))
	return err
}

// Show marks the terminal visible.
func (t *Terminal) Show() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return ErrTerminalClosed
	}
	t.visible = true
	return nil
}

// Hide marks the terminal hidden.
func (t *Terminal) Hide() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return ErrTerminalClosed
	}
	t.visible = false
	return nil
}

// Visible reports whether the terminal is currently shown.
func (t *Terminal) Visible() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.visible
}

// Disposed reports whether the terminal has been disposed.
func (t *Terminal) Disposed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.disposed
}

// Dispose kills the process and closes the PTY. Idempotent: only the
// first call has an observable side effect, later calls are no-ops.
func (t *Terminal) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	t.mu.Unlock()

	if t.proc.kill != nil {
		t.proc.kill()
	}
	t.proc.tty.Close()

	if t.onDispose != nil {
		t.onDispose()
	}
}

// Output drains buffered process output accumulated since the last call.
func (t *Terminal) Output() []byte {
	return t.output.drain()
}

// readOutput copies process output into the ring until the PTY closes.
func (t *Terminal) readOutput() {
	buf := make([]byte, 4096)
	for {
		n, err := t.proc.tty.Read(buf)
		if n > 0 {
			t.output.write(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				// PTY read errors on close; nothing to report.
			}
			return
		}
	}
}

// monitor waits for process exit and disposes the terminal, so a shell
// that exits on its own releases its resources.
func (t *Terminal) monitor() {
	if t.proc.wait != nil {
		t.proc.wait()
	}
	t.Dispose()
}

// ring is a bounded byte buffer that keeps the most recent output.
type ring struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newRing(max int) *ring {
	return &ring{max: max}
}

func (r *ring) write(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, p...)
	if len(r.buf) > r.max {
		r.buf = r.buf[len(r.buf)-r.max:]
	}
}

func (r *ring) drain() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.buf
	r.buf = nil
	return out
}

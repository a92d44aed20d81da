package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// Backend performs storage operations against logical absolute paths
// (e.g. /users/alice/notes.txt). Underlying errors (not-found,
// permission-denied) pass through wrapped, so callers can classify them
// with errors.Is.
type Backend interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	WriteFileAtomic(ctx context.Context, path string, data []byte) error
	Stat(ctx context.Context, path string) (fs.FileInfo, error)
	ReadDir(ctx context.Context, path string) ([]fs.DirEntry, error)
	MkdirAll(ctx context.Context, path string) error
	Remove(ctx context.Context, path string, recursive bool) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Walk(ctx context.Context, root string, fn func(path string, d fs.DirEntry) error) error

	// TryLock creates a lock marker at path, failing with fs.ErrExist
	// when another writer holds it. Unlock removes the marker.
	TryLock(ctx context.Context, path string) error
	Unlock(ctx context.Context, path string) error
}

// Disk maps the logical path space onto a directory on the host
// filesystem. The mapping is purely mechanical; ownership checks happen
// in the proxies before a path ever reaches this layer.
type Disk struct {
	root string
}

// NewDisk creates a disk backend rooted at dir, creating it if needed.
func NewDisk(dir string) (*Disk, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Disk{root: abs}, nil
}

// Root returns the physical root directory.
func (d *Disk) Root() string {
	return d.root
}

// Physical translates a logical absolute path to its on-disk location.
func (d *Disk) Physical(logical string) string {
	return filepath.Join(d.root, filepath.FromSlash(filepath.Clean(logical)))
}

func (d *Disk) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(d.Physical(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (d *Disk) WriteFile(_ context.Context, path string, data []byte) error {
	phys := d.Physical(path)
	if err := os.MkdirAll(filepath.Dir(phys), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(phys, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic persists data via a temp file in the destination
// directory followed by a rename, so a crash mid-write never leaves a
// partially written document.
func (d *Disk) WriteFileAtomic(_ context.Context, path string, data []byte) error {
	phys := d.Physical(path)
	dir := filepath.Dir(phys)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(phys)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, phys); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (d *Disk) Stat(_ context.Context, path string) (fs.FileInfo, error) {
	info, err := os.Stat(d.Physical(path))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return info, nil
}

func (d *Disk) ReadDir(_ context.Context, path string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(d.Physical(path))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return entries, nil
}

func (d *Disk) MkdirAll(_ context.Context, path string) error {
	if err := os.MkdirAll(d.Physical(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// Remove deletes a file, or a whole directory when recursive is set.
// Directories are never deleted non-recursively, empty or not.
func (d *Disk) Remove(_ context.Context, path string, recursive bool) error {
	phys := d.Physical(path)
	info, err := os.Stat(phys)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if info.IsDir() {
		if !recursive {
			return fmt.Errorf("delete %s: directory requires recursive", path)
		}
		if err := os.RemoveAll(phys); err != nil {
			return fmt.Errorf("delete %s: %w", path, err)
		}
		return nil
	}
	if err := os.Remove(phys); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (d *Disk) Rename(_ context.Context, oldPath, newPath string) error {
	dst := d.Physical(newPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("rename %s: %w", newPath, err)
	}
	if err := os.Rename(d.Physical(oldPath), dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Walk traverses the subtree under root, invoking fn with logical paths.
// fastwalk reads directories in parallel; fn invocations are serialized
// so callers may accumulate results without their own locking.
func (d *Disk) Walk(ctx context.Context, root string, fn func(path string, de fs.DirEntry) error) error {
	physRoot := d.Physical(root)
	conf := fastwalk.Config{Follow: false}

	var mu sync.Mutex
	err := fastwalk.Walk(&conf, physRoot, func(phys string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(d.root, phys)
		if relErr != nil {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		return fn("/"+filepath.ToSlash(rel), de)
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}
	return nil
}

func (d *Disk) TryLock(_ context.Context, path string) error {
	phys := d.Physical(path)
	if err := os.MkdirAll(filepath.Dir(phys), 0o755); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	f, err := os.OpenFile(phys, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	return f.Close()
}

func (d *Disk) Unlock(_ context.Context, path string) error {
	if err := os.Remove(d.Physical(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unlock %s: %w", path, err)
	}
	return nil
}

package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/TenantOS/backend/internal/events"
	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/paths"
	"github.com/GriffinCanCode/TenantOS/backend/internal/storage"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// MIME sniffing is skipped above this size; stat stays cheap for big files.
const mimeSniffLimit = 4 << 20

// Proxy routes filesystem operations to the ambient user's subtree.
type Proxy struct {
	backend  storage.Backend
	sessions *tenant.Registry
	events   *events.Proxy // optional change stream
}

// NewProxy creates a filesystem proxy. events may be nil.
func NewProxy(backend storage.Backend, sessions *tenant.Registry, ev *events.Proxy) *Proxy {
	return &Proxy{backend: backend, sessions: sessions, events: ev}
}

// resolve turns a caller-relative path into a contained logical path.
// Leading separators are stripped, "." and ".." are normalized, and the
// result must remain a descendant of the session root.
func (p *Proxy) resolve(ctx context.Context, rel string) (*tenant.Session, string, error) {
	sess, err := p.sessions.Current(ctx)
	if err != nil {
		return nil, "", err
	}

	rel = strings.TrimLeft(rel, "/")
	logical := filepath.Clean(filepath.Join(sess.RootPath, rel))
	if !paths.IsPathOwnedBy(sess.UserID, logical) {
		return nil, "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return sess, logical, nil
}

// visible converts a logical path back to the caller-relative form.
func visible(sess *tenant.Session, logical string) string {
	rel := strings.TrimPrefix(logical, sess.RootPath)
	if rel == "" {
		return "/"
	}
	return rel
}

func (p *Proxy) emit(ctx context.Context, sess *tenant.Session, logical string, change events.ChangeType) {
	if p.events == nil {
		return
	}
	uri := events.TagURI("doc://"+logical, sess.UserID)
	// Delivery failures are the listener's problem, not the operation's.
	_ = p.events.Emit(ctx, events.Event{URI: uri, Change: change, Timestamp: time.Now()})
}

// ReadFile returns the contents of a file under the caller's root.
func (p *Proxy) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	_, logical, err := p.resolve(ctx, rel)
	if err != nil {
		return nil, err
	}
	return p.backend.ReadFile(ctx, logical)
}

// WriteFile writes data, creating missing parent directories.
func (p *Proxy) WriteFile(ctx context.Context, rel string, data []byte) error {
	sess, logical, err := p.resolve(ctx, rel)
	if err != nil {
		return err
	}

	change := events.ChangeModified
	if _, statErr := p.backend.Stat(ctx, logical); statErr != nil {
		change = events.ChangeCreated
	}
	if err := p.backend.WriteFile(ctx, logical, data); err != nil {
		return err
	}
	p.emit(ctx, sess, logical, change)
	return nil
}

// Stat returns metadata for a file or directory, including a sniffed MIME
// type for regular files small enough to read back.
func (p *Proxy) Stat(ctx context.Context, rel string) (*FileInfo, error) {
	sess, logical, err := p.resolve(ctx, rel)
	if err != nil {
		return nil, err
	}

	info, err := p.backend.Stat(ctx, logical)
	if err != nil {
		return nil, err
	}

	fi := &FileInfo{
		Name:     info.Name(),
		Path:     visible(sess, logical),
		Size:     info.Size(),
		IsDir:    info.IsDir(),
		Mode:     info.Mode().String(),
		Modified: info.ModTime(),
	}
	if !info.IsDir() {
		fi.Extension = strings.TrimPrefix(path.Ext(info.Name()), ".")
		if info.Size() > 0 && info.Size() <= mimeSniffLimit {
			if data, readErr := p.backend.ReadFile(ctx, logical); readErr == nil {
				fi.MIME = mimetype.Detect(data).String()
			}
		}
	}
	return fi, nil
}

// ListDirectory lists the immediate children of a directory.
func (p *Proxy) ListDirectory(ctx context.Context, rel string) ([]FileInfo, error) {
	sess, logical, err := p.resolve(ctx, rel)
	if err != nil {
		return nil, err
	}

	entries, err := p.backend.ReadDir(ctx, logical)
	if err != nil {
		return nil, err
	}

	out := make([]FileInfo, 0, len(entries))
	for _, de := range entries {
		fi := FileInfo{
			Name:  de.Name(),
			Path:  visible(sess, filepath.Join(logical, de.Name())),
			IsDir: de.IsDir(),
		}
		if info, infoErr := de.Info(); infoErr == nil {
			fi.Size = info.Size()
			fi.Mode = info.Mode().String()
			fi.Modified = info.ModTime()
		}
		out = append(out, fi)
	}
	return out, nil
}

// CreateDirectory creates a directory and any missing parents.
func (p *Proxy) CreateDirectory(ctx context.Context, rel string) error {
	sess, logical, err := p.resolve(ctx, rel)
	if err != nil {
		return err
	}
	if err := p.backend.MkdirAll(ctx, logical); err != nil {
		return err
	}
	p.emit(ctx, sess, logical, events.ChangeCreated)
	return nil
}

// Delete removes a file, or a directory when recursive is set.
// Non-recursive delete of a directory is an error, even when empty.
func (p *Proxy) Delete(ctx context.Context, rel string, recursive bool) error {
	sess, logical, err := p.resolve(ctx, rel)
	if err != nil {
		return err
	}
	if err := p.backend.Remove(ctx, logical, recursive); err != nil {
		return err
	}
	p.emit(ctx, sess, logical, events.ChangeDeleted)
	return nil
}

// Rename moves a file or directory within the caller's root, creating
// missing destination parents.
func (p *Proxy) Rename(ctx context.Context, oldRel, newRel string) error {
	sess, oldLogical, err := p.resolve(ctx, oldRel)
	if err != nil {
		return err
	}
	_, newLogical, err := p.resolve(ctx, newRel)
	if err != nil {
		return err
	}
	if err := p.backend.Rename(ctx, oldLogical, newLogical); err != nil {
		return err
	}
	p.emit(ctx, sess, newLogical, events.ChangeRenamed)
	return nil
}

// RealPath returns the normalized logical path for a caller-relative one.
// It never exposes the physical backing location.
func (p *Proxy) RealPath(ctx context.Context, rel string) (string, error) {
	_, logical, err := p.resolve(ctx, rel)
	if err != nil {
		return "", err
	}
	return logical, nil
}

// Glob returns caller-relative paths under the root matching a doublestar
// pattern (e.g. "**/*.txt").
func (p *Proxy) Glob(ctx context.Context, pattern string) ([]string, error) {
	sess, _, err := p.resolve(ctx, ".")
	if err != nil {
		return nil, err
	}
	pattern = strings.TrimLeft(pattern, "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var matches []string
	err = p.backend.Walk(ctx, sess.RootPath, func(logical string, de fs.DirEntry) error {
		rel := strings.TrimPrefix(visible(sess, logical), "/")
		if rel == "" {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			matches = append(matches, "/"+rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Search returns entries under the root whose name contains query,
// case-insensitively.
func (p *Proxy) Search(ctx context.Context, query string, limit int) ([]string, error) {
	sess, _, err := p.resolve(ctx, ".")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	needle := strings.ToLower(query)

	var matches []string
	err = p.backend.Walk(ctx, sess.RootPath, func(logical string, de fs.DirEntry) error {
		if len(matches) >= limit {
			return nil
		}
		if strings.Contains(strings.ToLower(de.Name()), needle) {
			if rel := visible(sess, logical); rel != "/" {
				matches = append(matches, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

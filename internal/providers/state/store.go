// Package state implements the two persisted per-user key-value
// namespaces. Each namespace is one JSON document per user, overwritten
// wholesale on every update with an atomic temp-then-rename write.
//
// The update cycle is read-modify-write and is NOT transactional across
// its own read and write: the lock file only serializes the persist step,
// so two concurrent updates to the same user and namespace can interleave
// between read and write, and the second writer silently overwrites the
// first writer's changes to other keys. Last write wins, by design of the
// storage contract.
package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/paths"
	"github.com/GriffinCanCode/TenantOS/backend/internal/storage"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// ErrLockContention indicates the namespace lock was still held after the
// single retry.
var ErrLockContention = errors.New("state document lock contention")

// Namespace selects one of the two persisted documents.
type Namespace string

const (
	NamespaceGlobal    Namespace = "globalState"
	NamespaceWorkspace Namespace = "workspaceState"
)

// Valid reports whether ns names a known namespace.
func (ns Namespace) Valid() bool {
	return ns == NamespaceGlobal || ns == NamespaceWorkspace
}

// Store reads and writes the per-user state documents.
type Store struct {
	backend  storage.Backend
	sessions *tenant.Registry

	// retryDelay returns the jittered backoff before the single lock
	// retry. Replaceable in tests.
	retryDelay func() time.Duration
}

// NewStore creates a state store.
func NewStore(backend storage.Backend, sessions *tenant.Registry) *Store {
	return &Store{
		backend:  backend,
		sessions: sessions,
		retryDelay: func() time.Duration {
			return time.Duration(10+rand.Intn(40)) * time.Millisecond
		},
	}
}

func docPath(sess *tenant.Session, ns Namespace) string {
	switch ns {
	case NamespaceGlobal:
		return paths.GlobalStatePath(sess.UserID)
	default:
		return paths.WorkspaceStatePath(sess.UserID)
	}
}

func lockPath(sess *tenant.Session, ns Namespace) string {
	return filepath.Join(sess.RootPath, "."+string(ns)+".lock")
}

// readDoc loads the whole document; a missing file is an empty map.
func (s *Store) readDoc(ctx context.Context, sess *tenant.Session, ns Namespace) (map[string]interface{}, error) {
	data, err := s.backend.ReadFile(ctx, docPath(sess, ns))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]interface{}{}, nil
		}
		return nil, err
	}

	doc := map[string]interface{}{}
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt %s document for %s: %w", ns, sess.UserID, err)
	}
	return doc, nil
}

// writeDoc persists the whole document under the namespace lock. One
// retry with jittered backoff on contention, then ErrLockContention.
func (s *Store) writeDoc(ctx context.Context, sess *tenant.Session, ns Namespace, doc map[string]interface{}) error {
	data, err := sonic.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", ns, err)
	}

	lock := lockPath(sess, ns)
	if err := s.backend.TryLock(ctx, lock); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
		time.Sleep(s.retryDelay())
		if err := s.backend.TryLock(ctx, lock); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%w: %s/%s", ErrLockContention, sess.UserID, ns)
			}
			return err
		}
	}
	defer s.backend.Unlock(ctx, lock)

	return s.backend.WriteFileAtomic(ctx, docPath(sess, ns), data)
}

// Get reads one key from the namespace document, or def when absent.
func (s *Store) Get(ctx context.Context, ns Namespace, key string, def interface{}) (interface{}, error) {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.readDoc(ctx, sess, ns)
	if err != nil {
		return nil, err
	}
	if v, ok := doc[key]; ok {
		return v, nil
	}
	return def, nil
}

// Update sets one key via whole-document read-modify-write.
func (s *Store) Update(ctx context.Context, ns Namespace, key string, value interface{}) error {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return err
	}

	doc, err := s.readDoc(ctx, sess, ns)
	if err != nil {
		return err
	}
	doc[key] = value
	return s.writeDoc(ctx, sess, ns, doc)
}

// Delete removes one key via whole-document read-modify-write. No-op if
// the key is absent.
func (s *Store) Delete(ctx context.Context, ns Namespace, key string) error {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return err
	}

	doc, err := s.readDoc(ctx, sess, ns)
	if err != nil {
		return err
	}
	delete(doc, key)
	return s.writeDoc(ctx, sess, ns, doc)
}

// Keys returns the keys currently present in the namespace document.
func (s *Store) Keys(ctx context.Context, ns Namespace) ([]string, error) {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.readDoc(ctx, sess, ns)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(doc))
	for k := range doc {
		out = append(out, k)
	}
	return out, nil
}

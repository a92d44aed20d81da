package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/paths"
)

// ErrSessionNotFound indicates an identity is bound but the registry holds
// no matching session. Distinct from ErrNoContext, which means no identity
// is bound at all.
var ErrSessionNotFound = errors.New("no session registered for user")

// ErrInvalidIdentity indicates an empty or otherwise unusable identifier
// at session creation.
var ErrInvalidIdentity = errors.New("invalid user identity")

// Registry is the process-wide table of user sessions. Constructed once at
// startup and injected; tests build their own isolated instances.
type Registry struct {
	sessions sync.Map // map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// GetOrCreate returns the session for userID, creating it on first
// reference. Idempotent: an existing session is never overwritten.
func (r *Registry) GetOrCreate(userID string) (*Session, error) {
	if err := paths.ValidateUserID(userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	if existing, ok := r.sessions.Load(userID); ok {
		return existing.(*Session), nil
	}

	actual, _ := r.sessions.LoadOrStore(userID, newSession(userID))
	return actual.(*Session), nil
}

// Get returns the session for userID if one exists.
func (r *Registry) Get(userID string) (*Session, bool) {
	v, ok := r.sessions.Load(userID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Destroy removes the session for userID. No-op if absent.
func (r *Registry) Destroy(userID string) {
	r.sessions.Delete(userID)
}

// Current resolves the session for the ambient identity on ctx.
func (r *Registry) Current(ctx context.Context) (*Session, error) {
	uid, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}

	v, ok := r.sessions.Load(uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, uid)
	}
	return v.(*Session), nil
}

// List returns a snapshot of all registered sessions.
func (r *Registry) List() []*Session {
	var out []*Session
	r.sessions.Range(func(_, v interface{}) bool {
		out = append(out, v.(*Session))
		return true
	})
	return out
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	n := 0
	r.sessions.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Stats summarizes the registry for the admin API.
type Stats struct {
	TotalSessions int        `json:"total_sessions"`
	Oldest        *time.Time `json:"oldest,omitempty"`
}

// Stats returns registry statistics.
func (r *Registry) Stats() Stats {
	st := Stats{}
	r.sessions.Range(func(_, v interface{}) bool {
		s := v.(*Session)
		st.TotalSessions++
		if st.Oldest == nil || s.CreatedAt.Before(*st.Oldest) {
			t := s.CreatedAt
			st.Oldest = &t
		}
		return true
	})
	return st
}

package tenant

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/paths"
)

// Session is one user's isolated world for the process lifetime: the
// exclusive logical root plus the in-memory ephemeral namespace. The two
// persisted namespaces live in files under RootPath and are managed by the
// state provider.
type Session struct {
	UserID    string    `json:"user_id"`
	RootPath  string    `json:"root_path"`
	CreatedAt time.Time `json:"created_at"`

	mu        sync.RWMutex
	ephemeral map[string]interface{}
}

func newSession(userID string) *Session {
	return &Session{
		UserID:    userID,
		RootPath:  paths.UserRoot(userID),
		CreatedAt: time.Now(),
		ephemeral: make(map[string]interface{}),
	}
}

// EphemeralGet reads a key from the in-memory namespace. Returns def when
// the key is absent.
func (s *Session) EphemeralGet(key string, def interface{}) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.ephemeral[key]; ok {
		return v
	}
	return def
}

// EphemeralSet stores a key in the in-memory namespace. Lost on restart.
func (s *Session) EphemeralSet(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ephemeral[key] = value
}

// EphemeralDelete removes a key from the in-memory namespace.
func (s *Session) EphemeralDelete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ephemeral, key)
}

// EphemeralLen returns the number of ephemeral keys.
func (s *Session) EphemeralLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ephemeral)
}

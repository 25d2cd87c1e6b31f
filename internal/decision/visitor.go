package decision

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// VisitorKey is the session storage key holding the visitor id.
const VisitorKey = "tailored_visitor_id"

// SessionStorage is session-scoped key/value storage: a cookie jar in the
// HTTP surface, a map in tests and the CLI.
type SessionStorage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// MapStorage is an in-memory SessionStorage.
type MapStorage struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMapStorage() *MapStorage {
	return &MapStorage{m: make(map[string]string)}
}

func (s *MapStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MapStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// NewVisitorID returns "v_" followed by six hex characters.
func NewVisitorID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "v_" + hex[:6]
}

// VisitorID returns the id stored in the session, generating and persisting
// one when absent. A failing store still yields a usable id for this cycle.
func VisitorID(storage SessionStorage) string {
	if storage != nil {
		if id, ok := storage.Get(VisitorKey); ok && id != "" {
			return id
		}
	}
	id := NewVisitorID()
	if storage != nil {
		_ = storage.Set(VisitorKey, id)
	}
	return id
}

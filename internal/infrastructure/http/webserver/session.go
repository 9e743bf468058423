package webserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sessions issues and reads the session cookie. The cookie only carries an
// opaque id; the form state lives in a form.StateStore.
type Sessions struct {
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewSessions creates the cookie manager from the session configuration
func NewSessions(cfg *config.Config) *Sessions {
	return &Sessions{
		cookieName: cfg.Session.CookieName,
		ttl:        cfg.Session.TTL,
		secure:     cfg.Session.SecureCookie,
	}
}

// ID returns the session id of the request, issuing a new cookie when the
// request carries none or a malformed one.
func (s *Sessions) ID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return id
}

type memoryEntry struct {
	state     form.State
	expiresAt time.Time
}

// MemoryStateStore keeps form state in process memory
type MemoryStateStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	ttl     time.Duration
	logger  *zap.Logger
	stop    chan struct{}
	once    sync.Once
}

var _ form.StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates a store whose entries expire after ttl of
// inactivity. A zero ttl disables expiry.
func NewMemoryStateStore(ttl time.Duration, logger *zap.Logger) *MemoryStateStore {
	store := &MemoryStateStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		logger:  logger,
		stop:    make(chan struct{}),
	}

	if ttl > 0 {
		go store.cleanupExpired(ttl)
	}

	return store
}

// Load returns the state of the session or a fresh state
func (s *MemoryStateStore) Load(_ context.Context, sessionID string) (form.State, error) {
	s.mu.RLock()
	entry, exists := s.entries[sessionID]
	s.mu.RUnlock()

	if !exists || s.expired(entry, time.Now()) {
		return form.NewState(), nil
	}
	return entry.state, nil
}

// Save stores the state of the session and extends its lifetime
func (s *MemoryStateStore) Save(_ context.Context, sessionID string, st form.State) error {
	entry := memoryEntry{state: st}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[sessionID] = entry
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions
func (s *MemoryStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine
func (s *MemoryStateStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStateStore) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && now.After(entry.expiresAt)
}

// cleanupExpired removes expired sessions periodically
func (s *MemoryStateStore) cleanupExpired(interval time.Duration) {
	if interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.purge(now)
		}
	}
}

func (s *MemoryStateStore) purge(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		if s.expired(entry, now) {
			delete(s.entries, id)
			s.logger.Debug("Cleaned up expired session", zap.String("session_id", id))
		}
	}
}

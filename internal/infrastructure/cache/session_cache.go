package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "recipe-form"

// SessionStateStore keeps form state in Redis as JSON, one key per session.
// Every save refreshes the TTL.
type SessionStateStore struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

var _ form.StateStore = (*SessionStateStore)(nil)

// NewSessionStateStore creates a Redis-backed state store
func NewSessionStateStore(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *SessionStateStore {
	return &SessionStateStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Load returns the state of the session or a fresh state when none is stored
func (s *SessionStateStore) Load(ctx context.Context, sessionID string) (form.State, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return form.NewState(), nil
	}
	if err != nil {
		s.logger.Error("Redis GET failed", zap.String("session_id", sessionID), zap.Error(err))
		return form.State{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var st form.State
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt entry is replaced on the next save
		s.logger.Warn("Discarding unreadable session state", zap.String("session_id", sessionID), zap.Error(err))
		return form.NewState(), nil
	}
	return st, nil
}

// Save stores the state of the session
func (s *SessionStateStore) Save(ctx context.Context, sessionID string, st form.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		s.logger.Error("Redis SET failed", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return strings.Join([]string{sessionKeyPrefix, "session", sessionID}, ":")
}

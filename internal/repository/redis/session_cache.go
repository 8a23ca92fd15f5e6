package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository"
)

const defaultSessionPrefix = "session"

// SessionCache stores {accountId, expiresAt} projections of active sessions under <prefix>:<token>.
type SessionCache struct {
	client *red.Client
	prefix string
}

// NewSessionCache constructs a Redis-backed session cache.
func NewSessionCache(client *red.Client, keyPrefix string) *SessionCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}

	return &SessionCache{client: client, prefix: prefix}
}

// Get loads the cached projection for the token.
func (c *SessionCache) Get(ctx context.Context, token string) (*domain.CachedSession, error) {
	key := c.key(token)
	if key == "" {
		return nil, repository.ErrNotFound
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var cached domain.CachedSession
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode cached session: %w", err)
	}

	return &cached, nil
}

// Set writes the projection with the supplied TTL.
func (c *SessionCache) Set(ctx context.Context, token string, session domain.CachedSession, ttl time.Duration) error {
	key := c.key(token)
	if key == "" {
		return fmt.Errorf("session token is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode cached session: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Delete removes the projections for every supplied token. Missing keys are ignored.
func (c *SessionCache) Delete(ctx context.Context, tokens ...string) error {
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if key := c.key(token); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete sessions: %w", err)
	}

	return nil
}

func (c *SessionCache) key(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, trimmed)
}

var _ port.SessionCache = (*SessionCache)(nil)

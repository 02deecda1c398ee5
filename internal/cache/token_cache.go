package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"postboard/internal/model"
)

// TokenEntry is the cached resolution of a token hash.
type TokenEntry struct {
	TokenID   uint       `json:"token_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	User      model.User `json:"user"`
}

type TokenCache struct {
	client     *redisv9.Client
	defaultTTL time.Duration
}

func NewTokenCache(client *redisv9.Client, defaultTTL time.Duration) *TokenCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &TokenCache{
		client:     client,
		defaultTTL: defaultTTL,
	}
}

func (c *TokenCache) Get(ctx context.Context, tokenHash string) (*TokenEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(tokenHash)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get token failed: %w", err)
	}

	var entry TokenEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached token failed: %w", err)
	}
	// User.PasswordHash is tagged json:"-" so it never reaches redis.
	return &entry, true, nil
}

// Set stores the entry for ttl, or the default TTL when ttl is not positive.
// The TTL is further capped by the token expiry.
func (c *TokenCache) Set(ctx context.Context, tokenHash string, entry TokenEntry, ttl time.Duration) error {
	ttl = entryTTL(ttl, c.defaultTTL, entry.ExpiresAt, time.Now())
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal token cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tokenHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token failed: %w", err)
	}
	return nil
}

func (c *TokenCache) Delete(ctx context.Context, tokenHash string) error {
	if err := c.client.Del(ctx, c.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("redis delete token failed: %w", err)
	}
	return nil
}

// entryTTL is how long an entry may live in redis: ttl bounded by
// defaultTTL and by the time left before expiresAt. Zero means do not cache.
func entryTTL(ttl, defaultTTL time.Duration, expiresAt *time.Time, now time.Time) time.Duration {
	if ttl <= 0 || ttl > defaultTTL {
		ttl = defaultTTL
	}
	if expiresAt == nil {
		return ttl
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	if remaining < ttl {
		return remaining
	}
	return ttl
}

func (c *TokenCache) key(tokenHash string) string {
	return fmt.Sprintf("auth:token:%s", tokenHash)
}

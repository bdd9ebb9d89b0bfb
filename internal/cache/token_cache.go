package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// TokenCache remembers which user a bearer token resolves to, saving the
// session lookup on every authenticated request. Entries are deleted
// explicitly on logout, logout-all and account removal; the TTL only bounds
// the lifetime of entries for tokens that stop being presented.
type TokenCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewTokenCache(client *redisv9.Client, ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *TokenCache) Get(ctx context.Context, token string) (uint, bool, error) {
	raw, err := c.client.Get(ctx, c.key(token)).Result()
	if err == redisv9.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get token failed: %w", err)
	}

	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached token entry failed: %w", err)
	}
	return uint(userID), true, nil
}

func (c *TokenCache) Set(ctx context.Context, token string, userID uint) error {
	if err := c.client.Set(ctx, c.key(token), strconv.FormatUint(uint64(userID), 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set token failed: %w", err)
	}
	return nil
}

func (c *TokenCache) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = c.key(token)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete tokens failed: %w", err)
	}
	return nil
}

func (c *TokenCache) key(token string) string {
	return "auth:token:" + token
}

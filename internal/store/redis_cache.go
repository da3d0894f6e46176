// Package store provides the optional Redis persistence for the cookie
// cache, so resolved cookies survive process restarts.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cookiesync/internal/engine"
)

const opTimeout = 2 * time.Second

// RedisCache is an engine.Cache backed by Redis. The engine.Cache contract
// has no error channel, so Redis failures are logged and surface as cache
// misses; the resolution policy then simply refetches.
type RedisCache struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisCache connects to addr. retention bounds how long entries are
// kept at all; freshness within that window is still the reader's call.
// A retention of zero keeps entries until explicitly invalidated.
func NewRedisCache(addr, prefix string, retention time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		prefix:    prefix,
		retention: retention,
	}
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(platformID string) (engine.Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefix+platformID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cookiesync: redis get %s: %v", platformID, err)
		}
		return engine.Entry{}, false
	}
	var entry engine.Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		log.Printf("cookiesync: redis entry for %s is corrupt, dropping: %v", platformID, err)
		c.Invalidate(platformID)
		return engine.Entry{}, false
	}
	return entry, true
}

func (c *RedisCache) Put(platformID string, entry engine.Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("cookiesync: marshal entry for %s: %v", platformID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.prefix+platformID, payload, c.retention).Err(); err != nil {
		log.Printf("cookiesync: redis set %s: %v", platformID, err)
	}
}

func (c *RedisCache) Invalidate(platformID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.client.Del(ctx, c.prefix+platformID).Err(); err != nil {
		log.Printf("cookiesync: redis del %s: %v", platformID, err)
	}
}

func (c *RedisCache) InvalidateAll() {
	for id := range c.Entries() {
		c.Invalidate(id)
	}
}

func (c *RedisCache) Entries() map[string]engine.Entry {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	out := make(map[string]engine.Entry)
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := c.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var entry engine.Entry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue
		}
		out[strings.TrimPrefix(key, c.prefix)] = entry
	}
	if err := iter.Err(); err != nil {
		log.Printf("cookiesync: redis scan: %v", err)
	}
	return out
}

var _ engine.Cache = (*RedisCache)(nil)

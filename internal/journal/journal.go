// Package journal records which platform updates were already relayed, so a
// restart does not replay them to the hub.
//
// Graceful fallback: without Redis every update looks new, which matches the
// behavior of running with no journal at all.
package journal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyUpdate  = "relay:update:" // seen update ids
	defaultTTL = 24 * time.Hour
)

// Journal tracks seen update ids in Redis.
type Journal struct {
	client *redis.Client
	ttl    time.Duration
}

// Open connects to Redis at url. An empty url or a failed connection yields
// a disabled journal whose methods are safe no-ops.
func Open(url string) *Journal {
	if url == "" {
		log.Println("[Journal] Redis not configured, restart dedupe disabled")
		return &Journal{ttl: defaultTTL}
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[Journal] Invalid Redis URL: %v", err)
		return &Journal{ttl: defaultTTL}
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[Journal] Redis connection failed: %v", err)
		c.Close()
		return &Journal{ttl: defaultTTL}
	}

	log.Println("[Journal] Connected")
	return &Journal{client: c, ttl: defaultTTL}
}

// Enabled reports whether a Redis backend is attached.
func (j *Journal) Enabled() bool { return j.client != nil }

// Observe marks updateID as relayed and reports whether it had been seen
// before. Errors degrade to "not seen" so delivery never blocks on Redis.
func (j *Journal) Observe(ctx context.Context, updateID int) bool {
	if j.client == nil {
		return false
	}
	key := fmt.Sprintf("%s%d", keyUpdate, updateID)
	fresh, err := j.client.SetNX(ctx, key, 1, j.ttl).Result()
	if err != nil {
		log.Printf("[Journal] observe failed (%s): %v", key, err)
		return false
	}
	return !fresh
}

// Close releases the Redis connection.
func (j *Journal) Close() {
	if j.client != nil {
		j.client.Close()
		j.client = nil
	}
}

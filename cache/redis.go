package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares cached predictions between processes. Errors are logged and treated as misses
// since the cache is an optimisation only.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the redis server at url (redis://host:port/db).
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (map[string]float64, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: redis get %s failed: %v", key, err)
		}
		return nil, false
	}
	var probs map[string]float64
	if err := json.Unmarshal(raw, &probs); err != nil {
		log.Printf("cache: discarding corrupt entry %s: %v", key, err)
		return nil, false
	}
	return probs, true
}

func (r *Redis) Set(ctx context.Context, key string, probs map[string]float64) {
	raw, err := json.Marshal(probs)
	if err != nil {
		log.Printf("cache: encode %s failed: %v", key, err)
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		log.Printf("cache: redis set %s failed: %v", key, err)
	}
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

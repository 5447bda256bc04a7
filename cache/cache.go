// Package cache remembers classifier output for an (image hash, candidate labels) pair so a
// re-upload of the same patch skips inference.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PredictionCache stores label probabilities. Get reports false on a miss.
type PredictionCache interface {
	Get(ctx context.Context, key string) (map[string]float64, bool)
	Set(ctx context.Context, key string, probs map[string]float64)
}

// Key builds the cache key. Label order matters because the scores are persisted in a
// stable order derived from it.
func Key(contentHash string, labels []string) string {
	sum := sha256.Sum256([]byte(strings.Join(labels, "\x1f")))
	return "prediction:" + contentHash + ":" + hex.EncodeToString(sum[:8])
}

// Memory is an in-process cache backed by go-cache.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates an in-process cache. Entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{store: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (map[string]float64, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false
	}
	return copyProbs(v.(map[string]float64)), true
}

func (m *Memory) Set(_ context.Context, key string, probs map[string]float64) {
	m.store.SetDefault(key, copyProbs(probs))
}

// Noop never stores anything. Used when caching is disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) (map[string]float64, bool) { return nil, false }
func (Noop) Set(context.Context, string, map[string]float64)         {}

func copyProbs(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Package rediscache memoises embeddings in Redis so repeated queries do not
// pay for another embedding call.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vbonduro/smartchef/internal/rag"
)

const keyPrefix = "smartchef:embedding:"

type Embedder struct {
	next   rag.Embedder
	client redis.UniversalClient
	ttl    time.Duration
}

// New wraps next. A zero ttl keeps entries until evicted.
func New(next rag.Embedder, client redis.UniversalClient, ttl time.Duration) *Embedder {
	return &Embedder{next: next, client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (e *Embedder) Model() string {
	return e.next.Model()
}

// Embed serves from the cache when it can. Cache failures are logged and
// fall through to the wrapped embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(e.next.Model(), text)

	b, err := e.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if vec, derr := rag.DecodeVector(b); derr == nil {
			return vec, nil
		}
		slog.Warn("discarding corrupt cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("embedding cache read failed", "error", err)
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.client.Set(ctx, key, rag.EncodeVector(vec), e.ttl).Err(); err != nil {
		slog.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

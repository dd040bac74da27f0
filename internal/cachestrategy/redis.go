package cachestrategy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisEnvelope is the JSON wire format stored in Redis: Entry.Value is
// already encoded bytes from the caller's perspective, so we wrap it rather
// than relying on Redis's own TTL to recover StoredAt on read.
type redisEnvelope struct {
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// RedisProvider is a Provider backed by a shared Redis instance, for
// multi-process cache coherence.
type RedisProvider struct {
	client *redis.Client
	prefix string
}

// NewRedisProvider wraps client. prefix is prepended to every key to
// namespace this strategy's entries within a shared Redis keyspace.
func NewRedisProvider(client *redis.Client, prefix string) *RedisProvider {
	return &RedisProvider{client: client, prefix: prefix}
}

func (p *RedisProvider) fullKey(key string) string { return p.prefix + key }

func (p *RedisProvider) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := p.client.Get(ctx, p.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Entry{}, false, err
	}
	return Entry{Value: env.Value, StoredAt: env.StoredAt}, true, nil
}

func (p *RedisProvider) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	env := redisEnvelope{Value: entry.Value, StoredAt: entry.StoredAt}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.fullKey(key), raw, ttl).Err()
}

var _ Provider = (*RedisProvider)(nil)

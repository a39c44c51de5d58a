package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	st "github.com/unkn0wn-root/aicache/storage"
)

var ErrNilClient = errors.New("redis storage: nil client")

// Backend persists entries in Redis under a key prefix so Keys can SCAN
// without touching unrelated keyspaces.
type Backend struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var _ st.Backend = (*Backend)(nil)

type Config struct {
	Client goredis.UniversalClient

	// Prefix namespaces every key. "" => "aicache:".
	Prefix string

	// CloseClient: set true only if this backend exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Backend, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "aicache:"
	}
	return &Backend{rdb: cfg.Client, prefix: prefix, closeClient: cfg.CloseClient}, nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.rdb.Get(ctx, b.prefix+key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return v, true, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // no expiry
	}
	if err := b.rdb.Set(ctx, b.prefix+key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, b.prefix+key).Err()
}

// Keys SCANs the prefix keyspace and returns keys with the prefix stripped.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := b.rdb.Scan(ctx, 0, b.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close releases the underlying client only when this backend owns it.
// Safe to call multiple times.
func (b *Backend) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

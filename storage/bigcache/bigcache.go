package bigcache

import (
	"context"
	"time"

	bc "github.com/allegro/bigcache/v3"

	st "github.com/unkn0wn-root/aicache/storage"
)

// Backend keeps entries in an in-process bigcache. Useful as a warm-start
// source that survives engine restarts within one process, or for tests.
type Backend struct {
	c        *bc.BigCache
	maxValue int
}

var _ st.Backend = (*Backend)(nil)

type Config struct {
	// LifeWindow is the global entry lifetime; bigcache has no per-entry TTL.
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited

	// MaxValueBytes rejects writes larger than this (Put returns ok=false).
	// Bigcache fails hard on entries over its shard size; bounding values
	// here turns that into backpressure instead of an error. 0 = no bound.
	MaxValueBytes int
}

func New(cfg Config) (*Backend, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Backend{c: c, maxValue: cfg.MaxValueBytes}, nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, err := b.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return v, err == nil, err
}

// Put ignores the per-entry TTL; bigcache expires by its global LifeWindow.
// Values over MaxValueBytes are rejected with ok=false.
func (b *Backend) Put(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	if b.maxValue > 0 && len(value) > b.maxValue {
		return false, nil
	}
	return true, b.c.Set(key, value)
}

func (b *Backend) Delete(_ context.Context, key string) error {
	err := b.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return nil
	}
	return err
}

func (b *Backend) Keys(_ context.Context) ([]string, error) {
	var keys []string
	it := b.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue // entry evicted mid-iteration
		}
		keys = append(keys, info.Key())
	}
	return keys, nil
}

func (b *Backend) Close(context.Context) error {
	return b.c.Close()
}

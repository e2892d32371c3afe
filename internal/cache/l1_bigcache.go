package cache

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cockroachdb/errors"
)

// BigCache is the in-process L1 level. bigcache only knows one global life
// window, so each entry carries its own expiry in an 8 byte prefix.
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache builds an L1 level. Zero fields of cfg keep bigcache defaults
// for a ten minute life window.
func NewBigCache(ctx context.Context, cfg bigcache.Config) (*BigCache, error) {
	config := bigcache.DefaultConfig(10 * time.Minute)
	config.CleanWindow = time.Minute
	if cfg.Shards != 0 {
		config.Shards = cfg.Shards
	}
	if cfg.LifeWindow != 0 {
		config.LifeWindow = cfg.LifeWindow
	}
	if cfg.CleanWindow != 0 {
		config.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow != 0 {
		config.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize != 0 {
		config.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSize != 0 {
		config.HardMaxCacheSize = cfg.HardMaxCacheSize
	}
	config.Verbose = cfg.Verbose

	bc, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "create bigcache")
	}
	return &BigCache{cache: bc}, nil
}

func (b *BigCache) Close() error {
	if b == nil || b.cache == nil {
		return nil
	}
	return b.cache.Close()
}

func (b *BigCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if b == nil || b.cache == nil {
		return nil, false, errors.New("bigcache not initialized")
	}

	raw, err := b.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	// Expired entries are left for bigcache's own eviction. Deleting here
	// could drop a value written by a concurrent Set.
	payload, ok := unwrapEntry(raw, time.Now())
	if !ok {
		return nil, false, nil
	}
	return payload, true, nil
}

func (b *BigCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if b == nil || b.cache == nil {
		return errors.New("bigcache not initialized")
	}
	return b.cache.Set(key, wrapEntry(value, ttl, time.Now()))
}

func (b *BigCache) Delete(_ context.Context, key string) error {
	if b == nil || b.cache == nil {
		return errors.New("bigcache not initialized")
	}
	err := b.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func wrapEntry(payload []byte, ttl time.Duration, now time.Time) []byte {
	var expiry int64
	if ttl > 0 {
		expiry = now.Add(ttl).UnixNano()
	}
	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(out[:8], uint64(expiry))
	copy(out[8:], payload)
	return out
}

func unwrapEntry(raw []byte, now time.Time) ([]byte, bool) {
	if len(raw) < 8 {
		return nil, false
	}
	expiry := int64(binary.LittleEndian.Uint64(raw[:8]))
	if expiry > 0 && now.UnixNano() > expiry {
		return nil, false
	}
	payload := make([]byte, len(raw)-8)
	copy(payload, raw[8:])
	return payload, true
}

package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// RawCache is one level of the cache, storing encoded bytes.
type RawCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Config tunes a MultiLevelCache.
type Config struct {
	Mode Mode
	// WarmupTTL applies when an L2 hit is copied into L1. Defaults to 5m.
	WarmupTTL time.Duration
	// L1DefaultTTL and L2DefaultTTL apply when Options leave the TTL zero.
	// Both default to 5m.
	L1DefaultTTL time.Duration
	L2DefaultTTL time.Duration
	Logger       *zap.Logger
}

// MultiLevelCache is a cache-aside facade over an L1 and an L2 level.
type MultiLevelCache struct {
	l1             RawCache
	l2             RawCache
	codec          Codec
	mode           Mode
	allowOverrides bool
	warmupTTL      time.Duration
	l1DefaultTTL   time.Duration
	l2DefaultTTL   time.Duration
	log            *zap.Logger
}

// NewMultiLevelCache checks that the levels provided match cfg.Mode.
func NewMultiLevelCache(l1, l2 RawCache, codec Codec, cfg Config) (*MultiLevelCache, error) {
	if codec == nil {
		return nil, errors.New("cache codec is required")
	}

	switch cfg.Mode {
	case ModeBothLevels:
		if l1 == nil || l2 == nil {
			return nil, errors.New("mode both requires L1 and L2 levels")
		}
	case ModeL1Only:
		if l1 == nil {
			return nil, errors.New("mode l1 requires an L1 level")
		}
		if l2 != nil {
			return nil, errors.New("mode l1 was given an L2 level; use mode both")
		}
	case ModeL2Only:
		if l2 == nil {
			return nil, errors.New("mode l2 requires an L2 level")
		}
		if l1 != nil {
			return nil, errors.New("mode l2 was given an L1 level; use mode both")
		}
	default:
		return nil, errors.Newf("unknown cache mode %d", cfg.Mode)
	}

	m := &MultiLevelCache{
		l1:             l1,
		l2:             l2,
		codec:          codec,
		mode:           cfg.Mode,
		allowOverrides: l1 != nil && l2 != nil,
		warmupTTL:      orDefault(cfg.WarmupTTL, 5*time.Minute),
		l1DefaultTTL:   orDefault(cfg.L1DefaultTTL, 5*time.Minute),
		l2DefaultTTL:   orDefault(cfg.L2DefaultTTL, 5*time.Minute),
		log:            cfg.Logger,
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// levels resolves which levels an operation touches.
func (m *MultiLevelCache) levels(opts Options) (useL1, useL2 bool, err error) {
	if !m.allowOverrides && (opts.TargetL1 != nil || opts.TargetL2 != nil) {
		return false, false, errors.New("level overrides need both L1 and L2 configured")
	}

	useL1 = m.mode == ModeBothLevels || m.mode == ModeL1Only
	useL2 = m.mode == ModeBothLevels || m.mode == ModeL2Only
	if opts.TargetL1 != nil {
		useL1 = *opts.TargetL1
	}
	if opts.TargetL2 != nil {
		useL2 = *opts.TargetL2
	}
	if !useL1 && !useL2 {
		return false, false, errors.New("no cache level targeted")
	}
	return useL1, useL2, nil
}

// Get decodes the cached value into dest. L2 hits warm L1 when the cache runs
// both levels and the caller did not steer L1 explicitly.
func (m *MultiLevelCache) Get(ctx context.Context, key string, dest any, opts Options) (bool, error) {
	useL1, useL2, err := m.levels(opts)
	if err != nil {
		return false, err
	}

	if useL1 {
		data, ok, err := m.l1.Get(ctx, key)
		if err != nil {
			return false, errors.Wrap(err, "l1 get")
		}
		if ok {
			m.log.Debug("cache hit", zap.String("level", "l1"), zap.String("key", key))
			return true, m.codec.Unmarshal(data, dest)
		}
	}

	if !useL2 {
		m.log.Debug("cache miss", zap.String("key", key))
		return false, nil
	}

	data, ok, err := m.l2.Get(ctx, key)
	if err != nil {
		return false, errors.Wrap(err, "l2 get")
	}
	if !ok {
		m.log.Debug("cache miss", zap.String("key", key))
		return false, nil
	}
	if err := m.codec.Unmarshal(data, dest); err != nil {
		return false, err
	}
	m.log.Debug("cache hit", zap.String("level", "l2"), zap.String("key", key))

	if useL1 && m.mode == ModeBothLevels && opts.TargetL1 == nil {
		if err := m.l1.Set(ctx, key, data, m.warmupTTL); err != nil {
			m.log.Warn("l1 warmup failed", zap.String("key", key), zap.Error(err))
		}
	}
	return true, nil
}

// Set writes value to every targeted level. With two levels the write only
// fails when both levels fail.
func (m *MultiLevelCache) Set(ctx context.Context, key string, value any, opts Options) error {
	useL1, useL2, err := m.levels(opts)
	if err != nil {
		return err
	}

	data, err := m.codec.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	l1TTL, l2TTL := opts.ttls(m.l1DefaultTTL, m.l2DefaultTTL)

	var l1Err, l2Err error
	if useL1 {
		if l1Err = m.l1.Set(ctx, key, data, l1TTL); l1Err != nil {
			m.log.Warn("l1 write failed", zap.String("key", key), zap.Error(l1Err))
		}
	}
	if useL2 {
		if l2Err = m.l2.Set(ctx, key, data, l2TTL); l2Err != nil {
			m.log.Warn("l2 write failed", zap.String("key", key), zap.Error(l2Err))
		}
	}

	if useL1 && useL2 {
		if l1Err != nil && l2Err != nil {
			return errors.CombineErrors(l1Err, l2Err)
		}
		return nil
	}
	if l1Err != nil {
		return l1Err
	}
	return l2Err
}

// Delete evicts key from every configured level and returns the first error.
func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	var firstErr error
	if m.l1 != nil {
		if err := m.l1.Delete(ctx, key); err != nil {
			firstErr = err
		}
	}
	if m.l2 != nil {
		if err := m.l2.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		m.log.Debug("cache evict", zap.String("key", key))
	}
	return firstErr
}

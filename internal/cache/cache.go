package cache

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Mode selects the levels a cache reads and writes by default.
type Mode int

const (
	// ModeBothLevels uses L1 and L2 and warms L1 on L2 hits.
	ModeBothLevels Mode = iota
	// ModeL1Only keeps entries in process memory only.
	ModeL1Only
	// ModeL2Only keeps entries in Redis only.
	ModeL2Only
)

func (m Mode) String() string {
	switch m {
	case ModeL1Only:
		return "l1"
	case ModeL2Only:
		return "l2"
	default:
		return "both"
	}
}

// ParseMode reads the config spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return ModeBothLevels, nil
	case "l1":
		return ModeL1Only, nil
	case "l2":
		return ModeL2Only, nil
	default:
		return 0, errors.Newf("unknown cache mode %q (want both, l1 or l2)", s)
	}
}

// Cache stores decoded values under string keys.
type Cache interface {
	Get(ctx context.Context, key string, dest any, opts Options) (bool, error)
	Set(ctx context.Context, key string, value any, opts Options) error
	Delete(ctx context.Context, key string) error
}

// Options tune a single Get or Set. The zero value follows the cache mode.
type Options struct {
	// TargetL1 and TargetL2 override the mode's levels when non-nil. Only
	// allowed when both levels are configured.
	TargetL1 *bool
	TargetL2 *bool

	// L1TTL and L2TTL apply to Set; zero means the configured default.
	L1TTL time.Duration
	L2TTL time.Duration
}

func (o Options) ttls(defaultL1, defaultL2 time.Duration) (time.Duration, time.Duration) {
	l1, l2 := o.L1TTL, o.L2TTL
	if l1 <= 0 {
		l1 = defaultL1
	}
	if l2 <= 0 {
		l2 = defaultL2
	}
	return l1, l2
}

// Only returns a pointer to b, for Options.TargetL1 and TargetL2.
func Only(b bool) *bool {
	return &b
}

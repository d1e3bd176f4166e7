// Package cache provides keyed, time-expiring value stores used to avoid
// redundant remote metadata requests.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Store is a keyed value store whose entries expire after a TTL.
type Store interface {
	// Get returns the value stored under key. The boolean is false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. The last write wins.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Clock returns the current time. Stores use time.Now when nil.
type Clock func() time.Time

// Config selects and configures a Store backend.
type Config struct {
	// Backend is one of BackendMemory, BackendFile or BackendRedis.
	// Empty means BackendMemory.
	Backend string

	// Dir is the directory used by the file backend.
	Dir string

	// RedisURL is the connection string used by the redis backend.
	RedisURL string

	Logger hclog.Logger
}

// Open creates the Store described by cfg.
func Open(cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	switch cfg.Backend {
	case "", BackendMemory:
		logger.Debug("using in-memory cache")
		return NewMemory(nil), nil
	case BackendFile:
		if cfg.Dir == "" {
			dir, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			cfg.Dir = dir
		}
		logger.Debug("using file cache", "dir", cfg.Dir)
		return NewFile(cfg.Dir, nil), nil
	case BackendRedis:
		logger.Debug("using redis cache", "url", cfg.RedisURL)
		return NewRedis(RedisOptions{URL: cfg.RedisURL})
	default:
		return nil, fmt.Errorf("unknown cache backend %q (expected %s, %s or %s)",
			cfg.Backend, BackendMemory, BackendFile, BackendRedis)
	}
}

func now(c Clock) time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

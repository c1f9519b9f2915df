package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lcastrov/andino/internal/config"
)

// RedisStore backs the cache with a shared Redis instance. The connection is
// established lazily on first use and reused; a failed attempt is retried on
// the next call rather than memoized as dead. Every operation that cannot
// reach the server degrades to a miss or a false return.
type RedisStore struct {
	addr        string
	db          int
	prefix      string
	dialTimeout time.Duration
	opTimeout   time.Duration

	mu     sync.Mutex
	client *redis.Client
}

func NewRedisStore(cfg config.CacheConfig) (*RedisStore, error) {
	dialTimeout, err := config.DurationOrDefault(cfg.DialTimeout, config.DefaultCacheDialTimeout)
	if err != nil {
		return nil, err
	}
	opTimeout, err := config.DurationOrDefault(cfg.OpTimeout, config.DefaultCacheOpTimeout)
	if err != nil {
		return nil, err
	}

	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = config.DefaultCacheAddr
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = config.DefaultCachePrefix
	}

	return &RedisStore{
		addr:        addr,
		db:          cfg.DB,
		prefix:      prefix,
		dialTimeout: dialTimeout,
		opTimeout:   opTimeout,
	}, nil
}

// conn returns the shared client, connecting on first use.
func (s *RedisStore) conn(ctx context.Context) (*redis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         s.addr,
		DB:           s.db,
		DialTimeout:  s.dialTimeout,
		ReadTimeout:  s.opTimeout,
		WriteTimeout: s.opTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	slog.Info("Connected to Redis", "addr", s.addr, "db", s.db)
	s.client = client
	return client, nil
}

func (s *RedisStore) fullKey(ns Namespace, key string) string {
	return s.prefix + string(ns) + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool) {
	client, err := s.conn(ctx)
	if err != nil {
		slog.Warn("Cache unavailable, treating as miss", "error", err)
		return nil, false
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	value, err := client.Get(opCtx, s.fullKey(ns, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("Cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (s *RedisStore) Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) bool {
	client, err := s.conn(ctx)
	if err != nil {
		slog.Warn("Cache unavailable, skipping write", "error", err)
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := client.Set(opCtx, s.fullKey(ns, key), value, ttl).Err(); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *RedisStore) Delete(ctx context.Context, ns Namespace, key string) bool {
	client, err := s.conn(ctx)
	if err != nil {
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	deleted, err := client.Del(opCtx, s.fullKey(ns, key)).Result()
	if err != nil {
		slog.Warn("Cache delete failed", "key", key, "error", err)
		return false
	}
	return deleted > 0
}

func (s *RedisStore) DeleteNamespace(ctx context.Context, ns Namespace) int {
	client, err := s.conn(ctx)
	if err != nil {
		return 0
	}

	keys, err := s.scanKeys(ctx, client, ns, 0)
	if err != nil {
		slog.Warn("Cache scan failed", "namespace", ns, "error", err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	deleted, err := client.Del(opCtx, keys...).Result()
	if err != nil {
		slog.Warn("Cache bulk delete failed", "namespace", ns, "error", err)
		return 0
	}
	return int(deleted)
}

func (s *RedisStore) Entries(ctx context.Context, ns Namespace, limit int) []Entry {
	client, err := s.conn(ctx)
	if err != nil {
		return nil
	}

	keys, err := s.scanKeys(ctx, client, ns, limit)
	if err != nil {
		slog.Warn("Cache scan failed", "namespace", ns, "error", err)
		return nil
	}

	nsPrefix := s.prefix + string(ns) + ":"
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
		ttl, ttlErr := client.TTL(opCtx, key).Result()
		value, valErr := client.Get(opCtx, key).Bytes()
		cancel()
		if ttlErr != nil || valErr != nil {
			continue
		}

		short := strings.TrimPrefix(key, nsPrefix)
		scope, _, _ := strings.Cut(short, ":")
		entries = append(entries, Entry{
			Key:     short,
			Scope:   scope,
			TTL:     ttl,
			Preview: preview(value),
		})
	}
	return entries
}

func (s *RedisStore) Stats(ctx context.Context) Stats {
	client, err := s.conn(ctx)
	if err != nil {
		return Stats{Connected: false, Error: err.Error()}
	}

	stats := Stats{Connected: true, Keys: map[Namespace]int{}}
	for _, ns := range []Namespace{NamespaceUpstream, NamespaceSession} {
		keys, err := s.scanKeys(ctx, client, ns, 0)
		if err != nil {
			return Stats{Connected: false, Error: err.Error()}
		}
		stats.Keys[ns] = len(keys)
		stats.TotalKeys += len(keys)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if info, err := client.Info(opCtx, "memory").Result(); err == nil {
		stats.UsedMemory = parseUsedMemory(info)
	}
	return stats
}

// scanKeys walks the namespace with SCAN; limit 0 means all keys.
func (s *RedisStore) scanKeys(ctx context.Context, client *redis.Client, ns Namespace, limit int) ([]string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	pattern := s.prefix + string(ns) + ":*"
	var keys []string
	iter := client.Scan(opCtx, 0, pattern, 100).Iterator()
	for iter.Next(opCtx) {
		keys = append(keys, iter.Val())
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func parseUsedMemory(info string) string {
	for _, line := range strings.Split(info, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory_human:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

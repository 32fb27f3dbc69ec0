package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// RedisStore appends JSON-encoded records to a Redis list. RPUSH is atomic,
// so concurrent writers keep a total order.
type RedisStore struct {
	client redis.Cmdable
	closer func() error
	key    string
	logger *slog.Logger
}

// OpenRedis connects to addr and checks the connection.
func OpenRedis(ctx context.Context, addr, key string, logger *slog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, persistenceError("connect redis", err)
	}
	s := NewRedisStore(rdb, key, logger)
	s.closer = rdb.Close
	return s, nil
}

// NewRedisStore wraps an existing client; Close leaves it open.
func NewRedisStore(client redis.Cmdable, key string, logger *slog.Logger) *RedisStore {
	if key == "" {
		key = "income-verifier:records"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, key: key, logger: logger}
}

func (s *RedisStore) Append(ctx context.Context, rec entity.FinalRecord) error {
	start := time.Now()
	b, err := json.Marshal(rec)
	if err != nil {
		return persistenceError("redis store encode", err)
	}
	n, err := s.client.RPush(ctx, s.key, b).Result()
	if err != nil {
		s.logger.Error("store.append.failed", "backend", "redis", "key", s.key, "error", err)
		return persistenceError("redis store append", err)
	}
	s.logger.Info("store.append.ok",
		"backend", "redis",
		"id", rec.ID,
		"records", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]entity.FinalRecord, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, persistenceError("redis store list", err)
	}
	out := make([]entity.FinalRecord, 0, len(items))
	for i, it := range items {
		var rec entity.FinalRecord
		if err := json.Unmarshal([]byte(it), &rec); err != nil {
			s.logger.Warn("store.load.corrupt", "backend", "redis", "key", s.key, "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Latest(ctx context.Context) (entity.FinalRecord, error) {
	it, err := s.client.LIndex(ctx, s.key, -1).Result()
	if errors.Is(err, redis.Nil) {
		return entity.FinalRecord{}, common.ErrNotFound
	}
	if err != nil {
		return entity.FinalRecord{}, persistenceError("redis store latest", err)
	}
	var rec entity.FinalRecord
	if err := json.Unmarshal([]byte(it), &rec); err != nil {
		return entity.FinalRecord{}, persistenceError("redis store decode", err)
	}
	return rec, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, persistenceError("redis store count", err)
	}
	return int(n), nil
}

func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

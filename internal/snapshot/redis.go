package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"p2pquotes/internal/contextx"
	"p2pquotes/internal/logx"
)

var (
	json   = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals
	logger = contextx.LoggerFromContextOrDefault          //nolint:gochecknoglobals
)

// LatestKey is where RedisStore keeps the snapshot.
const LatestKey = "p2pquotes:snapshot:latest"

// Redis lazily connects on first use. A failed ping is remembered and returned on every call.
type Redis struct {
	value    *redis.Client
	err      error
	Address  string
	Password string
	DB       int
	init     sync.Once
}

func (r *Redis) Client(ctx context.Context) (*redis.Client, error) {
	r.init.Do(func() {
		r.value = redis.NewClient(&redis.Options{
			//nolint:exhaustruct
			Network:  "tcp",
			Addr:     r.Address,
			Password: r.Password,
			DB:       r.DB,
		})

		if err := r.value.Ping(ctx).Err(); err != nil {
			r.err = fmt.Errorf("redis ping %s: %w", r.Address, err)
			return
		}

		logger(ctx).Info("redis connected", slog.String("address", r.Address), slog.Int("database", r.DB))
	})

	return r.value, r.err
}

func (r *Redis) Close(ctx context.Context) {
	if r.value == nil {
		return
	}
	if err := r.value.Close(); err != nil {
		logger(ctx).Error("redisClient.Close", logx.Error(err))
	}
	logger(ctx).Info("redis disconnected", slog.String("address", r.Address))
}

// RedisStore shares the latest snapshot between instances.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: LatestKey}
}

func (r *RedisStore) Save(ctx context.Context, s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisStore) Latest(ctx context.Context) (Snapshot, error) {
	payload, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var s Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s, nil
}

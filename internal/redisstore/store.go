// Package redisstore keeps kv slots in Redis hashes. Each slot is a hash
// with a "data" and a "version" field; writes are optimistic WATCH/MULTI
// transactions on the slot key.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rpggio/tally/internal/kv"
)

const (
	fieldData    = "data"
	fieldVersion = "version"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store implements kv.SlotStore on Redis.
type Store struct {
	client *redis.Client
}

// New wraps an existing client. The store owns it and closes it.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return New(client), nil
}

func (s *Store) Get(ctx context.Context, key string) (kv.Slot, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return kv.Slot{}, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return kv.Slot{}, nil
	}
	version, err := strconv.ParseInt(fields[fieldVersion], 10, 64)
	if err != nil {
		return kv.Slot{}, fmt.Errorf("redis slot %s: bad version %q: %w", key, fields[fieldVersion], err)
	}
	return kv.Slot{Data: []byte(fields[fieldData]), Version: version}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	next := expectedVersion + 1
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expectedVersion {
			return kv.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldData, data, fieldVersion, next)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, kv.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, kv.ErrVersionConflict
	default:
		return 0, fmt.Errorf("redis put %s: %w", key, err)
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"car-deal-finder/models"
	"car-deal-finder/utils"
)

// RedisStore keeps listings in three keys under a common prefix:
//
//	{prefix}urls   hash  url -> listing JSON
//	{prefix}ids    hash  id  -> url
//	{prefix}order  list  urls in insertion order
//
// The claim on the urls hash and both index writes run inside one Lua script,
// so a url is either fully stored or not stored at all, and concurrent
// writers never both insert the same url.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisStore(ctx context.Context, opts RedisOptions, logger *utils.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: 300 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, "redis-ping", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	if err := upsertScript.Load(ctx, rdb).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: load upsert script: %w", err)
	}

	return &RedisStore{rdb: rdb, prefix: opts.Prefix}, nil
}

// upsertScript returns 1 when ARGV[1] was new and all three keys were
// written, 0 when the url was already present.
var upsertScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
  return 0
end
redis.call('HSET', KEYS[2], ARGV[3], ARGV[1])
redis.call('RPUSH', KEYS[3], ARGV[1])
return 1
`)

func (s *RedisStore) key(name string) string { return s.prefix + name }

func (s *RedisStore) UpsertIfAbsent(ctx context.Context, l *models.Listing) (bool, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return false, fmt.Errorf("redis: encode %q: %w", l.URL, err)
	}

	keys := []string{s.key("urls"), s.key("ids"), s.key("order")}
	n, err := upsertScript.Run(ctx, s.rdb, keys, l.URL, data, l.ID).Int()
	if err != nil {
		return false, fmt.Errorf("redis: insert %q: %w", l.URL, err)
	}
	return n == 1, nil
}

func (s *RedisStore) All(ctx context.Context) ([]*models.Listing, error) {
	urls, err := s.rdb.LRange(ctx, s.key("order"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetch order: %w", err)
	}

	listings := make([]*models.Listing, 0, len(urls))
	if len(urls) == 0 {
		return listings, nil
	}

	vals, err := s.rdb.HMGet(ctx, s.key("urls"), urls...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetch listings: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// order entry without a body; skip rather than fail the whole read
			continue
		}
		var l models.Listing
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			return nil, fmt.Errorf("redis: decode %q: %w", urls[i], err)
		}
		listings = append(listings, &l)
	}
	return listings, nil
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	url, err := s.rdb.HGet(ctx, s.key("ids"), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %q: %w", id, err)
	}

	raw, err := s.rdb.HGet(ctx, s.key("urls"), url).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %q: %w", id, err)
	}

	var l models.Listing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, fmt.Errorf("redis: decode %q: %w", id, err)
	}
	return &l, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.HLen(ctx, s.key("urls")).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

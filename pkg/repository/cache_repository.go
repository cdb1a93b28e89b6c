package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entities as JSON under Prefix+id. Expiry is delegated to
// Redis key TTLs.
type RedisCache[T any] struct {
	Client *redis.Client
	IDFn   IDExtractor[T]
	Prefix string
	TTL    time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

func NewRedisCache[T any](ctx context.Context, redisConf RedisConfig, prefix string, ttl time.Duration, idFn IDExtractor[T]) (RedisCache[T], error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisConf.Address,
		Password: redisConf.Password,
		DB:       redisConf.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return RedisCache[T]{}, repoErr("Repository.Redis.Connect", "cannot reach "+redisConf.Address, err)
	}

	return NewRedisCacheWithClient(client, prefix, ttl, idFn), nil
}

func NewRedisCacheWithClient[T any](client *redis.Client, prefix string, ttl time.Duration, idFn IDExtractor[T]) RedisCache[T] {
	return RedisCache[T]{
		Client: client,
		IDFn:   idFn,
		Prefix: prefix,
		TTL:    ttl,
	}
}

func (r RedisCache[T]) key(id string) string { return r.Prefix + id }

func (r RedisCache[T]) Load(ctx context.Context, id string) (T, error) {
	var zero, value T
	raw, err := r.Client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, notFound("Repository.Redis.Load", id)
	}
	if err != nil {
		return zero, repoErr("Repository.Redis.Load", "error loading "+id, err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, repoErr("Repository.Redis.Load", "corrupt entry "+id, err)
	}
	return value, nil
}

func (r RedisCache[T]) Save(ctx context.Context, entity T) error {
	id := r.IDFn(entity)
	raw, err := json.Marshal(entity)
	if err != nil {
		return repoErr("Repository.Redis.Save", "cannot encode "+id, err)
	}
	if err := r.Client.Set(ctx, r.key(id), raw, r.TTL).Err(); err != nil {
		return repoErr("Repository.Redis.Save", "error saving "+id, err)
	}
	return nil
}

// Update only overwrites a key that still exists.
func (r RedisCache[T]) Update(ctx context.Context, entity T) error {
	id := r.IDFn(entity)
	raw, err := json.Marshal(entity)
	if err != nil {
		return repoErr("Repository.Redis.Update", "cannot encode "+id, err)
	}
	ok, err := r.Client.SetXX(ctx, r.key(id), raw, r.TTL).Result()
	if err != nil {
		return repoErr("Repository.Redis.Update", "error saving "+id, err)
	}
	if !ok {
		return notFound("Repository.Redis.Update", id)
	}
	return nil
}

func (r RedisCache[T]) Delete(ctx context.Context, id string) error {
	n, err := r.Client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return repoErr("Repository.Redis.Delete", "error deleting "+id, err)
	}
	if n == 0 {
		return notFound("Repository.Redis.Delete", id)
	}
	return nil
}

// List scans the prefix. Keys that expire between the scan and the read are skipped.
func (r RedisCache[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	iter := r.Client.Scan(ctx, 0, r.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.Client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, repoErr("Repository.Redis.List", "error loading "+iter.Val(), err)
		}
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, repoErr("Repository.Redis.List", "corrupt entry "+iter.Val(), err)
		}
		out = append(out, value)
	}
	if err := iter.Err(); err != nil {
		return nil, repoErr("Repository.Redis.List", "scan failed", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/utils"
)

// ErrNotFound is the cause of every lookup miss, expired entries included.
var ErrNotFound = errors.New("not found")

type IDExtractor[T any] func(T) string

type Repository[T any] interface {
	Load(ctx context.Context, id string) (T, error)
	Save(ctx context.Context, entity T) error
	Update(ctx context.Context, entity T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]T, error)
}

type RepositoryType string

const (
	RepositoryMemory RepositoryType = "memory"
	RepositoryRedis  RepositoryType = "cache"
)

type Options struct {
	// TTL expires entries this long after their last save. Zero keeps them.
	TTL time.Duration
	// Prefix namespaces keys when several repositories share one Redis.
	Prefix string
	Redis  RedisConfig
}

// RedisFromEnv reads REDIS_CLIENT_ADDRESS, REDIS_CLIENT_PASSWORD and REDIS_CLIENT_DB.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		Address:  utils.GetEnv("REDIS_CLIENT_ADDRESS", "redis:6379"),
		Password: utils.GetEnv("REDIS_CLIENT_PASSWORD", ""),
		DB:       utils.GetEnvInt("REDIS_CLIENT_DB", 0),
	}
}

func NewRepository[T any](ctx context.Context, repoType RepositoryType, idExtractor IDExtractor[T], opts Options) (Repository[T], error) {
	switch repoType {
	case RepositoryMemory, "":
		return NewMemoryRepo(idExtractor, opts.TTL), nil
	case RepositoryRedis:
		redisRepo, err := NewRedisCache(ctx, opts.Redis, opts.Prefix, opts.TTL, idExtractor)
		if err != nil {
			return nil, err
		}
		return redisRepo, nil
	default:
		return nil, svcerror.New(
			svcerror.ErrSetupError,
			svcerror.WithOp("Repository.New"),
			svcerror.WithMsg(fmt.Sprintf("unsupported repository type %q", repoType)),
		)
	}
}

func notFound(op, id string) error {
	return svcerror.New(
		svcerror.ErrRepositoryError,
		svcerror.WithOp(op),
		svcerror.WithMsg(fmt.Sprintf("resource with id %s not found", id)),
		svcerror.WithCause(ErrNotFound),
	)
}

func repoErr(op, msg string, cause error) error {
	return svcerror.New(
		svcerror.ErrRepositoryError,
		svcerror.WithOp(op),
		svcerror.WithMsg(msg),
		svcerror.WithCause(cause),
	)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

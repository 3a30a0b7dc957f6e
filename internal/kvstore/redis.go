package kvstore

import (
	"context"
	"time"
)

// redisClient pkg/redis.Client 的最小能力子集
type redisClient interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Redis 基于 Redis 的存储，多实例共享
type Redis struct {
	client redisClient
	ttl    time.Duration
}

// NewRedis 创建 Redis 存储，ttl<=0 表示不过期
func NewRedis(client redisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	return r.client.GetString(ctx, key)
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.SetString(ctx, key, value, r.ttl)
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.client.Delete(ctx, key)
}

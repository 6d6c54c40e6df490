package repository

import (
	"context"
	"time"

	redisapp "storyshelf/internal/storage/redis"

	"github.com/redis/go-redis/v9"
)

// RedisSessionRepo keeps the caregiver refresh tokens. There is a single
// caregiver identity per install, so tokens are keyed by value only.
type RedisSessionRepo struct {
	Client *redisapp.Client
}

func NewRedisSessionRepo(client *redisapp.Client) *RedisSessionRepo {
	return &RedisSessionRepo{Client: client}
}

func (r *RedisSessionRepo) SaveRefreshToken(ctx context.Context, token string, exp time.Duration) error {
	return r.Client.Set(ctx, refreshTokenKey(token), "1", exp).Err()
}

func (r *RedisSessionRepo) GetRefreshToken(ctx context.Context, token string) (bool, error) {
	val, err := r.Client.Get(ctx, refreshTokenKey(token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	return val == "1", err
}

func (r *RedisSessionRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	return r.Client.Del(ctx, refreshTokenKey(token)).Err()
}

func (r *RedisSessionRepo) DeleteAllTokens(ctx context.Context) error {
	keys, err := r.Client.Keys(ctx, refreshTokenKey("*")).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}

func refreshTokenKey(token string) string {
	return "caregiver_refresh:" + token
}

package data

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StreamNotifications carries every notification row for live consumers.
const StreamNotifications = "grantflow.notifications"

func ConnectRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return redis.NewClient(opt), nil
}

func PublishNotification(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamNotifications,
		MaxLen: 10000,
		Approx: true,
		Values: payload,
	}).Result()
	return err
}

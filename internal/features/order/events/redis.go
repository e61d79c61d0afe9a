package events

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"avastore-backend/internal/features/order/models"
	"avastore-backend/internal/platform/redis"
)

// стрим не растет бесконечно
const streamMaxLen = 10000

type RedisPublisher struct {
	client    redis.RedisClient
	streamKey string
}

func NewRedisPublisher(client redis.RedisClient, streamKey string) *RedisPublisher {
	return &RedisPublisher{client: client, streamKey: streamKey}
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.Event) error {
	values, err := Encode(event)
	if err != nil {
		return err
	}

	err = p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.streamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add event to stream %s: %w", p.streamKey, err)
	}
	return nil
}

// Close: клиент redis общий, его закрывает main
func (p *RedisPublisher) Close() error {
	return nil
}

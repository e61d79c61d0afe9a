// Package events публикует события заказов во внешнюю шину.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"avastore-backend/internal/common/config"
	"avastore-backend/internal/features/order/models"
	"avastore-backend/internal/platform/redis"
)

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

// NewPublisher выбирает реализацию по EVENTS_DRIVER; без redis драйвер redis вырождается в noop
func NewPublisher(cfg *config.Config, redisClient redis.RedisClient) Publisher {
	switch cfg.Events.Driver {
	case "kafka":
		return NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
	case "redis":
		if redisClient != nil {
			return NewRedisPublisher(redisClient, cfg.Events.StreamKey)
		}
	}
	return NoopPublisher{}
}

// Encode: поля сообщения стрима; payload содержит событие целиком
func Encode(event models.Event) (map[string]interface{}, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return map[string]interface{}{
		"type":     event.Type,
		"order_id": event.OrderID,
		"payload":  string(payload),
	}, nil
}

// Decode разбирает сообщение, записанное Encode
func Decode(values map[string]interface{}) (models.Event, error) {
	var event models.Event
	raw, ok := values["payload"].(string)
	if !ok {
		return event, fmt.Errorf("event payload is missing")
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.Event) error { return nil }

func (NoopPublisher) Close() error { return nil }

package workers

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"avastore-backend/internal/common/logger"
	"avastore-backend/internal/features/order/events"
	ordermodels "avastore-backend/internal/features/order/models"
	usermodels "avastore-backend/internal/features/user/models"
	"avastore-backend/internal/platform/redis"
)

const (
	consumerGroup = "avastore_backend_consumers"
	consumerName  = "order_events_worker_1"
	readBlock     = 5 * time.Second
)

// Notifier доставляет покупателю уведомление о заказе
type Notifier interface {
	NotifyOrder(ctx context.Context, chatID int64, event ordermodels.Event) error
}

type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*usermodels.User, error)
}

// OrderEventsWorker читает стрим событий заказов группой потребителей
type OrderEventsWorker struct {
	rdb       redis.RedisClient
	streamKey string
	users     UserLookup
	notifier  Notifier
	log       zerolog.Logger
}

func NewOrderEventsWorker(rdb redis.RedisClient, streamKey string, users UserLookup, notifier Notifier) *OrderEventsWorker {
	return &OrderEventsWorker{
		rdb:       rdb,
		streamKey: streamKey,
		users:     users,
		notifier:  notifier,
		log:       logger.Component("order_events"),
	}
}

// Start блокируется до отмены контекста
func (w *OrderEventsWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, w.streamKey, consumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		w.log.Error().Err(err).Str("stream", w.streamKey).Msg("Error creating consumer group")
	}

	w.log.Info().Str("stream", w.streamKey).Msg("Starting order events worker...")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping order events worker...")
			return
		default:
		}

		entries, err := w.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{w.streamKey, ">"},
			Count:    10,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if !errors.Is(err, goredis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Error reading from stream")
				sleep(ctx, time.Second)
			}
			continue
		}

		for _, stream := range entries {
			for _, msg := range stream.Messages {
				w.processMessage(ctx, msg.Values)
				if err := w.rdb.XAck(ctx, w.streamKey, consumerGroup, msg.ID).Err(); err != nil {
					w.log.Warn().Err(err).Str("id", msg.ID).Msg("Failed to ack stream message")
				}
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// processMessage: битые сообщения логируются и подтверждаются, чтобы не зациклиться
func (w *OrderEventsWorker) processMessage(ctx context.Context, values map[string]interface{}) {
	event, err := events.Decode(values)
	if err != nil {
		w.log.Warn().Err(err).Interface("values", values).Msg("Invalid order event")
		return
	}

	user, err := w.users.GetUser(ctx, event.UserID)
	if err != nil {
		w.log.Error().Err(err).Int64("user_id", event.UserID).Msg("Failed to resolve order owner")
		return
	}

	if err := w.notifier.NotifyOrder(ctx, user.TelegramID, event); err != nil {
		w.log.Error().Err(err).
			Int64("order_id", event.OrderID).
			Str("type", event.Type).
			Msg("Failed to notify buyer")
		return
	}

	w.log.Debug().Int64("order_id", event.OrderID).Str("type", event.Type).Msg("Buyer notified")
}

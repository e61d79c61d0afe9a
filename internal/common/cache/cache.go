package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"avastore-backend/internal/common/logger"
	"avastore-backend/internal/platform/redis"
)

const scanBatch = 100

// CacheService: JSON-кэш поверх redis. Нулевой или nil сервис ничего не кэширует.
type CacheService struct {
	redisClient redis.RedisClient
}

func NewCacheService(redisClient redis.RedisClient) *CacheService {
	return &CacheService{
		redisClient: redisClient,
	}
}

func (c *CacheService) enabled() bool {
	return c != nil && c.redisClient != nil
}

// Get получает значение из кэша
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled() {
		return fmt.Errorf("cache disabled")
	}

	data, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Set сохраняет значение в кэш
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redisClient.Set(ctx, key, string(data), ttl).Err()
}

// Delete удаляет значения из кэша
func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

// DeletePattern удаляет ключи по маске; SCAN вместо KEYS, чтобы не блокировать redis
func (c *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	if !c.enabled() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.redisClient.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// GetOrSet получает значение из кэша или вычисляет и сохраняет новое.
// Ошибки redis не мешают ответу: значение берется из setter.
func (c *CacheService) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := setter()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to write cache")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

func ProductKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

// InvalidateProducts инвалидирует карточки товаров и списки категорий
func (c *CacheService) InvalidateProducts(ctx context.Context, productIDs ...int64) error {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, ProductKey(id))
	}

	if err := c.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete product keys: %w", err)
	}

	return c.InvalidateCategories(ctx)
}

// InvalidateCategories инвалидирует кэш категорий (там счетчики товаров)
func (c *CacheService) InvalidateCategories(ctx context.Context) error {
	if err := c.DeletePattern(ctx, "categories:*"); err != nil {
		return fmt.Errorf("failed to delete pattern categories:*: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"errors"
	"path"
	"sort"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avastore-backend/internal/platform/redis"
)

// mapRedis хранит строки в map; Scan отдает все совпадения одной страницей
type mapRedis struct {
	redis.RedisClient
	data    map[string]string
	failGet bool
}

func newMapRedis() *mapRedis {
	return &mapRedis{data: map[string]string{}}
}

func (m *mapRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx)
	v, ok := m.data[key]
	switch {
	case m.failGet:
		cmd.SetErr(errors.New("connection refused"))
	case !ok:
		cmd.SetErr(goredis.Nil)
	default:
		cmd.SetVal(v)
	}
	return cmd
}

func (m *mapRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	m.data[key] = value.(string)
	cmd := goredis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mapRedis) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func (m *mapRedis) Scan(ctx context.Context, _ uint64, match string, _ int64) *goredis.ScanCmd {
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(match, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	cmd := goredis.NewScanCmd(ctx, nil)
	cmd.SetVal(keys, 0)
	return cmd
}

type product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestGetOrSet_CachesSetterResult(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(newMapRedis())

	calls := 0
	setter := func() (interface{}, error) {
		calls++
		return &product{ID: 1, Name: "Кружка"}, nil
	}

	var first, second product
	require.NoError(t, cache.GetOrSet(ctx, ProductKey(1), &first, time.Minute, setter))
	require.NoError(t, cache.GetOrSet(ctx, ProductKey(1), &second, time.Minute, setter))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Кружка", second.Name)
}

func TestGetOrSet_RedisFailureFallsBackToSetter(t *testing.T) {
	client := newMapRedis()
	client.failGet = true
	cache := NewCacheService(client)

	var got product
	err := cache.GetOrSet(context.Background(), ProductKey(2), &got, time.Minute, func() (interface{}, error) {
		return product{ID: 2, Name: "Тарелка"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
}

func TestGetOrSet_NilServiceCallsSetter(t *testing.T) {
	var cache *CacheService

	var got product
	err := cache.GetOrSet(context.Background(), ProductKey(3), &got, time.Minute, func() (interface{}, error) {
		return product{ID: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
	assert.NoError(t, cache.InvalidateProducts(context.Background(), 3))
}

func TestInvalidateProducts_DropsProductsAndCategories(t *testing.T) {
	client := newMapRedis()
	client.data[ProductKey(1)] = `{}`
	client.data[ProductKey(2)] = `{}`
	client.data["categories:roots"] = `[]`
	client.data["categories:4"] = `{}`

	cache := NewCacheService(client)
	require.NoError(t, cache.InvalidateProducts(context.Background(), 1))

	assert.Equal(t, map[string]string{ProductKey(2): `{}`}, client.data)
}

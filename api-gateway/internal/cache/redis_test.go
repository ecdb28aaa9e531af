package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/cartlink/pkg/commercetools"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func testCart() *commercetools.Cart {
	return &commercetools.Cart{
		ID:      "cart-1",
		Version: 3,
		TotalPrice: commercetools.Money{
			CurrencyCode: "USD",
			CentAmount:   2000,
		},
		LineItems: []commercetools.LineItem{
			{ID: "li-1", ProductID: "p1", Quantity: 2},
		},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	cartJSON, _ := json.Marshal(testCart())
	require.NoError(t, mr.Set(cacheKey("L1"), string(cartJSON)))

	result, err := cache.Get(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", result.ID)
	assert.Equal(t, int64(3), result.Version)
	require.Len(t, result.LineItems, 1)
	assert.Equal(t, "p1", result.LineItems[0].ProductID)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(cacheKey("L1"), `{"id":"cart`))

	_, err := cache.Get(context.Background(), "L1")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	mr.Close()

	_, err := cache.Get(context.Background(), "L1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, cache.Set(context.Background(), "L2", testCart()))

	stored, err := mr.Get(cacheKey("L2"))
	require.NoError(t, err)
	var cart commercetools.Cart
	require.NoError(t, json.Unmarshal([]byte(stored), &cart))
	assert.Equal(t, "cart-1", cart.ID)

	ttl := mr.TTL(cacheKey("L2"))
	assert.True(t, ttl >= 5*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 7*time.Minute, "TTL should be base + max jitter")
}

func TestDelete_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(cacheKey("L3"), "{}"))
	require.NoError(t, cache.Delete(context.Background(), "L3"))
	assert.False(t, mr.Exists(cacheKey("L3")))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "link:abc", cacheKey("abc"))
}

func TestCustomerCache(t *testing.T) {
	c := NewCustomerCache(2, time.Minute)

	c.Add("a", &commercetools.Customer{ID: "a"})
	c.Add("b", &commercetools.Customer{ID: "b"})
	c.Add("c", &commercetools.Customer{ID: "c"})

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	got, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)
	assert.Equal(t, 2, c.Len())
}

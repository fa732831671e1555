package orders

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisStatusCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	c := &RedisStatusCache{RDB: rdb}
	ctx := context.Background()

	_, ok := c.Get(ctx, 5)
	assert.False(t, ok)

	c.Set(ctx, StatusEntry{OrderID: 5, UserID: 9, Status: StatusPayment})
	e, ok := c.Get(ctx, 5)
	assert.True(t, ok)
	assert.Equal(t, StatusEntry{OrderID: 5, UserID: 9, Status: StatusPayment}, e)
	assert.True(t, mr.Exists("order_status:5"))

	mr.Close()
	_, ok = c.Get(ctx, 5)
	assert.False(t, ok, "redis errors read as a miss")
}

package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// StatusEntry is what the status cache remembers about an order.
type StatusEntry struct {
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Status  Status `json:"status"`
}

type StatusCache interface {
	Get(ctx context.Context, orderID int64) (StatusEntry, bool)
	Set(ctx context.Context, e StatusEntry)
}

// RedisStatusCache is best effort: redis failures read as misses and writes
// are dropped.
type RedisStatusCache struct{ RDB *redis.Client }

func (c *RedisStatusCache) Get(ctx context.Context, orderID int64) (StatusEntry, bool) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Bytes()
	if err != nil {
		return StatusEntry{}, false
	}
	var e StatusEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return StatusEntry{}, false
	}
	return e, true
}

func (c *RedisStatusCache) Set(ctx context.Context, e StatusEntry) {
	b, _ := json.Marshal(e)
	_ = c.RDB.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, e.OrderID), b, redisx.TTLStatusCache).Err()
}

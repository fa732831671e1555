// Package settlement applies accepted orders to catalog stock counters.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Recorder interface {
	RecordSale(ctx context.Context, lines []catalog.SoldLine) error
}

// Dedup claims an event id once. Release gives the claim back when the
// event could not be applied, so a redelivery is processed again.
type Dedup interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string)
}

type Service struct {
	Catalog Recorder
	Dedup   Dedup
	Log     *zap.Logger
}

// HandleOrderAccepted dipasang sebagai handler consumer.
func (s *Service) HandleOrderAccepted(ctx context.Context, m kafkago.Message) error {
	log := logx.OrNop(s.Log)

	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: log and let the offset move on
		log.Error("undecodable envelope", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderAccepted {
		return nil
	}

	claimed, err := s.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderAcceptedPayload](env.Payload)
	if err != nil {
		log.Error("undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	lines := make([]catalog.SoldLine, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, catalog.SoldLine{ItemID: it.ItemID, Count: it.Count})
	}
	if err := s.Catalog.RecordSale(ctx, lines); err != nil {
		s.Dedup.Release(ctx, env.EventID)
		return fmt.Errorf("order %d: %w", p.OrderID, err)
	}
	log.Info("order settled", zap.Int64("order_id", p.OrderID), zap.Int("lines", len(lines)),
		zap.String("trace_id", env.TraceID))
	return nil
}

// RedisDedup keeps claimed event ids for redisx.TTLDedup.
type RedisDedup struct {
	RDB     *redis.Client
	Service string
	TTL     time.Duration
}

func (d *RedisDedup) key(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, d.Service, eventID)
}

func (d *RedisDedup) Claim(ctx context.Context, eventID string) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = redisx.TTLDedup
	}
	return redisx.MarkOnce(ctx, d.RDB, d.key(eventID), ttl)
}

func (d *RedisDedup) Release(ctx context.Context, eventID string) {
	_ = d.RDB.Del(ctx, d.key(eventID)).Err()
}

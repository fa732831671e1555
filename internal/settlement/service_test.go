package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	calls [][]catalog.SoldLine
	err   error
}

func (f *fakeRecorder) RecordSale(_ context.Context, lines []catalog.SoldLine) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, lines)
	return nil
}

func newService(t *testing.T) (*Service, *fakeRecorder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	rec := &fakeRecorder{}
	return &Service{Catalog: rec, Dedup: &RedisDedup{RDB: rdb, Service: "settle"}}, rec, mr
}

func message(eventID, eventType string, payload any) kafkago.Message {
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Topic: orders.TopicOrderAccepted, Value: kafkax.MustMarshal(env)}
}

func accepted(eventID string) kafkago.Message {
	return message(eventID, orders.EventOrderAccepted, orders.OrderAcceptedPayload{
		OrderID: 7, PaymentID: 1, Amount: decimal.NewFromInt(250),
		Items: []orders.ItemQty{{ItemID: 1, Count: 2}, {ItemID: 2, Count: 1}},
	})
}

func TestHandleOrderAcceptedOnce(t *testing.T) {
	svc, rec, mr := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderAccepted(ctx, accepted("ev-1")))
	require.NoError(t, svc.HandleOrderAccepted(ctx, accepted("ev-1")))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, []catalog.SoldLine{{ItemID: 1, Count: 2}, {ItemID: 2, Count: 1}}, rec.calls[0])
	assert.True(t, mr.Exists("dedup:settle:ev-1"))
}

func TestHandleOrderAcceptedReleasesOnFailure(t *testing.T) {
	svc, rec, mr := newService(t)
	ctx := context.Background()

	rec.err = errors.New("db down")
	assert.Error(t, svc.HandleOrderAccepted(ctx, accepted("ev-2")))
	assert.False(t, mr.Exists("dedup:settle:ev-2"))

	rec.err = nil
	require.NoError(t, svc.HandleOrderAccepted(ctx, accepted("ev-2")))
	assert.Len(t, rec.calls, 1)
}

func TestHandleIgnoresOtherMessages(t *testing.T) {
	svc, rec, _ := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.HandleOrderAccepted(ctx, kafkago.Message{Value: []byte("{oops")}))
	assert.NoError(t, svc.HandleOrderAccepted(ctx, message("ev-3", orders.EventOrderCreated, orders.OrderCreatedPayload{OrderID: 1})))
	assert.Empty(t, rec.calls)
}

func TestHandleDedupUnavailable(t *testing.T) {
	svc, rec, mr := newService(t)
	mr.Close()

	assert.Error(t, svc.HandleOrderAccepted(context.Background(), accepted("ev-4")))
	assert.Empty(t, rec.calls)
}

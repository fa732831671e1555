package orders

import (
	"context"
	"strconv"
)

const (
	TopicOrderCreated   = "order.created"
	TopicOrderConfirmed = "order.confirmed"
	TopicOrderAccepted  = "order.accepted"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte { return []byte(PartitionKeyString(orderID)) }

func PartitionKeyString(orderID int64) string { return strconv.FormatInt(orderID, 10) }

type traceKey struct{}

// WithTraceID tags ctx with the request id carried into published events.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

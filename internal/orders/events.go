package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderConfirmed = "OrderConfirmed"
	EventOrderAccepted  = "OrderAccepted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ItemID int64 `json:"item_id"`
	Count  int   `json:"count"`
}

type ItemPrice struct {
	ItemID int64           `json:"item_id"`
	Count  int             `json:"count"`
	Price  decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID   int64           `json:"order_id"`
	UserID    int64           `json:"user_id"`
	Items     []ItemPrice     `json:"items"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

type OrderConfirmedPayload struct {
	OrderID      int64  `json:"order_id"`
	DeliveryType string `json:"delivery_type"`
	PaymentType  string `json:"payment_type"`
}

type OrderAcceptedPayload struct {
	OrderID   int64           `json:"order_id"`
	PaymentID int64           `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Items     []ItemQty       `json:"items"`
}

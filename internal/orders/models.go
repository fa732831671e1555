package orders

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultDeliveryType = "free"
	DefaultPaymentType  = "online"

	// MaxLineCount matches the INT column of order_items.count.
	MaxLineCount = math.MaxInt32
)

type Order struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"-"`
	CreatedAt    time.Time       `json:"createdAt"`
	FullName     string          `json:"fullName"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	City         string          `json:"city"`
	Address      string          `json:"address"`
	DeliveryType string          `json:"deliveryType"`
	PaymentType  string          `json:"paymentType"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	Status       Status          `json:"status"`
	Items        []OrderItem     `json:"products"`
}

// OrderItem records what was bought at which unit price. Never updated.
type OrderItem struct {
	ID      int64           `json:"-"`
	OrderID int64           `json:"-"`
	ItemID  int64           `json:"id"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	Count   int             `json:"count"`
}

func (it OrderItem) Total() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Count)))
}

// Payment is a write-once audit record. Number is stored masked.
type Payment struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"-"`
	OrderID   int64           `json:"orderId"`
	Number    string          `json:"number"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

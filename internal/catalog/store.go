package catalog

import (
	"context"

	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/shopspring/decimal"
)

// Filter restricts SearchItems to published items. Price bounds are exclusive.
type Filter struct {
	Name         string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	FreeDelivery bool
	Available    bool
	CategoryID   int64
}

// StoreOrder is an ordering the store can apply itself.
type StoreOrder int

const (
	OrderDefault StoreOrder = iota // name, price
	OrderPriceAsc
	OrderPriceDesc
	OrderDateAsc
	OrderDateDesc
)

type Store interface {
	pricing.SaleSource

	GetItem(ctx context.Context, id int64) (Item, error)
	ItemsByIDs(ctx context.Context, ids []int64) (map[int64]Item, error)
	SearchItems(ctx context.Context, f Filter, order StoreOrder, limit int) ([]Item, error)
	Popular(ctx context.Context, limit int) ([]Item, error)
	LimitedEdition(ctx context.Context, limit int) ([]Item, error)

	ReviewStats(ctx context.Context, itemIDs []int64) (map[int64]ReviewStats, error)
	Reviews(ctx context.Context, itemID int64) ([]Review, error)
	AddReview(ctx context.Context, r *Review) error
	Specifications(ctx context.Context, itemID int64) ([]Specification, error)

	Categories(ctx context.Context) ([]Category, error)
	Sales(ctx context.Context) ([]SaleLine, error)

	RecordSale(ctx context.Context, lines []SoldLine) error
}

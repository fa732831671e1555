// Package pricing resolves the unit price a buyer pays for an item on a given
// day: the sale price when a sale window covers that day, the list price
// otherwise.
package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a time-bounded price override. DateFrom and DateTo are calendar
// dates and the window is inclusive on both ends.
type Sale struct {
	ID        int64           `json:"-"`
	ItemID    int64           `json:"itemId"`
	SalePrice decimal.Decimal `json:"salePrice"`
	DateFrom  time.Time       `json:"dateFrom"`
	DateTo    time.Time       `json:"dateTo"`
}

// DateOf drops the clock part, keeping the calendar date as seen in t's location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s Sale) ActiveOn(on time.Time) bool {
	d := DateOf(on)
	return !d.Before(DateOf(s.DateFrom)) && !d.After(DateOf(s.DateTo))
}

// Pick returns the sale that applies on the given date. When several windows
// overlap, the earliest DateFrom wins and ties go to the lowest ID.
func Pick(sales []Sale, on time.Time) (Sale, bool) {
	active := make([]Sale, 0, len(sales))
	for _, s := range sales {
		if s.ActiveOn(on) {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return Sale{}, false
	}
	sort.Slice(active, func(i, j int) bool {
		a, b := DateOf(active[i].DateFrom), DateOf(active[j].DateFrom)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return active[i].ID < active[j].ID
	})
	return active[0], true
}

// EffectivePrice is the price of an item with the given list price and sales on a date.
func EffectivePrice(list decimal.Decimal, sales []Sale, on time.Time) decimal.Decimal {
	if s, ok := Pick(sales, on); ok {
		return s.SalePrice
	}
	return list
}

type SaleSource interface {
	SalesForItems(ctx context.Context, itemIDs []int64) (map[int64][]Sale, error)
}

type Resolver struct {
	Sales SaleSource
	Now   func() time.Time
}

func NewResolver(src SaleSource) *Resolver {
	return &Resolver{Sales: src, Now: time.Now}
}

func (r *Resolver) today() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Price resolves one item at the resolver's current date.
func (r *Resolver) Price(ctx context.Context, itemID int64, list decimal.Decimal) (decimal.Decimal, error) {
	sales, err := r.Sales.SalesForItems(ctx, []int64{itemID})
	if err != nil {
		return decimal.Zero, err
	}
	return EffectivePrice(list, sales[itemID], r.today()), nil
}

// Prices resolves a batch of items (id -> list price) with one sales lookup.
func (r *Resolver) Prices(ctx context.Context, list map[int64]decimal.Decimal) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(list))
	if len(list) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(list))
	for id := range list {
		ids = append(ids, id)
	}
	sales, err := r.Sales.SalesForItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	on := r.today()
	for id, p := range list {
		out[id] = EffectivePrice(p, sales[id], on)
	}
	return out, nil
}

// Package cart keeps a per-session basket of items with the unit price
// captured when each item was first added.
package cart

import (
	"encoding/json"
	"iter"
	"math"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/shopspring/decimal"
)

// MaxCount bounds a line's quantity so it fits the order_items.count column.
const MaxCount = math.MaxInt32

type Line struct {
	ItemID int64           `json:"id"`
	Count  int             `json:"count"`
	Price  decimal.Decimal `json:"price"`
}

func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Count)))
}

// Cart preserves insertion order. The zero value is an empty cart.
type Cart struct {
	lines []Line
}

func New(lines ...Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		_ = c.Add(l.ItemID, l.Count, l.Price)
	}
	return c
}

func (c *Cart) index(itemID int64) int {
	for i, l := range c.lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) Has(itemID int64) bool { return c.index(itemID) >= 0 }

// Add inserts a new line at price, or increments an existing line keeping
// the price it was first added with.
func (c *Cart) Add(itemID int64, qty int, price decimal.Decimal) error {
	if qty <= 0 {
		return apperr.Validation("count must be positive")
	}
	if i := c.index(itemID); i >= 0 {
		if qty > MaxCount-c.lines[i].Count {
			return apperr.Validation("count exceeds %d", MaxCount)
		}
		c.lines[i].Count += qty
		return nil
	}
	if qty > MaxCount {
		return apperr.Validation("count exceeds %d", MaxCount)
	}
	if price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	c.lines = append(c.lines, Line{ItemID: itemID, Count: qty, Price: price})
	return nil
}

// Remove deletes the line when qty covers its count and decrements it
// otherwise. It reports false when the item was not in the cart.
func (c *Cart) Remove(itemID int64, qty int) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	if qty >= c.lines[i].Count {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return true
	}
	c.lines[i].Count -= qty
	return true
}

// Lines returns a copy; mutating it does not touch the cart.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// All yields the lines in insertion order. It can be ranged over repeatedly.
func (c *Cart) All() iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for _, l := range c.lines {
			if !yield(l) {
				return
			}
		}
	}
}

func (c *Cart) Len() int { return len(c.lines) }

// Total sums line totals, rounded half away from zero to cents.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for l := range c.All() {
		sum = sum.Add(l.Total())
	}
	return sum.Round(2)
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	if c.lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.lines)
}

func (c *Cart) UnmarshalJSON(b []byte) error {
	var lines []Line
	if err := json.Unmarshal(b, &lines); err != nil {
		return err
	}
	c.lines = c.lines[:0]
	for _, l := range lines {
		if l.Count <= 0 || l.Count > MaxCount {
			continue
		}
		c.lines = append(c.lines, l)
	}
	return nil
}

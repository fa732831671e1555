package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID            int64           `json:"id"`
	Name          string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"count"`
	Published     bool            `json:"-"`
	Limited       bool            `json:"limited"`
	FreeDelivery  bool            `json:"freeDelivery"`
	CategoryID    int64           `json:"category"`
	SubCategoryID *int64          `json:"subcategory,omitempty"`
	SortIndex     int             `json:"-"`
	Sold          int             `json:"-"`
	CreatedAt     time.Time       `json:"date"`
}

type Category struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	SortIndex     int           `json:"-"`
	Active        bool          `json:"-"`
	Subcategories []SubCategory `json:"subcategories"`
}

type SubCategory struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"-"`
	Title      string `json:"title"`
	SortIndex  int    `json:"-"`
	Active     bool   `json:"-"`
}

type Review struct {
	ID        int64     `json:"-"`
	ItemID    int64     `json:"-"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Text      string    `json:"text"`
	Rate      int       `json:"rate"`
	CreatedAt time.Time `json:"date"`
}

type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReviewStats is the per-item aggregate used by catalog cards and sorting.
type ReviewStats struct {
	Count  int
	Rating float64 // mean rate, 0 without reviews
}

// SaleLine is a sale joined with the item it discounts.
type SaleLine struct {
	ItemID    int64           `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	SalePrice decimal.Decimal `json:"salePrice"`
	DateFrom  time.Time       `json:"dateFrom"`
	DateTo    time.Time       `json:"dateTo"`
}

// SoldLine is one line of an accepted order applied to stock counters.
type SoldLine struct {
	ItemID int64
	Count  int
}

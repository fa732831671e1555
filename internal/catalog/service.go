package catalog

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	popularLimit = 8
	limitedLimit = 16
	salesPerPage = 4
	bannerLimit  = 4
)

// Card is the catalog representation of an item. Price is the effective
// price today; ListPrice is the undiscounted one.
type Card struct {
	ID           int64           `json:"id"`
	CategoryID   int64           `json:"category"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ListPrice    decimal.Decimal `json:"listPrice"`
	Count        int             `json:"count"`
	FreeDelivery bool            `json:"freeDelivery"`
	Date         string          `json:"date"`
	Reviews      int             `json:"reviews"`
	Rating       float64         `json:"rating"`
}

type Details struct {
	Card
	Specifications []Specification `json:"specifications"`
	ReviewList     []Review        `json:"reviewList"`
}

type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
}

// Query is a catalog listing request. Sort is one of price, date, reviews,
// rating; SortType is inc or dec.
type Query struct {
	Filter
	Sort     string
	SortType string
	Limit    int
	Page     int
}

type Service struct {
	store      Store
	prices     *pricing.Resolver
	fetchBound int
	pageSize   int
	log        *zap.Logger
}

func NewService(store Store, prices *pricing.Resolver, fetchBound, pageSize int, log *zap.Logger) *Service {
	if fetchBound <= 0 {
		fetchBound = 500
	}
	if pageSize <= 0 {
		pageSize = 6
	}
	return &Service{store: store, prices: prices, fetchBound: fetchBound, pageSize: pageSize, log: logx.OrNop(log)}
}

// Categories returns active categories with their active subcategories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	all, err := s.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(all))
	for _, c := range all {
		if !c.Active {
			continue
		}
		subs := make([]SubCategory, 0, len(c.Subcategories))
		for _, sc := range c.Subcategories {
			if sc.Active {
				subs = append(subs, sc)
			}
		}
		c.Subcategories = subs
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) Catalog(ctx context.Context, q Query) (Page[Card], error) {
	limit := q.Limit
	if limit <= 0 || limit > s.fetchBound {
		limit = s.fetchBound
	}
	desc := q.SortType == "dec"

	order := OrderDefault
	inProcess := false
	switch q.Sort {
	case "price":
		order = pick(desc, OrderPriceDesc, OrderPriceAsc)
	case "date":
		order = pick(desc, OrderDateDesc, OrderDateAsc)
	case "reviews", "rating":
		inProcess = true
	}

	fetch := limit
	if inProcess {
		// sort keys are aggregates the store cannot order by here, so sort
		// the bounded candidate set in memory and cut to limit afterwards
		fetch = s.fetchBound
	}
	items, err := s.store.SearchItems(ctx, q.Filter, order, fetch)
	if err != nil {
		return Page[Card]{}, err
	}
	cards, err := s.cards(ctx, items)
	if err != nil {
		return Page[Card]{}, err
	}
	if inProcess {
		key := func(c Card) float64 { return float64(c.Reviews) }
		if q.Sort == "rating" {
			key = func(c Card) float64 { return c.Rating }
		}
		sort.SliceStable(cards, func(i, j int) bool {
			if desc {
				return key(cards[i]) > key(cards[j])
			}
			return key(cards[i]) < key(cards[j])
		})
	}
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return paginate(cards, s.pageSize, q.Page), nil
}

func (s *Service) Item(ctx context.Context, id int64) (Details, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return Details{}, err
	}
	if !it.Published {
		return Details{}, apperr.NotFound("item %d", id)
	}
	cards, err := s.cards(ctx, []Item{it})
	if err != nil {
		return Details{}, err
	}
	specs, err := s.store.Specifications(ctx, id)
	if err != nil {
		return Details{}, err
	}
	reviews, err := s.store.Reviews(ctx, id)
	if err != nil {
		return Details{}, err
	}
	return Details{Card: cards[0], Specifications: specs, ReviewList: reviews}, nil
}

// AddReview stores a review and returns all reviews of the item.
func (s *Service) AddReview(ctx context.Context, r Review) ([]Review, error) {
	r.Author = strings.TrimSpace(r.Author)
	r.Text = strings.TrimSpace(r.Text)
	switch {
	case r.Author == "":
		return nil, apperr.Validation("author is required")
	case r.Text == "":
		return nil, apperr.Validation("text is required")
	case r.Rate < 1 || r.Rate > 5:
		return nil, apperr.Validation("rate must be between 1 and 5")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return nil, apperr.Validation("email is invalid")
	}
	if _, err := s.store.GetItem(ctx, r.ItemID); err != nil {
		return nil, err
	}
	if err := s.store.AddReview(ctx, &r); err != nil {
		return nil, err
	}
	s.log.Info("review added", zap.Int64("item_id", r.ItemID), zap.Int("rate", r.Rate))
	return s.store.Reviews(ctx, r.ItemID)
}

func (s *Service) Popular(ctx context.Context) ([]Card, error) {
	items, err := s.store.Popular(ctx, popularLimit)
	if err != nil {
		return nil, err
	}
	return s.cards(ctx, items)
}

func (s *Service) Limited(ctx context.Context) ([]Card, error) {
	items, err := s.store.LimitedEdition(ctx, limitedLimit)
	if err != nil {
		return nil, err
	}
	return s.cards(ctx, items)
}

// Banners returns the first published items in catalog order.
func (s *Service) Banners(ctx context.Context) ([]Card, error) {
	items, err := s.store.SearchItems(ctx, Filter{}, OrderDefault, bannerLimit)
	if err != nil {
		return nil, err
	}
	return s.cards(ctx, items)
}

func (s *Service) Sales(ctx context.Context, page int) (Page[SaleLine], error) {
	lines, err := s.store.Sales(ctx)
	if err != nil {
		return Page[SaleLine]{}, err
	}
	return paginate(lines, salesPerPage, page), nil
}

// RecordSale applies the lines of an accepted order to stock counters.
func (s *Service) RecordSale(ctx context.Context, lines []SoldLine) error {
	for _, l := range lines {
		if l.Count <= 0 {
			return apperr.Validation("count for item %d must be positive", l.ItemID)
		}
	}
	if err := s.store.RecordSale(ctx, lines); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	return nil
}

// cards joins items with effective prices and review aggregates, one batch each.
func (s *Service) cards(ctx context.Context, items []Item) ([]Card, error) {
	ids := make([]int64, 0, len(items))
	list := make(map[int64]decimal.Decimal, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
		list[it.ID] = it.Price
	}
	prices, err := s.prices.Prices(ctx, list)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.ReviewStats(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Card, 0, len(items))
	for _, it := range items {
		st := stats[it.ID]
		out = append(out, Card{
			ID:           it.ID,
			CategoryID:   it.CategoryID,
			Title:        it.Name,
			Description:  it.Description,
			Price:        prices[it.ID],
			ListPrice:    it.Price,
			Count:        it.Quantity,
			FreeDelivery: it.FreeDelivery,
			Date:         it.CreatedAt.UTC().Format("Mon Jan 02 2006 15:04:05 GMT-0700 (Coordinated Universal Time)"),
			Reviews:      st.Count,
			Rating:       st.Rating,
		})
	}
	return out, nil
}

func pick(desc bool, d, a StoreOrder) StoreOrder {
	if desc {
		return d
	}
	return a
}

// paginate clamps the requested page into [1, lastPage]; an empty list has one empty page.
func paginate[T any](all []T, size, page int) Page[T] {
	last := (len(all) + size - 1) / size
	if last == 0 {
		last = 1
	}
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}
	from := (page - 1) * size
	to := from + size
	if to > len(all) {
		to = len(all)
	}
	items := make([]T, 0, to-from)
	items = append(items, all[from:to]...)
	return Page[T]{Items: items, CurrentPage: page, LastPage: last}
}

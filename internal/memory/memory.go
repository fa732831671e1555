// Package memory is an in-process implementation of every store the API
// needs. It backs STORE_DRIVER=memory and the service and handler tests.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/ariefcatur/go-marketplace/internal/users"
)

// Store gabungan semua data in-memory dengan satu generator ID.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	Now    func() time.Time

	items    map[int64]catalog.Item
	cats     map[int64]catalog.Category
	subs     map[int64]catalog.SubCategory
	sales    []pricing.Sale
	reviews  []catalog.Review
	specs    map[int64][]catalog.Specification
	orders   map[int64]orders.Order
	payments []orders.Payment
	profiles map[int64]users.Profile
	carts    map[string][]byte
}

func New() *Store {
	return &Store{
		nextID:   1,
		Now:      time.Now,
		items:    map[int64]catalog.Item{},
		cats:     map[int64]catalog.Category{},
		subs:     map[int64]catalog.SubCategory{},
		specs:    map[int64][]catalog.Specification{},
		orders:   map[int64]orders.Order{},
		profiles: map[int64]users.Profile{},
		carts:    map[string][]byte{},
	}
}

func (s *Store) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// PutCategory, PutSubCategory, PutItem, PutSale and PutSpecification seed
// catalog data; a zero ID is assigned.
func (s *Store) PutCategory(c catalog.Category) catalog.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.id()
	}
	c.Subcategories = nil
	s.cats[c.ID] = c
	return c
}

func (s *Store) PutSubCategory(sc catalog.SubCategory) catalog.SubCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == 0 {
		sc.ID = s.id()
	}
	s.subs[sc.ID] = sc
	return sc
}

func (s *Store) PutItem(it catalog.Item) catalog.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == 0 {
		it.ID = s.id()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = s.Now().UTC()
	}
	s.items[it.ID] = it
	return it
}

func (s *Store) PutSale(sl pricing.Sale) pricing.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl.ID == 0 {
		sl.ID = s.id()
	}
	s.sales = append(s.sales, sl)
	return sl
}

func (s *Store) PutSpecification(itemID int64, sp catalog.Specification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs[itemID] = append(s.specs[itemID], sp)
}

// Payments returns a copy of all recorded payments.
func (s *Store) Payments() []orders.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Payment, len(s.payments))
	copy(out, s.payments)
	return out
}

func (s *Store) Catalog() *Catalog   { return &Catalog{s} }
func (s *Store) Orders() *Orders     { return &Orders{s} }
func (s *Store) Profiles() *Profiles { return &Profiles{s} }
func (s *Store) Carts() *Carts       { return &Carts{s} }

// Catalog implements catalog.Store.
type Catalog struct{ s *Store }

var _ catalog.Store = (*Catalog)(nil)

func (c *Catalog) GetItem(_ context.Context, id int64) (catalog.Item, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	it, ok := c.s.items[id]
	if !ok {
		return catalog.Item{}, apperr.NotFound("item %d", id)
	}
	return it, nil
}

func (c *Catalog) ItemsByIDs(_ context.Context, ids []int64) (map[int64]catalog.Item, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make(map[int64]catalog.Item, len(ids))
	for _, id := range ids {
		if it, ok := c.s.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (c *Catalog) published(keep func(catalog.Item) bool) []catalog.Item {
	var out []catalog.Item
	for _, it := range c.s.items {
		if it.Published && keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (c *Catalog) SearchItems(_ context.Context, f catalog.Filter, order catalog.StoreOrder, limit int) ([]catalog.Item, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := c.published(func(it catalog.Item) bool {
		switch {
		case f.Name != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.Name)):
			return false
		case f.MinPrice != nil && !it.Price.GreaterThan(*f.MinPrice):
			return false
		case f.MaxPrice != nil && !it.Price.LessThan(*f.MaxPrice):
			return false
		case f.FreeDelivery && !it.FreeDelivery:
			return false
		case f.Available && it.Quantity <= 0:
			return false
		case f.CategoryID > 0 && it.CategoryID != f.CategoryID:
			return false
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch order {
		case catalog.OrderPriceAsc, catalog.OrderPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price) == (order == catalog.OrderPriceAsc)
			}
			return a.ID < b.ID
		case catalog.OrderDateAsc, catalog.OrderDateDesc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt) == (order == catalog.OrderDateAsc)
			}
			return a.ID < b.ID
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Price.LessThan(b.Price)
	})
	return head(out, limit), nil
}

func (c *Catalog) Popular(_ context.Context, limit int) ([]catalog.Item, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := c.published(func(it catalog.Item) bool { return it.SortIndex != 0 })
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortIndex != out[j].SortIndex {
			return out[i].SortIndex < out[j].SortIndex
		}
		if out[i].Sold != out[j].Sold {
			return out[i].Sold > out[j].Sold
		}
		return out[i].ID < out[j].ID
	})
	return head(out, limit), nil
}

func (c *Catalog) LimitedEdition(_ context.Context, limit int) ([]catalog.Item, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := c.published(func(it catalog.Item) bool { return it.Limited })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return head(out, limit), nil
}

func (c *Catalog) SalesForItems(_ context.Context, ids []int64) (map[int64][]pricing.Sale, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := map[int64][]pricing.Sale{}
	for _, sl := range c.s.sales {
		if want[sl.ItemID] {
			out[sl.ItemID] = append(out[sl.ItemID], sl)
		}
	}
	return out, nil
}

func (c *Catalog) ReviewStats(_ context.Context, ids []int64) (map[int64]catalog.ReviewStats, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	sums := map[int64]int{}
	out := map[int64]catalog.ReviewStats{}
	for _, r := range c.s.reviews {
		if !want[r.ItemID] {
			continue
		}
		st := out[r.ItemID]
		st.Count++
		sums[r.ItemID] += r.Rate
		out[r.ItemID] = st
	}
	for id, st := range out {
		st.Rating = float64(sums[id]) / float64(st.Count)
		out[id] = st
	}
	return out, nil
}

func (c *Catalog) Reviews(_ context.Context, itemID int64) ([]catalog.Review, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []catalog.Review
	for _, r := range c.s.reviews {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Catalog) AddReview(_ context.Context, r *catalog.Review) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	r.ID = c.s.id()
	r.CreatedAt = c.s.Now().UTC()
	c.s.reviews = append(c.s.reviews, *r)
	return nil
}

func (c *Catalog) Specifications(_ context.Context, itemID int64) ([]catalog.Specification, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return append([]catalog.Specification(nil), c.s.specs[itemID]...), nil
}

func (c *Catalog) Categories(_ context.Context) ([]catalog.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	activeCat := map[int64]bool{}
	activeSub := map[int64]bool{}
	for _, it := range c.s.items {
		if it.Published {
			activeCat[it.CategoryID] = true
		}
		if it.SubCategoryID != nil {
			activeSub[*it.SubCategoryID] = true
		}
	}
	subs := make([]catalog.SubCategory, 0, len(c.s.subs))
	for _, sc := range c.s.subs {
		sc.Active = activeSub[sc.ID]
		subs = append(subs, sc)
	}
	sort.Slice(subs, func(i, j int) bool { return bySortIndex(subs[i].SortIndex, subs[i].ID, subs[j].SortIndex, subs[j].ID) })

	cats := make([]catalog.Category, 0, len(c.s.cats))
	for _, cat := range c.s.cats {
		cat.Active = activeCat[cat.ID]
		for _, sc := range subs {
			if sc.CategoryID == cat.ID {
				cat.Subcategories = append(cat.Subcategories, sc)
			}
		}
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return bySortIndex(cats[i].SortIndex, cats[i].ID, cats[j].SortIndex, cats[j].ID) })
	return cats, nil
}

func (c *Catalog) Sales(_ context.Context) ([]catalog.SaleLine, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]catalog.SaleLine, 0, len(c.s.sales))
	for _, sl := range c.s.sales {
		it, ok := c.s.items[sl.ItemID]
		if !ok {
			continue
		}
		out = append(out, catalog.SaleLine{
			ItemID: it.ID, Title: it.Name, Price: it.Price,
			SalePrice: sl.SalePrice, DateFrom: sl.DateFrom, DateTo: sl.DateTo,
		})
	}
	return out, nil
}

func (c *Catalog) RecordSale(_ context.Context, lines []catalog.SoldLine) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, l := range lines {
		it, ok := c.s.items[l.ItemID]
		if !ok {
			continue
		}
		it.Sold += l.Count
		it.Quantity = max(it.Quantity-l.Count, 0)
		c.s.items[l.ItemID] = it
	}
	return nil
}

// Orders implements orders.Repository.
type Orders struct{ s *Store }

var _ orders.Repository = (*Orders)(nil)

func (o *Orders) DeleteDrafts(_ context.Context, userID int64, scope orders.SweepScope) (int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	var n int64
	for id, ord := range o.s.orders {
		if ord.Status != orders.StatusNotAccepted {
			continue
		}
		if scope == orders.SweepUser && ord.UserID != userID {
			continue
		}
		delete(o.s.orders, id)
		n++
	}
	return n, nil
}

func (o *Orders) Create(_ context.Context, ord *orders.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for _, it := range ord.Items {
		if _, ok := o.s.items[it.ItemID]; !ok {
			return apperr.NotFound("item %d", it.ItemID)
		}
	}
	ord.ID = o.s.id()
	ord.CreatedAt = o.s.Now().UTC()
	for i := range ord.Items {
		ord.Items[i].ID = o.s.id()
		ord.Items[i].OrderID = ord.ID
	}
	o.s.orders[ord.ID] = copyOrder(*ord)
	return nil
}

func (o *Orders) Get(_ context.Context, id int64) (*orders.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	ord, ok := o.s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order %d", id)
	}
	cp := copyOrder(ord)
	return &cp, nil
}

func (o *Orders) ListByUser(_ context.Context, userID int64) ([]orders.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	var out []orders.Order
	for _, ord := range o.s.orders {
		if ord.UserID == userID {
			out = append(out, copyOrder(ord))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (o *Orders) UpdateShipping(_ context.Context, ord *orders.Order, from orders.Status) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	cur, ok := o.s.orders[ord.ID]
	if !ok || cur.Status != from {
		return apperr.Conflict("order %d is no longer %s", ord.ID, from)
	}
	cur.FullName, cur.Email, cur.City, cur.Address = ord.FullName, ord.Email, ord.City, ord.Address
	cur.DeliveryType, cur.PaymentType, cur.Status = ord.DeliveryType, ord.PaymentType, ord.Status
	o.s.orders[ord.ID] = cur
	return nil
}

func (o *Orders) RecordPayment(_ context.Context, p *orders.Payment, from orders.Status) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	cur, ok := o.s.orders[p.OrderID]
	if !ok || cur.Status != from {
		return apperr.Conflict("order %d is no longer %s", p.OrderID, from)
	}
	cur.Status = orders.StatusAccepted
	o.s.orders[p.OrderID] = cur
	p.ID = o.s.id()
	p.CreatedAt = o.s.Now().UTC()
	o.s.payments = append(o.s.payments, *p)
	return nil
}

// Profiles implements users.Store.
type Profiles struct{ s *Store }

var _ users.Store = (*Profiles)(nil)

func (p *Profiles) Get(_ context.Context, userID int64) (users.Profile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if pr, ok := p.s.profiles[userID]; ok {
		return pr, nil
	}
	return users.Profile{UserID: userID}, nil
}

func (p *Profiles) Save(_ context.Context, pr users.Profile) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.profiles[pr.UserID] = pr
	return nil
}

// Carts implements cart.Store. Carts are kept serialized, as a session
// backend would.
type Carts struct{ s *Store }

var _ cart.Store = (*Carts)(nil)

func (c *Carts) Load(_ context.Context, sessionID string) (*cart.Cart, error) {
	c.s.mu.RLock()
	b, ok := c.s.carts[sessionID]
	c.s.mu.RUnlock()
	out := &cart.Cart{}
	if !ok {
		return out, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Carts) Save(_ context.Context, sessionID string, ct *cart.Cart) error {
	b, err := json.Marshal(ct)
	if err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.carts[sessionID] = b
	return nil
}

func (c *Carts) Delete(_ context.Context, sessionID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	delete(c.s.carts, sessionID)
	return nil
}

func copyOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return o
}

func head[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func bySortIndex(si int, idi int64, sj int, idj int64) bool {
	if si != sj {
		return si < sj
	}
	return idi < idj
}

package cart

import (
	"context"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Items interface {
	GetItem(ctx context.Context, id int64) (catalog.Item, error)
	ItemsByIDs(ctx context.Context, ids []int64) (map[int64]catalog.Item, error)
}

type Pricer interface {
	Price(ctx context.Context, itemID int64, list decimal.Decimal) (decimal.Decimal, error)
}

// View is a cart line joined with its catalog item.
type View struct {
	ID           int64           `json:"id"`
	CategoryID   int64           `json:"category"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	FreeDelivery bool            `json:"freeDelivery"`
	Price        decimal.Decimal `json:"price"`
	Count        int             `json:"count"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

type Service struct {
	store  Store
	items  Items
	prices Pricer
	log    *zap.Logger
}

func NewService(store Store, items Items, prices Pricer, log *zap.Logger) *Service {
	return &Service{store: store, items: items, prices: prices, log: logx.OrNop(log)}
}

// Add puts qty of an item into the session cart. The price is resolved only
// when the item is not in the cart yet.
func (s *Service) Add(ctx context.Context, sessionID string, itemID int64, qty int) ([]View, error) {
	if qty <= 0 {
		return nil, apperr.Validation("count must be positive")
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	price := decimal.Zero
	if !c.Has(itemID) {
		it, err := s.items.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if !it.Published {
			return nil, apperr.NotFound("item %d", itemID)
		}
		if price, err = s.prices.Price(ctx, it.ID, it.Price); err != nil {
			return nil, err
		}
	}
	if err := c.Add(itemID, qty, price); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	s.log.Debug("cart add", zap.String("session", sessionID), zap.Int64("item_id", itemID), zap.Int("count", qty))
	return s.join(ctx, c)
}

// Remove takes qty of an item out of the cart. Items not in the cart are
// ignored and the unchanged cart is returned.
func (s *Service) Remove(ctx context.Context, sessionID string, itemID int64, qty int) ([]View, error) {
	if qty <= 0 {
		return nil, apperr.Validation("count must be positive")
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.Remove(itemID, qty) {
		if err := s.store.Save(ctx, sessionID, c); err != nil {
			return nil, err
		}
	}
	return s.join(ctx, c)
}

// View re-reads the items on every call; it never writes the cart.
func (s *Service) View(ctx context.Context, sessionID string) ([]View, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, c)
}

func (s *Service) Total(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Total(), nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) join(ctx context.Context, c *Cart) ([]View, error) {
	if c.Len() == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, c.Len())
	for l := range c.All() {
		ids = append(ids, l.ItemID)
	}
	items, err := s.items.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, c.Len())
	for l := range c.All() {
		it, ok := items[l.ItemID]
		if !ok {
			s.log.Warn("cart line without catalog item", zap.Int64("item_id", l.ItemID))
			continue
		}
		out = append(out, View{
			ID:           it.ID,
			CategoryID:   it.CategoryID,
			Title:        it.Name,
			Description:  it.Description,
			FreeDelivery: it.FreeDelivery,
			Price:        l.Price,
			Count:        l.Count,
			TotalPrice:   l.Total(),
		})
	}
	return out, nil
}

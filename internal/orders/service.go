package orders

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/users"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Items interface {
	ItemsByIDs(ctx context.Context, ids []int64) (map[int64]catalog.Item, error)
}

type Pricer interface {
	Prices(ctx context.Context, list map[int64]decimal.Decimal) (map[int64]decimal.Decimal, error)
}

type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// LineInput is one client-submitted order line.
type LineInput struct {
	ItemID int64           `json:"id"`
	Price  decimal.Decimal `json:"price"`
	Count  int             `json:"count"`
}

type ShippingDetails struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	DeliveryType string `json:"deliveryType"`
	City         string `json:"city"`
	Address      string `json:"address"`
	PaymentType  string `json:"paymentType"`
}

func (d ShippingDetails) Validate() error {
	required := []struct{ name, v string }{
		{"fullName", d.FullName}, {"deliveryType", d.DeliveryType}, {"city", d.City},
		{"address", d.Address}, {"paymentType", d.PaymentType},
	}
	for _, f := range required {
		if strings.TrimSpace(f.v) == "" {
			return apperr.Validation("%s is required", f.name)
		}
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return apperr.Validation("email is invalid")
	}
	return nil
}

// CardDetails is accepted as submitted; only the masked number and the
// holder name are kept.
type CardDetails struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Month  string `json:"month"`
	Year   string `json:"year"`
	Code   string `json:"code"`
}

func (c CardDetails) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperr.Validation("name is required")
	}
	digits := digitsOnly(c.Number)
	if len(digits) < 8 || len(digits) > 19 || len(digits) != len(strings.ReplaceAll(c.Number, " ", "")) {
		return apperr.Validation("number is invalid")
	}
	for _, f := range []struct{ name, v string }{{"month", c.Month}, {"year", c.Year}, {"code", c.Code}} {
		if strings.TrimSpace(f.v) == "" {
			return apperr.Validation("%s is required", f.name)
		}
	}
	return nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// MaskCardNumber keeps the last four digits.
func MaskCardNumber(n string) string {
	d := digitsOnly(n)
	if len(d) <= 4 {
		return d
	}
	return strings.Repeat("*", len(d)-4) + d[len(d)-4:]
}

type Options struct {
	Sweep SweepScope
	// TrustClientPrices prices order lines with the client-supplied price
	// instead of resolving it server side.
	TrustClientPrices bool
	ServiceName       string
}

type Service struct {
	repo     Repository
	items    Items
	prices   Pricer
	profiles users.Store
	carts    CartClearer
	pub      Publisher
	cache    StatusCache
	opts     Options
	log      *zap.Logger
}

type Deps struct {
	Repo      Repository
	Items     Items
	Prices    Pricer
	Profiles  users.Store
	Carts     CartClearer
	Publisher Publisher   // optional
	Cache     StatusCache // optional
	Logger    *zap.Logger
}

func NewService(d Deps, opts Options) *Service {
	return &Service{
		repo:     d.Repo,
		items:    d.Items,
		prices:   d.Prices,
		profiles: d.Profiles,
		carts:    d.Carts,
		pub:      d.Publisher,
		cache:    d.Cache,
		opts:     opts,
		log:      logx.OrNop(d.Logger),
	}
}

// sweep evicts abandoned drafts. It runs on every order listing and creation.
func (s *Service) sweep(ctx context.Context, userID int64) error {
	n, err := s.repo.DeleteDrafts(ctx, userID, s.opts.Sweep)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("draft orders swept", zap.Int64("user_id", userID), zap.Stringer("scope", s.opts.Sweep), zap.Int64("deleted", n))
	}
	return nil
}

// CreateOrder builds a draft order from submitted lines and returns its id.
func (s *Service) CreateOrder(ctx context.Context, userID int64, lines []LineInput) (int64, error) {
	if len(lines) == 0 {
		return 0, apperr.Validation("order has no lines")
	}
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.ItemID <= 0 {
			return 0, apperr.Validation("item id is required")
		}
		if l.Count <= 0 {
			return 0, apperr.Validation("count for item %d must be positive", l.ItemID)
		}
		if l.Count > MaxLineCount {
			return 0, apperr.Validation("count for item %d exceeds %d", l.ItemID, MaxLineCount)
		}
		if l.Price.IsNegative() {
			return 0, apperr.Validation("price for item %d must not be negative", l.ItemID)
		}
		ids = append(ids, l.ItemID)
	}

	items, err := s.items.ItemsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	list := make(map[int64]decimal.Decimal, len(items))
	for _, id := range ids {
		it, ok := items[id]
		if !ok || !it.Published {
			return 0, apperr.NotFound("item %d", id)
		}
		list[id] = it.Price
	}
	var resolved map[int64]decimal.Decimal
	if !s.opts.TrustClientPrices {
		if resolved, err = s.prices.Prices(ctx, list); err != nil {
			return 0, err
		}
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	o := &Order{
		UserID:       userID,
		FullName:     p.FullName,
		Email:        p.Email,
		Phone:        p.Phone,
		City:         p.City,
		Address:      p.Address,
		DeliveryType: DefaultDeliveryType,
		PaymentType:  DefaultPaymentType,
		Status:       StatusNotAccepted,
		TotalCost:    decimal.Zero,
	}
	for _, l := range lines {
		price := l.Price
		if resolved != nil {
			price = resolved[l.ItemID]
		}
		it := OrderItem{ItemID: l.ItemID, Title: items[l.ItemID].Name, Price: price, Count: l.Count}
		o.Items = append(o.Items, it)
		o.TotalCost = o.TotalCost.Add(it.Total())
	}
	o.TotalCost = o.TotalCost.Round(2)

	// sweep setelah semua validasi, request yang gagal tidak menghapus draft
	if err := s.sweep(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return 0, err
	}
	s.log.Info("order created", zap.Int64("order_id", o.ID), zap.Int64("user_id", userID),
		zap.String("total_cost", o.TotalCost.StringFixed(2)), zap.Bool("client_prices", s.opts.TrustClientPrices))

	payload := OrderCreatedPayload{OrderID: o.ID, UserID: userID, TotalCost: o.TotalCost}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, ItemPrice{ItemID: it.ItemID, Count: it.Count, Price: it.Price})
	}
	s.publish(ctx, TopicOrderCreated, EventOrderCreated, o.ID, payload)
	return o.ID, nil
}

// List sweeps drafts, then returns the user's remaining orders newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Order, error) {
	if err := s.sweep(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

// Get returns the order only to its owner; anyone else gets ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperr.NotFound("order %d", orderID)
	}
	return o, nil
}

// Status is the cheap status read used for polling after checkout.
func (s *Service) Status(ctx context.Context, userID, orderID int64) (Status, error) {
	if s.cache != nil {
		if e, ok := s.cache.Get(ctx, orderID); ok {
			if e.UserID != userID {
				return "", apperr.NotFound("order %d", orderID)
			}
			return e.Status, nil
		}
	}
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return "", err
	}
	if o.Status != StatusNotAccepted {
		s.cacheStatus(ctx, o)
	}
	return o.Status, nil
}

// ConfirmShipping moves a draft to payment with the submitted shipping
// details and clears the requester's session cart.
func (s *Service) ConfirmShipping(ctx context.Context, userID int64, sessionID string, orderID int64, d ShippingDetails) error {
	if err := d.Validate(); err != nil {
		return err
	}
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusPayment) {
		return apperr.Conflict("order %d is %s", orderID, o.Status)
	}
	from := o.Status
	o.FullName = strings.TrimSpace(d.FullName)
	o.Email = d.Email
	o.City = d.City
	o.Address = d.Address
	o.DeliveryType = d.DeliveryType
	o.PaymentType = d.PaymentType
	o.Status = StatusPayment
	if err := s.repo.UpdateShipping(ctx, o, from); err != nil {
		return err
	}
	s.log.Info("order confirmed", zap.Int64("order_id", orderID), zap.String("delivery_type", o.DeliveryType))
	s.cacheStatus(ctx, o)

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.log.Warn("cart clear failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
	s.publish(ctx, TopicOrderConfirmed, EventOrderConfirmed, orderID, OrderConfirmedPayload{
		OrderID: orderID, DeliveryType: o.DeliveryType, PaymentType: o.PaymentType,
	})
	return nil
}

// RecordPayment stores a payment for the order's total cost and accepts the
// order. No gateway is involved; a valid request always succeeds.
func (s *Service) RecordPayment(ctx context.Context, userID, orderID int64, card CardDetails) (*Payment, error) {
	if err := card.Validate(); err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusAccepted) {
		return nil, apperr.Conflict("order %d is %s", orderID, o.Status)
	}
	p := &Payment{
		UserID:  userID,
		OrderID: orderID,
		Number:  MaskCardNumber(card.Number),
		Name:    strings.TrimSpace(card.Name),
		Amount:  o.TotalCost,
	}
	if err := s.repo.RecordPayment(ctx, p, o.Status); err != nil {
		return nil, err
	}
	o.Status = StatusAccepted
	s.log.Info("payment recorded", zap.Int64("order_id", orderID), zap.Int64("payment_id", p.ID),
		zap.String("amount", p.Amount.StringFixed(2)))
	s.cacheStatus(ctx, o)

	payload := OrderAcceptedPayload{OrderID: orderID, PaymentID: p.ID, Amount: p.Amount}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, ItemQty{ItemID: it.ItemID, Count: it.Count})
	}
	s.publish(ctx, TopicOrderAccepted, EventOrderAccepted, orderID, payload)
	return p, nil
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) {
	if s.cache == nil {
		return
	}
	s.cache.Set(ctx, StatusEntry{OrderID: o.ID, UserID: o.UserID, Status: o.Status})
}

func (s *Service) publish(ctx context.Context, topic, eventType string, orderID int64, payload any) {
	if s.pub == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.opts.ServiceName,
		TraceID:       TraceID(ctx),
		CorrelationID: PartitionKeyString(orderID),
		Payload:       kafkax.MustMarshal(payload),
	}
	s.pub.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

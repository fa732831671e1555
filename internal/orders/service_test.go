package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/memory"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/ariefcatur/go-marketplace/internal/users"
	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type published struct {
	topic string
	env   orders.Envelope
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(topic string, key, value []byte, _ ...kafkago.Header) {
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, env: env})
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.topic)
	}
	return out
}

type mapCache struct {
	mu sync.Mutex
	m  map[int64]orders.StatusEntry
}

func (c *mapCache) Get(_ context.Context, id int64) (orders.StatusEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[id]
	return e, ok
}

func (c *mapCache) Set(_ context.Context, e orders.StatusEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[e.OrderID] = e
}

type env struct {
	svc   *orders.Service
	mem   *memory.Store
	carts *cart.Service
	pub   *fakePublisher
	cache *mapCache
	a, b  catalog.Item
}

func setup(t *testing.T, opts orders.Options) *env {
	t.Helper()
	m := memory.New()
	prices := pricing.NewResolver(m.Catalog())
	prices.Now = func() time.Time { return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC) }
	e := &env{
		mem:   m,
		pub:   &fakePublisher{},
		cache: &mapCache{m: map[int64]orders.StatusEntry{}},
		a:     m.PutItem(catalog.Item{Name: "Kettle", Price: dec("100"), Published: true, Quantity: 10}),
		b:     m.PutItem(catalog.Item{Name: "Mug", Price: dec("50"), Published: true, Quantity: 10}),
	}
	e.carts = cart.NewService(m.Carts(), m.Catalog(), prices, nil)
	opts.ServiceName = "test-api"
	e.svc = orders.NewService(orders.Deps{
		Repo:      m.Orders(),
		Items:     m.Catalog(),
		Prices:    prices,
		Profiles:  m.Profiles(),
		Carts:     e.carts,
		Publisher: e.pub,
		Cache:     e.cache,
	}, opts)
	return e
}

func (e *env) lines(pa, pb string) []orders.LineInput {
	return []orders.LineInput{
		{ItemID: e.a.ID, Price: dec(pa), Count: 2},
		{ItemID: e.b.ID, Price: dec(pb), Count: 1},
	}
}

var shipping = orders.ShippingDetails{
	FullName: "Ann Lee", Email: "ann@example.com", DeliveryType: "express",
	City: "Bandung", Address: "Jl. Merdeka 1", PaymentType: "online",
}

var card = orders.CardDetails{Name: "ANN LEE", Number: "4111 1111 1111 1111", Month: "12", Year: "30", Code: "123"}

func TestCreateOrderTotals(t *testing.T) {
	for _, trust := range []bool{true, false} {
		e := setup(t, orders.Options{TrustClientPrices: trust})
		ctx := context.Background()

		id, err := e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
		require.NoError(t, err)

		o, err := e.svc.Get(ctx, 1, id)
		require.NoError(t, err)
		assert.Equal(t, "250.00", o.TotalCost.StringFixed(2))
		assert.Equal(t, orders.StatusNotAccepted, o.Status)
		require.Len(t, o.Items, 2)
		assert.True(t, o.Items[0].Price.Equal(dec("100")))
		assert.True(t, o.Items[1].Price.Equal(dec("50")))
		assert.Equal(t, 2, o.Items[0].Count)
		assert.Equal(t, orders.DefaultDeliveryType, o.DeliveryType)
		assert.Equal(t, orders.DefaultPaymentType, o.PaymentType)
	}
}

func TestCreateOrderClientPrices(t *testing.T) {
	ctx := context.Background()

	trusted := setup(t, orders.Options{TrustClientPrices: true})
	id, err := trusted.svc.CreateOrder(ctx, 1, trusted.lines("1", "1"))
	require.NoError(t, err)
	o, err := trusted.svc.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, "3.00", o.TotalCost.StringFixed(2))

	server := setup(t, orders.Options{})
	server.mem.PutSale(pricing.Sale{ItemID: server.b.ID, SalePrice: dec("40"),
		DateFrom: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), DateTo: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)})
	id, err = server.svc.CreateOrder(ctx, 1, server.lines("1", "1"))
	require.NoError(t, err)
	o, err = server.svc.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, "240.00", o.TotalCost.StringFixed(2))
}

func TestCreateOrderCopiesProfile(t *testing.T) {
	e := setup(t, orders.Options{})
	ctx := context.Background()
	require.NoError(t, e.mem.Profiles().Save(ctx, users.Profile{UserID: 1, FullName: "Ann", Email: "a@x.io", Phone: "+62", City: "Solo", Address: "Gg. 2"}))

	id, err := e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
	require.NoError(t, err)
	o, err := e.svc.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", o.FullName)
	assert.Equal(t, "+62", o.Phone)
	assert.Equal(t, "Solo", o.City)
}

func TestCreateOrderRejects(t *testing.T) {
	e := setup(t, orders.Options{})
	ctx := context.Background()

	_, err := e.svc.CreateOrder(ctx, 1, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = e.svc.CreateOrder(ctx, 1, []orders.LineInput{{ItemID: e.a.ID, Count: 0}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = e.svc.CreateOrder(ctx, 1, []orders.LineInput{{ItemID: e.a.ID, Count: orders.MaxLineCount + 1}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = e.svc.CreateOrder(ctx, 1, []orders.LineInput{{ItemID: 999, Count: 1}})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	hidden := e.mem.PutItem(catalog.Item{Name: "Hidden", Price: dec("10")})
	_, err = e.svc.CreateOrder(ctx, 1, []orders.LineInput{{ItemID: hidden.ID, Count: 1}})
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "unpublished items cannot be ordered")
	assert.Empty(t, e.pub.topics())
}

func TestFailedCreateKeepsDrafts(t *testing.T) {
	e := setup(t, orders.Options{})
	ctx := context.Background()

	draft, err := e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
	require.NoError(t, err)

	_, err = e.svc.CreateOrder(ctx, 1, []orders.LineInput{{ItemID: 9999, Count: 1}})
	require.True(t, errors.Is(err, apperr.ErrNotFound))

	o, err := e.svc.Get(ctx, 1, draft)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusNotAccepted, o.Status)
}

func TestLifecycle(t *testing.T) {
	e := setup(t, orders.Options{})
	ctx := context.Background()

	_, err := e.carts.Add(ctx, "sess", e.a.ID, 2)
	require.NoError(t, err)

	id, err := e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
	require.NoError(t, err)

	st, err := e.svc.Status(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusNotAccepted, st)
	_, cached := e.cache.Get(ctx, id)
	assert.False(t, cached, "drafts are not cached")

	_, err = e.svc.RecordPayment(ctx, 1, id, card)
	assert.True(t, errors.Is(err, apperr.ErrConflict), "payment before confirmation")

	require.NoError(t, e.svc.ConfirmShipping(ctx, 1, "sess", id, shipping))
	o, err := e.svc.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPayment, o.Status)
	assert.Equal(t, "Bandung", o.City)
	assert.Equal(t, "express", o.DeliveryType)

	lines, err := e.carts.View(ctx, "sess")
	require.NoError(t, err)
	assert.Nil(t, lines, "cart is cleared on confirmation")

	err = e.svc.ConfirmShipping(ctx, 1, "sess", id, shipping)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	p, err := e.svc.RecordPayment(ctx, 1, id, card)
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(o.TotalCost))
	assert.Equal(t, "************1111", p.Number)

	st, err = e.svc.Status(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAccepted, st)
	entry, cached := e.cache.Get(ctx, id)
	assert.True(t, cached)
	assert.Equal(t, orders.StatusAccepted, entry.Status)

	_, err = e.svc.RecordPayment(ctx, 1, id, card)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Len(t, e.mem.Payments(), 1)

	assert.Equal(t, []string{orders.TopicOrderCreated, orders.TopicOrderConfirmed, orders.TopicOrderAccepted}, e.pub.topics())
	last := e.pub.msgs[2].env
	assert.Equal(t, orders.EventOrderAccepted, last.EventType)
	assert.Equal(t, "test-api", last.Producer)
	var payload orders.OrderAcceptedPayload
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.Equal(t, id, payload.OrderID)
	assert.Len(t, payload.Items, 2)
}

func TestForeignOrderIsNotFound(t *testing.T) {
	e := setup(t, orders.Options{})
	ctx := context.Background()
	id, err := e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
	require.NoError(t, err)

	_, err = e.svc.Get(ctx, 2, id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = e.svc.ConfirmShipping(ctx, 2, "other", id, shipping)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = e.svc.Status(ctx, 2, id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	o, err := e.svc.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusNotAccepted, o.Status)
}

func TestConfirmValidates(t *testing.T) {
	e := setup(t, orders.Options{})
	ctx := context.Background()
	id, err := e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
	require.NoError(t, err)

	bad := shipping
	bad.Email = "nope"
	err = e.svc.ConfirmShipping(ctx, 1, "sess", id, bad)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	bad = shipping
	bad.City = " "
	err = e.svc.ConfirmShipping(ctx, 1, "sess", id, bad)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestSweepScope(t *testing.T) {
	ctx := context.Background()

	user := setup(t, orders.Options{Sweep: orders.SweepUser})
	draft, err := user.svc.CreateOrder(ctx, 1, user.lines("100", "50"))
	require.NoError(t, err)
	_, err = user.svc.CreateOrder(ctx, 2, user.lines("100", "50"))
	require.NoError(t, err)
	_, err = user.svc.Get(ctx, 1, draft)
	assert.NoError(t, err, "other users keep their drafts")

	global := setup(t, orders.Options{Sweep: orders.SweepGlobal})
	draft, err = global.svc.CreateOrder(ctx, 1, global.lines("100", "50"))
	require.NoError(t, err)
	_, err = global.svc.CreateOrder(ctx, 2, global.lines("100", "50"))
	require.NoError(t, err)
	_, err = global.svc.Get(ctx, 1, draft)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "global sweep removes every draft")
}

func TestListSweepsDraftsAndKeepsConfirmed(t *testing.T) {
	e := setup(t, orders.Options{})
	ctx := context.Background()

	kept, err := e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
	require.NoError(t, err)
	require.NoError(t, e.svc.ConfirmShipping(ctx, 1, "sess", kept, shipping))
	_, err = e.svc.CreateOrder(ctx, 1, e.lines("100", "50"))
	require.NoError(t, err)

	list, err := e.svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept, list[0].ID)
	assert.Equal(t, orders.StatusPayment, list[0].Status)
}

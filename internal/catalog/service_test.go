package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/memory"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*catalog.Service, *memory.Store) {
	t.Helper()
	m := memory.New()
	prices := pricing.NewResolver(m.Catalog())
	prices.Now = func() time.Time { return today }
	return catalog.NewService(m.Catalog(), prices, 50, 2, nil), m
}

func ids(cards []catalog.Card) []int64 {
	out := make([]int64, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestCategoriesOnlyActive(t *testing.T) {
	svc, m := setup(t)
	phones := m.PutCategory(catalog.Category{Title: "Phones", SortIndex: 2})
	tvs := m.PutCategory(catalog.Category{Title: "TVs", SortIndex: 1})
	m.PutCategory(catalog.Category{Title: "Empty", SortIndex: 0})
	android := m.PutSubCategory(catalog.SubCategory{CategoryID: phones.ID, Title: "Android"})
	m.PutSubCategory(catalog.SubCategory{CategoryID: phones.ID, Title: "Unused"})
	m.PutItem(catalog.Item{Name: "P", Price: dec("1"), Published: true, CategoryID: phones.ID, SubCategoryID: &android.ID})
	m.PutItem(catalog.Item{Name: "T", Price: dec("1"), Published: true, CategoryID: tvs.ID})

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "TVs", cats[0].Title)
	assert.Equal(t, "Phones", cats[1].Title)
	require.Len(t, cats[1].Subcategories, 1)
	assert.Equal(t, "Android", cats[1].Subcategories[0].Title)
}

func TestCatalogFiltersAndSorts(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	a := m.PutItem(catalog.Item{Name: "Alpha", Price: dec("30"), Quantity: 1, Published: true, FreeDelivery: true, CategoryID: 1, CreatedAt: today.Add(-3 * time.Hour)})
	b := m.PutItem(catalog.Item{Name: "Beta", Price: dec("10"), Quantity: 0, Published: true, CategoryID: 1, CreatedAt: today.Add(-1 * time.Hour)})
	c := m.PutItem(catalog.Item{Name: "Gamma", Price: dec("20"), Quantity: 5, Published: true, CategoryID: 2, CreatedAt: today.Add(-2 * time.Hour)})
	m.PutItem(catalog.Item{Name: "Hidden", Price: dec("1"), Quantity: 5, CategoryID: 1})

	page, err := svc.Catalog(ctx, catalog.Query{Sort: "price", SortType: "inc", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID}, ids(page.Items))
	assert.Equal(t, 2, page.LastPage)

	page, err = svc.Catalog(ctx, catalog.Query{Sort: "date", SortType: "dec", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids(page.Items))
	assert.Equal(t, 2, page.CurrentPage)

	page, err = svc.Catalog(ctx, catalog.Query{Filter: catalog.Filter{Available: true, CategoryID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids(page.Items))

	lo, hi := dec("10"), dec("30")
	page, err = svc.Catalog(ctx, catalog.Query{Filter: catalog.Filter{MinPrice: &lo, MaxPrice: &hi}})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids(page.Items), "price bounds are exclusive")

	page, err = svc.Catalog(ctx, catalog.Query{Filter: catalog.Filter{Name: "alp", FreeDelivery: true}})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, ids(page.Items))
}

func TestCatalogSortByReviews(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	a := m.PutItem(catalog.Item{Name: "A", Price: dec("1"), Published: true})
	b := m.PutItem(catalog.Item{Name: "B", Price: dec("1"), Published: true})
	for _, r := range []int{5, 3} {
		_, err := svc.AddReview(ctx, catalog.Review{ItemID: b.ID, Author: "x", Email: "x@y.io", Text: "ok", Rate: r})
		require.NoError(t, err)
	}

	page, err := svc.Catalog(ctx, catalog.Query{Sort: "reviews", SortType: "dec"})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID}, ids(page.Items))
	assert.Equal(t, 2, page.Items[0].Reviews)
	assert.InDelta(t, 4.0, page.Items[0].Rating, 0.001)

	page, err = svc.Catalog(ctx, catalog.Query{Sort: "rating", SortType: "inc"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ids(page.Items))
}

func TestPaginateClamps(t *testing.T) {
	svc, _ := setup(t)
	page, err := svc.Catalog(context.Background(), catalog.Query{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.LastPage)
}

func TestItemDetailsUseSalePrice(t *testing.T) {
	svc, m := setup(t)
	it := m.PutItem(catalog.Item{Name: "TV", Price: dec("500"), Published: true})
	m.PutSale(pricing.Sale{ItemID: it.ID, SalePrice: dec("450"), DateFrom: today, DateTo: today})
	m.PutSpecification(it.ID, catalog.Specification{Name: "Size", Value: "55in"})

	d, err := svc.Item(context.Background(), it.ID)
	require.NoError(t, err)
	assert.True(t, d.Price.Equal(dec("450")))
	assert.True(t, d.ListPrice.Equal(dec("500")))
	assert.Len(t, d.Specifications, 1)

	_, err = svc.Item(context.Background(), 404)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestItemDetailsHideUnpublished(t *testing.T) {
	svc, m := setup(t)
	it := m.PutItem(catalog.Item{Name: "Draft", Price: dec("20")})

	_, err := svc.Item(context.Background(), it.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAddReviewValidates(t *testing.T) {
	svc, m := setup(t)
	it := m.PutItem(catalog.Item{Name: "TV", Price: dec("1"), Published: true})
	ok := catalog.Review{ItemID: it.ID, Author: "Ann", Email: "ann@x.io", Text: "great", Rate: 5}

	for _, r := range []catalog.Review{
		{ItemID: it.ID, Email: ok.Email, Text: ok.Text, Rate: 5},
		{ItemID: it.ID, Author: "Ann", Email: "bad", Text: ok.Text, Rate: 5},
		{ItemID: it.ID, Author: "Ann", Email: ok.Email, Text: " ", Rate: 5},
		{ItemID: it.ID, Author: "Ann", Email: ok.Email, Text: ok.Text, Rate: 6},
	} {
		_, err := svc.AddReview(context.Background(), r)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	}

	missing := ok
	missing.ItemID = 999
	_, err := svc.AddReview(context.Background(), missing)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	all, err := svc.AddReview(context.Background(), ok)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "great", all[0].Text)
}

func TestPopularLimitedAndSales(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	a := m.PutItem(catalog.Item{Name: "A", Price: dec("1"), Published: true, SortIndex: 2})
	b := m.PutItem(catalog.Item{Name: "B", Price: dec("1"), Published: true, SortIndex: 1, Limited: true})
	m.PutItem(catalog.Item{Name: "C", Price: dec("1"), Published: true})
	for i := 0; i < 5; i++ {
		m.PutSale(pricing.Sale{ItemID: a.ID, SalePrice: dec("0.5"), DateFrom: today, DateTo: today})
	}

	pop, err := svc.Popular(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID}, ids(pop))

	lim, err := svc.Limited(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, ids(lim))

	sales, err := svc.Sales(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, sales.Items, 1)
	assert.Equal(t, 2, sales.LastPage)
}

func TestRecordSale(t *testing.T) {
	svc, m := setup(t)
	ctx := context.Background()
	it := m.PutItem(catalog.Item{Name: "A", Price: dec("1"), Published: true, Quantity: 3})

	require.NoError(t, svc.RecordSale(ctx, []catalog.SoldLine{{ItemID: it.ID, Count: 5}}))
	got, err := m.Catalog().GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, 5, got.Sold)

	err = svc.RecordSale(ctx, []catalog.SoldLine{{ItemID: it.ID, Count: 0}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

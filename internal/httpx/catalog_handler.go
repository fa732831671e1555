package httpx

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	Service *catalog.Service
	Log     *zap.Logger
}

func (h *CatalogHandler) Register(public, private chi.Router) {
	public.Get("/categories", h.categories)
	public.Get("/catalog", h.catalog)
	public.Get("/product/{id:[0-9]+}", h.product)
	public.Get("/products/popular", h.popular)
	public.Get("/products/limited", h.limited)
	public.Get("/banners", h.banners)
	public.Get("/sales", h.sales)
	private.Post("/product/{id:[0-9]+}/reviews", h.addReview)
}

func (h *CatalogHandler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Service.Categories(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cats))
}

func (h *CatalogHandler) catalog(w http.ResponseWriter, r *http.Request) {
	q, err := parseCatalogQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	page, err := h.Service.Catalog(r.Context(), q)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// parseCatalogQuery reads the storefront's bracketed filter params, e.g.
// filter[name]=phone&filter[minPrice]=10&sort=price&sortType=inc&currentPage=2.
func parseCatalogQuery(v url.Values) (catalog.Query, error) {
	q := catalog.Query{
		Sort:     v.Get("sort"),
		SortType: v.Get("sortType"),
	}
	q.Name = v.Get("filter[name]")
	var err error
	if q.MinPrice, err = optDecimal(v, "filter[minPrice]"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = optDecimal(v, "filter[maxPrice]"); err != nil {
		return q, err
	}
	q.FreeDelivery = v.Get("filter[freeDelivery]") == "true"
	q.Available = v.Get("filter[available]") == "true"
	if q.CategoryID, err = optInt64(v, "category"); err != nil {
		return q, err
	}
	limit, err := optInt64(v, "limit")
	if err != nil {
		return q, err
	}
	q.Limit = int(limit)
	page, err := optInt64(v, "currentPage")
	if err != nil {
		return q, err
	}
	q.Page = int(page)

	switch q.Sort {
	case "", "price", "date", "reviews", "rating":
	default:
		return q, apperr.Validation("unknown sort %q", q.Sort)
	}
	return q, nil
}

func optDecimal(v url.Values, key string) (*decimal.Decimal, error) {
	s := v.Get(key)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, apperr.Validation("%s must be a number", key)
	}
	return &d, nil
}

func optInt64(v url.Values, key string) (int64, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", key)
	}
	return n, nil
}

func (h *CatalogHandler) product(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	d, err := h.Service.Item(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *CatalogHandler) popular(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Service.Popular(r.Context())
	h.cards(w, cards, err)
}

func (h *CatalogHandler) limited(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Service.Limited(r.Context())
	h.cards(w, cards, err)
}

func (h *CatalogHandler) banners(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Service.Banners(r.Context())
	h.cards(w, cards, err)
}

func (h *CatalogHandler) cards(w http.ResponseWriter, cards []catalog.Card, err error) {
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cards))
}

func (h *CatalogHandler) sales(w http.ResponseWriter, r *http.Request) {
	page, err := optInt64(r.URL.Query(), "currentPage")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	out, err := h.Service.Sales(r.Context(), int(page))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type reviewReq struct {
	Author string `json:"author"`
	Email  string `json:"email"`
	Text   string `json:"text"`
	Rate   int    `json:"rate"`
}

func (h *CatalogHandler) addReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var req reviewReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	reviews, err := h.Service.AddReview(r.Context(), catalog.Review{
		ItemID: id, Author: req.Author, Email: req.Email, Text: req.Text, Rate: req.Rate,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviews)
}

// nonNil keeps empty lists as [] on the wire.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

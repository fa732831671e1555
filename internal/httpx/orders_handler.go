package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Service *orders.Service
	Log     *zap.Logger
}

type orderIDResp struct {
	OrderID int64 `json:"orderId"`
}

type statusResp struct {
	OrderID   int64         `json:"orderId"`
	PaymentID int64         `json:"paymentId,omitempty"`
	Status    orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.list)
	r.Post("/orders", h.create)
	r.Get("/order/{id:[0-9]+}", h.get)
	r.Post("/order/{id:[0-9]+}", h.confirm)
	r.Get("/order/{id:[0-9]+}/status", h.status)
	r.Post("/payment/{id:[0-9]+}", h.pay)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.List(ctx, uid)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var lines []orders.LineInput
	if err := decode(w, r, &lines); err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := h.Service.CreateOrder(ctx, uid, lines)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orderIDResp{OrderID: id})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, oid, ok := h.ids(w, r)
	if !ok {
		return
	}
	o, err := h.Service.Get(r.Context(), uid, oid)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) confirm(w http.ResponseWriter, r *http.Request) {
	uid, oid, ok := h.ids(w, r)
	if !ok {
		return
	}
	var d orders.ShippingDetails
	if err := decode(w, r, &d); err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.ConfirmShipping(ctx, uid, SessionFrom(r.Context()), oid, d); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orderIDResp{OrderID: oid})
}

func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	uid, oid, ok := h.ids(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	st, err := h.Service.Status(ctx, uid, oid)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResp{OrderID: oid, Status: st})
}

// pay ignores any amount the client sends; the order total is charged.
func (h *OrdersHandler) pay(w http.ResponseWriter, r *http.Request) {
	uid, oid, ok := h.ids(w, r)
	if !ok {
		return
	}
	var card orders.CardDetails
	if err := decode(w, r, &card); err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Service.RecordPayment(ctx, uid, oid, card)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResp{OrderID: oid, PaymentID: p.ID, Status: orders.StatusAccepted})
}

func (h *OrdersHandler) ids(w http.ResponseWriter, r *http.Request) (uid, oid int64, ok bool) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return 0, 0, false
	}
	oid, err = pathID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return 0, 0, false
	}
	return uid, oid, true
}

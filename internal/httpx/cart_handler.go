package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartHandler struct {
	Service *cart.Service
	Log     *zap.Logger
}

type basketReq struct {
	ID    int64 `json:"id"`
	Count int   `json:"count"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.view)
	r.Get("/basket", h.view)
	r.Post("/basket", h.add)
	r.Delete("/basket", h.remove)
}

// view answers null for an empty cart.
func (h *CartHandler) view(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Service.View(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req basketReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	lines, err := h.Service.Add(r.Context(), SessionFrom(r.Context()), req.ID, req.Count)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	var req basketReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	lines, err := h.Service.Remove(r.Context(), SessionFrom(r.Context()), req.ID, req.Count)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

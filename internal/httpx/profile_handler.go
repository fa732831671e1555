package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-marketplace/internal/users"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	Store users.Store
	Log   *zap.Logger
}

func (h *ProfileHandler) Register(r chi.Router) {
	r.Get("/profile", h.get)
	r.Post("/profile", h.update)
}

func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	p, err := h.Store.Get(r.Context(), uid)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var u users.ProfileUpdate
	if err := decode(w, r, &u); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p, err := users.Update(r.Context(), h.Store, uid, u)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

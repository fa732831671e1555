package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/logx"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBody = 1 << 20

// NewRouter returns a mux with the shared middleware stack and /healthz.
// Every request carries a session id; see Session.
func NewRouter(log *zap.Logger, sessionTTL time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logx.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(traceID, Session(sessionTTL))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// traceID copies chi's request id into the context read by event publishing.
func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests without a valid bearer token and stores the
// user id for UserFrom.
func RequireUser(v *auth.Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.FromHeader(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), id)))
		})
	}
}

func userID(r *http.Request) (int64, error) {
	id, ok := auth.UserFrom(r.Context())
	if !ok {
		return 0, apperr.ErrUnauthenticated
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps apperr kinds to status codes. Anything else is a 500 whose
// detail stays in the log.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		code = http.StatusConflict
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logx.OrNop(log).Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	if code == http.StatusNotFound {
		// same body for missing and foreign records
		msg = "not found"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid json")
	}
	return nil
}

// pathID reads a numeric route param. Routes constrain it to digits.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// Mount registers all handlers on r. Reviews, profile and order routes need
// a bearer token.
func Mount(r *chi.Mux, v *auth.Verifier, log *zap.Logger, c *CatalogHandler, ct *CartHandler, o *OrdersHandler, p *ProfileHandler) {
	private := r.With(RequireUser(v, log))
	c.Register(r, private)
	ct.Register(r)
	o.Register(private)
	p.Register(private)
}

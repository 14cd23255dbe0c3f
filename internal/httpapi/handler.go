// Package httpapi exposes a single cart store over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/nikolayk812/cartstore/internal/catalog"
	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/store"
)

const persistErrorHeader = "X-Cart-Persist-Error"

type ProductFinder interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

type Handler struct {
	store   *store.Store
	catalog ProductFinder
	logger  *slog.Logger
}

func NewRouter(s *store.Store, finder ProductFinder, logger *slog.Logger) http.Handler {
	h := &Handler{store: s, catalog: finder, logger: logger}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Patch("/items", h.UpdateQuantity)
		r.Delete("/items", h.RemoveItem)
	})

	return r
}

type lineItemDTO struct {
	LineKey   string  `json:"line_key"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice string  `json:"unit_price"`
	Currency  string  `json:"currency"`
	Quantity  int     `json:"quantity"`
	Size      *string `json:"size"`
	Color     *string `json:"color"`
	LineTotal string  `json:"line_total"`
}

type totalsDTO struct {
	Currency  string `json:"currency"`
	Subtotal  string `json:"subtotal"`
	Tax       string `json:"tax"`
	Shipping  string `json:"shipping"`
	Total     string `json:"total"`
	ItemCount int    `json:"item_count"`
}

type cartDTO struct {
	Items  []lineItemDTO `json:"items"`
	Totals totalsDTO     `json:"totals"`
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type UpdateQuantityRequestDTO struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  *int   `json:"quantity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "catalog lookup failed", slog.Any("error", err))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "catalog lookup failed")
		return
	}

	item, err := h.store.Add(r.Context(), product, quantity, domain.Variant{Size: req.Size, Color: req.Color})
	if !h.handleMutationError(w, err) {
		return
	}

	respondJSON(w, http.StatusCreated, mapLineItem(item))
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	key := domain.LineKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}

	err := h.store.UpdateQuantity(r.Context(), key, *req.Quantity)
	if !h.handleMutationError(w, err) {
		return
	}

	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	productID := query.Get("product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	key := domain.LineKey{ProductID: productID, Size: query.Get("size"), Color: query.Get("color")}

	if !h.handleMutationError(w, h.store.Remove(r.Context(), key)) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if !h.handleMutationError(w, h.store.Clear(r.Context())) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMutationError reports whether the handler should go on writing a
// success response. A persist failure is flagged by header only.
func (h *Handler) handleMutationError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrPersist):
		w.Header().Set(persistErrorHeader, "true")
		return true
	case errors.Is(err, store.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, store.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, store.ErrCurrencyMismatch):
		respondError(w, http.StatusBadRequest, "currency_mismatch", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
	return false
}

func (h *Handler) snapshot() cartDTO {
	items := h.store.Items()
	totals := h.store.Totals()

	dtos := make([]lineItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, mapLineItem(item))
	}

	return cartDTO{
		Items: dtos,
		Totals: totalsDTO{
			Currency:  totals.Total.Currency.String(),
			Subtotal:  totals.Subtotal.Amount.StringFixed(2),
			Tax:       totals.Tax.Amount.StringFixed(2),
			Shipping:  totals.Shipping.Amount.StringFixed(2),
			Total:     totals.Total.Amount.StringFixed(2),
			ItemCount: totals.ItemCount,
		},
	}
}

func mapLineItem(item domain.LineItem) lineItemDTO {
	return lineItemDTO{
		LineKey:   item.Key.String(),
		ProductID: item.Key.ProductID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice.Amount.StringFixed(2),
		Currency:  item.UnitPrice.Currency.String(),
		Quantity:  item.Quantity,
		Size:      optional(item.Key.Size),
		Color:     optional(item.Key.Color),
		LineTotal: item.Total().Amount.StringFixed(2),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// requestID keeps an incoming X-Request-Id or assigns a fresh uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

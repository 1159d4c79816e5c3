package sku

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-comissoes/internal/common"
	"github.com/noah-isme/backend-comissoes/internal/obs"
)

// RateStore abstracts rate persistence for handlers.
type RateStore interface {
	List(ctx context.Context, search string, limit, offset int) ([]Rate, int, error)
	Get(ctx context.Context, key string) (Rate, error)
	Create(ctx context.Context, rate Rate) error
	Update(ctx context.Context, rate Rate) error
	Delete(ctx context.Context, key string) error
}

// Handler exposes SKU commission rate management endpoints.
type Handler struct {
	Store    RateStore
	Validate *validator.Validate
	// OnChange runs after every successful mutation (cache invalidation,
	// recompute scheduling).
	OnChange     func(ctx context.Context)
	DefaultLimit int
	MaxLimit     int
}

type ratePayload struct {
	SKU         string          `json:"sku" validate:"required"`
	Description string          `json:"description"`
	Percentage  decimal.Decimal `json:"commissionPercentage"`
}

func (p ratePayload) toRate() (Rate, error) {
	if p.Percentage.IsNegative() || p.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		return Rate{}, errors.New("commissionPercentage must be between 0 and 100")
	}
	return Rate{
		SKU:         strings.TrimSpace(p.SKU),
		Description: strings.TrimSpace(p.Description),
		Percentage:  p.Percentage,
	}, nil
}

// List returns configured rates with optional search and pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	page, perPage := common.ParsePagination(r, common.DefaultPerPage(h.DefaultLimit))
	if h.MaxLimit > 0 && perPage > h.MaxLimit {
		perPage = h.MaxLimit
	}
	rates, total, err := h.Store.List(r.Context(), search, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list skus", nil)
		return
	}
	common.JSONPage(w, http.StatusOK, rates, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// Get returns a single configured rate.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "sku"))
	if key == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sku is required", nil)
		return
	}
	rate, err := h.Store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sku not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load sku", nil)
		return
	}
	common.JSONData(w, http.StatusOK, rate)
}

// Create registers a commission rate for a new SKU.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	rate, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.Store.Create(r.Context(), rate); err != nil {
		if errors.Is(err, ErrDuplicate) {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "sku already configured", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create sku", nil)
		return
	}
	if obs.IngestRowsTotal != nil {
		obs.IngestRowsTotal.WithLabelValues("skus").Inc()
	}
	h.changed(r.Context())
	common.JSONData(w, http.StatusCreated, rate)
}

// Update replaces the rate configured for an existing SKU.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "sku"))
	if key == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sku is required", nil)
		return
	}
	rate, ok := h.decode(w, r)
	if !ok {
		return
	}
	rate.SKU = key
	if err := h.Store.Update(r.Context(), rate); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sku not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update sku", nil)
		return
	}
	h.changed(r.Context())
	common.JSONData(w, http.StatusOK, rate)
}

// Delete removes the rate configured for a SKU.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "sku"))
	if key == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sku is required", nil)
		return
	}
	if err := h.Store.Delete(r.Context(), key); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sku not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete sku", nil)
		return
	}
	h.changed(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Rate, bool) {
	var payload ratePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Rate{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
			return Rate{}, false
		}
	}
	rate, err := payload.toRate()
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return Rate{}, false
	}
	return rate, true
}

func (h *Handler) changed(ctx context.Context) {
	if h.OnChange != nil {
		h.OnChange(ctx)
	}
}

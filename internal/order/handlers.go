package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-comissoes/internal/commission"
	"github.com/noah-isme/backend-comissoes/internal/common"
	"github.com/noah-isme/backend-comissoes/internal/obs"
)

const dateLayout = "2006-01-02"

// OrderStore abstracts order and delivery persistence for handlers.
type OrderStore interface {
	SaveOrders(ctx context.Context, orders []commission.Order) error
	ListOrders(ctx context.Context, limit, offset int) ([]commission.Order, int, error)
	GetOrder(ctx context.Context, id string) (commission.Order, error)
	SaveDeliveries(ctx context.Context, records []commission.DeliveryRecord) error
	ListDeliveries(ctx context.Context, limit, offset int) ([]commission.DeliveryRecord, int, error)
}

// Handler exposes order and delivery ingestion endpoints. Payloads arrive
// already parsed (the spreadsheet/PDF extraction happens upstream); handlers
// validate shape and well-formed dates before anything reaches the engine.
type Handler struct {
	Store    OrderStore
	Validate *validator.Validate
	// OnChange runs after every successful ingestion.
	OnChange     func(ctx context.Context)
	DefaultLimit int
	MaxLimit     int
}

type lineItemPayload struct {
	SKU       string          `json:"sku" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"gte=0"`
	UnitValue decimal.Decimal `json:"unitValue"`
	DiscCom   decimal.Decimal `json:"discCom"`
	DiscAdi   decimal.Decimal `json:"discAdi"`
	IPI       decimal.Decimal `json:"ipi"`
	ICMSSubs  decimal.Decimal `json:"icmsubs"`
}

type orderPayload struct {
	ID         string            `json:"id" validate:"required"`
	Date       string            `json:"date" validate:"required"`
	TotalValue decimal.Decimal   `json:"totalValue"`
	Items      []lineItemPayload `json:"items" validate:"required,min=1,dive"`
}

type ordersRequest struct {
	Orders []orderPayload `json:"orders" validate:"required,min=1,dive"`
}

type deliveryPayload struct {
	OrderID              string `json:"orderId" validate:"required"`
	SKU                  string `json:"sku" validate:"required"`
	ExpectedDeliveryDate string `json:"expectedDeliveryDate" validate:"required"`
}

type deliveriesRequest struct {
	Deliveries []deliveryPayload `json:"deliveries" validate:"required,min=1,dive"`
}

// UploadOrders ingests a batch of parsed orders.
func (h *Handler) UploadOrders(w http.ResponseWriter, r *http.Request) {
	var payload ordersRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
			return
		}
	}

	orders := make([]commission.Order, 0, len(payload.Orders))
	for _, op := range payload.Orders {
		date, err := parseDate(op.Date)
		if err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION",
				"invalid order date for "+op.ID, map[string]any{"date": op.Date})
			return
		}
		ord := commission.Order{
			ID:         strings.TrimSpace(op.ID),
			Date:       date,
			TotalValue: op.TotalValue,
		}
		for _, ip := range op.Items {
			ord.Items = append(ord.Items, commission.OrderLineItem{
				SKU:       strings.TrimSpace(ip.SKU),
				Quantity:  ip.Quantity,
				UnitValue: ip.UnitValue,
				DiscCom:   ip.DiscCom,
				DiscAdi:   ip.DiscAdi,
				IPI:       ip.IPI,
				ICMSSubs:  ip.ICMSSubs,
			})
		}
		orders = append(orders, ord)
	}

	if err := h.Store.SaveOrders(r.Context(), orders); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save orders", nil)
		return
	}
	if obs.IngestRowsTotal != nil {
		obs.IngestRowsTotal.WithLabelValues("orders").Add(float64(len(orders)))
	}
	h.changed(r.Context())
	common.JSONData(w, http.StatusCreated, map[string]any{
		"batchId":     uuid.NewString(),
		"ordersSaved": len(orders),
		"receivedAt":  time.Now().UTC(),
	})
}

// List returns ingested orders without items.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, common.DefaultPerPage(h.DefaultLimit))
	if h.MaxLimit > 0 && perPage > h.MaxLimit {
		perPage = h.MaxLimit
	}
	orders, total, err := h.Store.ListOrders(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	common.JSONPage(w, http.StatusOK, orders, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// Get returns one order with its line items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "order id is required", nil)
		return
	}
	ord, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	common.JSONData(w, http.StatusOK, ord)
}

// UploadDeliveries upserts expected delivery dates for (order, SKU) pairs.
func (h *Handler) UploadDeliveries(w http.ResponseWriter, r *http.Request) {
	var payload deliveriesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
			return
		}
	}

	records := make([]commission.DeliveryRecord, 0, len(payload.Deliveries))
	for _, dp := range payload.Deliveries {
		date, err := parseDate(dp.ExpectedDeliveryDate)
		if err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION",
				"invalid delivery date for "+dp.OrderID+"/"+dp.SKU,
				map[string]any{"expectedDeliveryDate": dp.ExpectedDeliveryDate})
			return
		}
		records = append(records, commission.DeliveryRecord{
			OrderID:          strings.TrimSpace(dp.OrderID),
			SKU:              strings.TrimSpace(dp.SKU),
			ExpectedDelivery: date,
		})
	}

	if err := h.Store.SaveDeliveries(r.Context(), records); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save deliveries", nil)
		return
	}
	if obs.IngestRowsTotal != nil {
		obs.IngestRowsTotal.WithLabelValues("deliveries").Add(float64(len(records)))
	}
	h.changed(r.Context())
	common.JSONData(w, http.StatusCreated, map[string]any{"deliveriesSaved": len(records)})
}

// ListDeliveries returns ingested delivery records.
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, common.DefaultPerPage(h.DefaultLimit))
	if h.MaxLimit > 0 && perPage > h.MaxLimit {
		perPage = h.MaxLimit
	}
	records, total, err := h.Store.ListDeliveries(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list deliveries", nil)
		return
	}
	common.JSONPage(w, http.StatusOK, records, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

func (h *Handler) changed(ctx context.Context) {
	if h.OnChange != nil {
		h.OnChange(ctx)
	}
}

// parseDate accepts calendar dates only; time-of-day never matters for
// commission math.
func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.UTC)
}

package sku_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-comissoes/internal/sku"
)

type fakeStore struct {
	rates map[string]sku.Rate
	order []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{rates: make(map[string]sku.Rate)}
}

func (f *fakeStore) List(_ context.Context, search string, limit, offset int) ([]sku.Rate, int, error) {
	matched := make([]sku.Rate, 0)
	for _, key := range f.order {
		rate := f.rates[key]
		if search == "" || strings.Contains(rate.SKU, search) || strings.Contains(rate.Description, search) {
			matched = append(matched, rate)
		}
	}
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *fakeStore) Get(_ context.Context, key string) (sku.Rate, error) {
	rate, ok := f.rates[key]
	if !ok {
		return sku.Rate{}, sku.ErrNotFound
	}
	return rate, nil
}

func (f *fakeStore) Create(_ context.Context, rate sku.Rate) error {
	if _, ok := f.rates[rate.SKU]; ok {
		return sku.ErrDuplicate
	}
	f.rates[rate.SKU] = rate
	f.order = append(f.order, rate.SKU)
	return nil
}

func (f *fakeStore) Update(_ context.Context, rate sku.Rate) error {
	if _, ok := f.rates[rate.SKU]; !ok {
		return sku.ErrNotFound
	}
	f.rates[rate.SKU] = rate
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if _, ok := f.rates[key]; !ok {
		return sku.ErrNotFound
	}
	delete(f.rates, key)
	return nil
}

func newHandler(store sku.RateStore) *sku.Handler {
	return &sku.Handler{Store: store, Validate: validator.New(), MaxLimit: 100}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateAndGetRate(t *testing.T) {
	store := newFakeStore()
	changed := 0
	handler := newHandler(store)
	handler.OnChange = func(context.Context) { changed++ }

	body := `{"sku":"X","description":"Parafuso","commissionPercentage":"2.5"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/skus", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, changed)

	getReq := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/skus/X", nil), "sku", "X")
	getRec := httptest.NewRecorder()
	handler.Get(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var resp struct {
		Data sku.Rate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &resp))
	require.Equal(t, "X", resp.Data.SKU)
	require.True(t, resp.Data.Percentage.Equal(decimal.RequireFromString("2.5")))
}

func TestCreateDuplicateConflicts(t *testing.T) {
	store := newFakeStore()
	handler := newHandler(store)

	body := `{"sku":"X","commissionPercentage":"2"}`
	first := httptest.NewRecorder()
	handler.Create(first, httptest.NewRequest(http.MethodPost, "/v1/skus", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	handler.Create(second, httptest.NewRequest(http.MethodPost, "/v1/skus", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, second.Code)
}

func TestCreateRejectsOutOfRangePercentage(t *testing.T) {
	handler := newHandler(newFakeStore())

	body := `{"sku":"X","commissionPercentage":"120"}`
	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/skus", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	missing := httptest.NewRecorder()
	handler.Create(missing, httptest.NewRequest(http.MethodPost, "/v1/skus", strings.NewReader(`{"commissionPercentage":"5"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, missing.Code)
}

func TestListPaginatesAndSearches(t *testing.T) {
	store := newFakeStore()
	handler := newHandler(store)
	for _, body := range []string{
		`{"sku":"AAA","description":"Parafuso","commissionPercentage":"1"}`,
		`{"sku":"BBB","description":"Porca","commissionPercentage":"2"}`,
		`{"sku":"ABC","description":"Arruela","commissionPercentage":"3"}`,
	} {
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/skus", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/v1/skus?search=A&limit=1&page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []sku.Rate `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			PerPage    int `json:"per_page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "ABC", resp.Data[0].SKU)
	require.Equal(t, 2, resp.Pagination.TotalItems)
}

func TestUpdateAndDelete(t *testing.T) {
	store := newFakeStore()
	handler := newHandler(store)

	create := httptest.NewRecorder()
	handler.Create(create, httptest.NewRequest(http.MethodPost, "/v1/skus", strings.NewReader(`{"sku":"X","commissionPercentage":"2"}`)))
	require.Equal(t, http.StatusCreated, create.Code)

	update := httptest.NewRecorder()
	updateReq := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/skus/X", strings.NewReader(`{"sku":"X","commissionPercentage":"4"}`)), "sku", "X")
	handler.Update(update, updateReq)
	require.Equal(t, http.StatusOK, update.Code)
	require.True(t, store.rates["X"].Percentage.Equal(decimal.NewFromInt(4)))

	del := httptest.NewRecorder()
	handler.Delete(del, withURLParam(httptest.NewRequest(http.MethodDelete, "/v1/skus/X", nil), "sku", "X"))
	require.Equal(t, http.StatusNoContent, del.Code)

	missing := httptest.NewRecorder()
	handler.Delete(missing, withURLParam(httptest.NewRequest(http.MethodDelete, "/v1/skus/X", nil), "sku", "X"))
	require.Equal(t, http.StatusNotFound, missing.Code)
}

package commission

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-comissoes/internal/common"
)

const dateLayout = "2006-01-02"

// Handler exposes read endpoints over computed commission data.
type Handler struct {
	Svc          *Service
	DefaultLimit int
	MaxLimit     int
}

// Periods returns period summaries sorted chronologically, optionally
// narrowed to a start-date range (inclusive on both ends).
func (h *Handler) Periods(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Svc.Summaries(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute commission periods", nil)
		return
	}

	query := r.URL.Query()
	if from, ok, err := parseDateParam(query.Get("start_date")); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid start_date", nil)
		return
	} else if ok {
		summaries = filterSummaries(summaries, func(p Period) bool { return !p.Start.Before(from) })
	}
	if to, ok, err := parseDateParam(query.Get("end_date")); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid end_date", nil)
		return
	} else if ok {
		summaries = filterSummaries(summaries, func(p Period) bool { return !p.Start.After(to) })
	}

	page, perPage := common.ParsePagination(r, common.DefaultPerPage(h.DefaultLimit))
	if h.MaxLimit > 0 && perPage > h.MaxLimit {
		perPage = h.MaxLimit
	}
	total := len(summaries)
	lo, hi := common.PageBounds(page, perPage, total)
	common.JSONPage(w, http.StatusOK, summaries[lo:hi], common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// PeriodItems returns the line items of exactly one period, identified by its
// start date. The label defaults to the canonical derivation from the start
// date; pass ?label= to override when matching externally supplied periods.
func (h *Handler) PeriodItems(w http.ResponseWriter, r *http.Request) {
	startParam := strings.TrimSpace(chi.URLParam(r, "start"))
	start, err := time.ParseInLocation(dateLayout, startParam, time.UTC)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid period start date", nil)
		return
	}
	label := strings.TrimSpace(r.URL.Query().Get("label"))
	if label == "" {
		label = LabelForStart(start)
	}

	items, err := h.Svc.PeriodItems(r.Context(), Period{Start: start, Label: label})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute commission items", nil)
		return
	}
	common.JSONData(w, http.StatusOK, items)
}

// MissingDeliveries reports order lines excluded from commission calculation.
func (h *Handler) MissingDeliveries(w http.ResponseWriter, r *http.Request) {
	missing, err := h.Svc.MissingReport(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute missing deliveries", nil)
		return
	}

	page, perPage := common.ParsePagination(r, common.DefaultPerPage(h.DefaultLimit))
	if h.MaxLimit > 0 && perPage > h.MaxLimit {
		perPage = h.MaxLimit
	}
	total := len(missing)
	lo, hi := common.PageBounds(page, perPage, total)
	common.JSONPage(w, http.StatusOK, missing[lo:hi], common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

func parseDateParam(value string) (time.Time, bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, false, err
	}
	return parsed, true, nil
}

func filterSummaries(summaries []PeriodSummary, keep func(Period) bool) []PeriodSummary {
	filtered := make([]PeriodSummary, 0, len(summaries))
	for _, summary := range summaries {
		if keep(summary.Period) {
			filtered = append(filtered, summary)
		}
	}
	return filtered
}

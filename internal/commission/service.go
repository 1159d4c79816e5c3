package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-comissoes/internal/obs"
)

// OrderSource loads engine input owned by the order module.
type OrderSource interface {
	AllOrders(ctx context.Context) ([]Order, error)
	AllDeliveries(ctx context.Context) ([]DeliveryRecord, error)
}

// RateSource loads the SKU commission configuration.
type RateSource interface {
	AllRates(ctx context.Context) ([]SKURate, error)
}

// Service runs the pure engine over persisted inputs and caches the derived
// period summaries. The engine never sees the database; the service feeds it
// plain values.
type Service struct {
	Orders OrderSource
	Rates  RateSource
	Cache  *Cache
	Logger zerolog.Logger
}

// LineItems computes the full commission line-item list from current inputs.
func (s *Service) LineItems(ctx context.Context) ([]LineItem, error) {
	orders, rates, deliveries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return Calculate(orders, rates, deliveries), nil
}

// Summaries returns period summaries, served from cache when warm.
func (s *Service) Summaries(ctx context.Context) ([]PeriodSummary, error) {
	var cached []PeriodSummary
	hit, err := s.Cache.GetJSON(ctx, summariesCacheKey, &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("period summary cache read failed")
	}
	if hit {
		if obs.PeriodCacheTotal != nil {
			obs.PeriodCacheTotal.WithLabelValues("hit").Inc()
		}
		return cached, nil
	}
	if obs.PeriodCacheTotal != nil {
		obs.PeriodCacheTotal.WithLabelValues("miss").Inc()
	}
	return s.Recompute(ctx)
}

// Recompute rebuilds period summaries from scratch and warms the cache.
func (s *Service) Recompute(ctx context.Context) ([]PeriodSummary, error) {
	start := time.Now()
	items, err := s.LineItems(ctx)
	if err != nil {
		if obs.RecomputeTotal != nil {
			obs.RecomputeTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	summaries := GroupByPeriod(items)

	if err := s.Cache.SetJSON(ctx, summariesCacheKey, summaries); err != nil {
		s.Logger.Warn().Err(err).Msg("period summary cache write failed")
	}
	if obs.RecomputeTotal != nil {
		obs.RecomputeTotal.WithLabelValues("ok").Inc()
	}
	if obs.RecomputeDuration != nil {
		obs.RecomputeDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	s.Logger.Info().
		Int("line_items", len(items)).
		Int("periods", len(summaries)).
		Dur("took", time.Since(start)).
		Msg("commission recompute")
	return summaries, nil
}

// PeriodItems returns the line items belonging to exactly one period.
func (s *Service) PeriodItems(ctx context.Context, period Period) ([]LineItem, error) {
	items, err := s.LineItems(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByPeriod(items, period), nil
}

// MissingReport lists order lines excluded from commission calculation for
// lack of a delivery record.
func (s *Service) MissingReport(ctx context.Context) ([]MissingDelivery, error) {
	orders, err := s.Orders.AllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("commission: load orders: %w", err)
	}
	deliveries, err := s.Orders.AllDeliveries(ctx)
	if err != nil {
		return nil, fmt.Errorf("commission: load deliveries: %w", err)
	}
	return MissingDeliveries(orders, deliveries), nil
}

// Invalidate drops cached summaries. Call after any ingestion or rate change.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx, summariesCacheKey); err != nil {
		s.Logger.Warn().Err(err).Msg("period summary cache invalidation failed")
	}
}

func (s *Service) load(ctx context.Context) ([]Order, []SKURate, []DeliveryRecord, error) {
	orders, err := s.Orders.AllOrders(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("commission: load orders: %w", err)
	}
	rates, err := s.Rates.AllRates(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("commission: load rates: %w", err)
	}
	deliveries, err := s.Orders.AllDeliveries(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("commission: load deliveries: %w", err)
	}
	return orders, rates, deliveries, nil
}

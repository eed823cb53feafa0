// Package dashboard assembles the home page figures: today's sales stats for
// admins and the low-stock list.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/salesdesk/salesdesk/internal/api"
)

// Backend is the dashboard part of the backend API.
type Backend interface {
	DashboardStats(ctx context.Context, from, to time.Time) (api.DashboardStats, error)
	LowStockProducts(ctx context.Context, threshold int) ([]api.Product, error)
}

// Overview is the cached dashboard payload.
type Overview struct {
	Stats       api.DashboardStats `json:"stats"`
	LowStock    []api.Product      `json:"lowStock"`
	Threshold   int                `json:"threshold"`
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// Range is an inclusive day range. A zero range means today.
type Range struct {
	From time.Time
	To   time.Time
}

// Today returns the range covering the current day.
func Today(now time.Time) Range {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Range{From: day, To: day}
}

func (r Range) key() string {
	return r.From.Format("20060102") + "-" + r.To.Format("20060102")
}

// Service loads overviews through the cache. Concurrent misses for the same
// key share one backend round trip.
type Service struct {
	backend   Backend
	cache     *Cache
	group     singleflight.Group
	threshold int
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(backend Backend, cache *Cache, threshold int, logger *slog.Logger) *Service {
	if threshold <= 0 {
		threshold = api.DefaultLowStockThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, cache: cache, threshold: threshold, logger: logger, now: time.Now}
}

// Threshold is the stock level at or below which a product counts as low.
func (s *Service) Threshold() int { return s.threshold }

// Overview returns the stats for rng together with the low-stock list.
func (s *Service) Overview(ctx context.Context, rng Range) (Overview, error) {
	if rng.From.IsZero() || rng.To.IsZero() {
		rng = Today(s.now())
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "overview", rng.key(), strconv.Itoa(s.threshold))
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.load(ctx, rng)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var out Overview
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			ov, err := s.load(ctx, rng)
			if err != nil {
				return nil, loadError{err}
			}
			return ov, nil
		})
		return out, err
	})
	var le loadError
	switch {
	case errors.As(err, &le):
		return Overview{}, le.err
	case err != nil:
		// Redis trouble should not hide the dashboard.
		s.logger.Warn("dashboard cache failed", slog.Any("error", err))
		return s.load(ctx, rng)
	}
	return v.(Overview), nil
}

// LowStock returns the cached low-stock list, which the overview also
// carries.
func (s *Service) LowStock(ctx context.Context) ([]api.Product, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "low_stock", strconv.Itoa(s.threshold))
	if err != nil {
		return s.backend.LowStockProducts(ctx, s.threshold)
	}
	var out []api.Product
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.backend.LowStockProducts(ctx, s.threshold)
	})
	return out, err
}

// ScanLowStock reads the low-stock list from the backend and overwrites the
// cached copy, so the next dashboard view shows it without a backend call.
func (s *Service) ScanLowStock(ctx context.Context) ([]api.Product, error) {
	items, err := s.backend.LowStockProducts(ctx, s.threshold)
	if err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "low_stock", strconv.Itoa(s.threshold))
	if err == nil {
		var raw []byte
		if raw, err = json.Marshal(items); err == nil {
			err = s.cache.Store(ctx, key, raw)
		}
	}
	if err != nil {
		s.logger.Warn("store low-stock scan", slog.Any("error", err))
	}
	return items, nil
}

// Refresh retires cached entries and recomputes today's overview. The
// worker calls it on schedule.
func (s *Service) Refresh(ctx context.Context) (Overview, error) {
	if err := s.cache.Bump(ctx); err != nil {
		return Overview{}, err
	}
	return s.Overview(ctx, Today(s.now()))
}

// loadError marks a backend failure inside the cache loader.
type loadError struct{ err error }

func (e loadError) Error() string { return e.err.Error() }
func (e loadError) Unwrap() error { return e.err }

func (s *Service) load(ctx context.Context, rng Range) (Overview, error) {
	out := Overview{Threshold: s.threshold, From: rng.From, To: rng.To}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Stats, err = s.backend.DashboardStats(gctx, rng.From, rng.To)
		return err
	})
	g.Go(func() error {
		var err error
		out.LowStock, err = s.backend.LowStockProducts(gctx, s.threshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	out.GeneratedAt = s.now()
	return out, nil
}

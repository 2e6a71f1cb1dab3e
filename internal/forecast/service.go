package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Service answers demand forecasts, caching per calendar day.
type Service struct {
	forecaster *Forecaster
	cache      Cache
	cacheTTL   time.Duration
	clock      clock.Clock
	logger     *slog.Logger
}

type ServiceOption func(*Service)

func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(forecaster *Forecaster, cache Cache, cacheTTL time.Duration, clk clock.Clock, opts ...ServiceOption) (*Service, error) {
	if forecaster == nil {
		return nil, fmt.Errorf("forecaster is required")
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{forecaster: forecaster, cache: cache, cacheTTL: cacheTTL, clock: clk, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NextWeekDemand returns predicted demand per blood group for the coming
// seven days. Cache failures fall through to the model.
func (s *Service) NextWeekDemand(ctx context.Context) (map[domain.BloodGroup]int, error) {
	now := s.clock.Now()
	key := "forecast:week:" + now.Format("2006-01-02")

	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "forecast cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	predicted, err := s.forecaster.PredictNextWeekDemand(now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute demand forecast")
	}
	if err := s.cache.Set(ctx, key, predicted, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "forecast cache write failed", "error", err)
	}
	return predicted, nil
}

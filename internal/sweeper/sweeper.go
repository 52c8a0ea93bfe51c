// Package sweeper expires pending orders that were never paid, returning
// their reserved stock to the sellable pool.
package sweeper

import (
	"context"
	"time"

	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// Clock abstracts time so sweeps can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sweeper scans for stale pending orders on an interval and expires them.
type Sweeper struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cache       *cache.Cache
	publisher   events.Publisher
	clock       Clock
	interval    time.Duration
	maxAge      time.Duration
	logger      zerolog.Logger
}

// New creates a sweeper. maxAge is how long a pending order may wait for
// payment before its reservation is released.
func New(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	c *cache.Cache,
	publisher events.Publisher,
	clock Clock,
	interval, maxAge time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cache:       c,
		publisher:   publisher,
		clock:       clock,
		interval:    interval,
		maxAge:      maxAge,
		logger:      logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps on the configured interval until ctx is cancelled. One sweep
// runs immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("max_age", s.maxAge).
		Msg("sweeper started")

	if err := s.SweepOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// SweepOnce expires every pending order older than maxAge. Each order is
// handled in its own transaction so one failure cannot block the rest.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.maxAge)

	stale, err := s.orderRepo.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	s.logger.Info().Int("count", len(stale)).Time("cutoff", cutoff).Msg("expiring stale orders")

	for _, order := range stale {
		if err := s.expire(ctx, &order); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to expire order")
		}
	}

	return nil
}

// expire moves one order to expired and releases its reservations. The
// conditional status update makes the sweep safe against a payment
// confirmation racing in between the list and the lock.
func (s *Sweeper) expire(ctx context.Context, order *model.Order) error {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := s.orderRepo.GetForUpdate(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	if current == nil || current.Status != model.OrderPending {
		// Paid or cancelled since listing; nothing to do.
		_ = tx.Rollback(ctx)
		return nil
	}

	ok, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderPending, model.OrderExpired)
	if err != nil {
		return err
	}
	if !ok {
		_ = tx.Rollback(ctx)
		return nil
	}

	items, err := s.orderRepo.GetItems(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, err = s.productRepo.LockForUpdate(ctx, tx, item.ProductID); err != nil {
			return err
		}
		if err = s.productRepo.ReleaseReserved(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Time("created_at", order.CreatedAt).
		Msg("order expired")

	if s.cache != nil {
		s.cache.SetOrderStatus(ctx, order.ID, model.OrderExpired)
	}
	if s.publisher != nil {
		s.publisher.Publish(events.TopicOrderExpired, order.ID.String(), events.OrderExpired{
			OrderID:   order.ID,
			UserID:    order.UserID,
			ExpiredAt: s.clock.Now(),
		})
	}

	return nil
}

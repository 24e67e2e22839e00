package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Scheduler periodically syncs every user that has linked items. It backs
// the background refresh; on-demand syncs still go straight through the
// Engine and serialize with scheduled runs via the engine's per-user lock.
type Scheduler struct {
	engine   *Engine
	items    store.ItemStore
	interval time.Duration

	mu      gosync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewScheduler creates a scheduler running a full sweep every interval.
func NewScheduler(engine *Engine, items store.ItemStore, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		items:    items,
		interval: interval,
	}
}

// Start launches the background sweep loop. It returns immediately; the
// first sweep runs after one full interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep syncs every user with at least one linked item. A failing user does
// not stop the sweep.
func (s *Scheduler) sweep(ctx context.Context) {
	log := logger.FromContext(ctx)

	users, err := s.items.ListUsers(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Scheduled sweep: listing users failed")
		return
	}

	for _, userID := range users {
		res, err := s.engine.SyncUser(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Scheduled sync failed")
			continue
		}
		log.Info().
			Str("user_id", userID).
			Int("total_synced", res.TotalSynced).
			Int("items", len(res.Results)).
			Msg("Scheduled sync completed")
	}
}

// Stop ends the sweep loop and waits for an in-flight sweep to finish or
// the context to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

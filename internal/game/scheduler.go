package game

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives the fixed-period accrual loop. Each tick recomputes the
// passive rate from scratch and credits rate x elapsed, then services
// auto-action boosters by dispatching real click transactions, so auto
// boosters are not a separate income channel.
type Scheduler struct {
	engine    *Engine
	tickEvery time.Duration
	log       *slog.Logger
}

func NewScheduler(engine *Engine, tickEvery time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if tickEvery <= 0 {
		tickEvery = time.Second
	}
	return &Scheduler{engine: engine, tickEvery: tickEvery, log: logger}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.engine.clock.Now())
		}
	}
}

// Tick performs one scheduler pass at the given instant. Exposed so tests
// can drive time explicitly.
func (s *Scheduler) Tick(now time.Time) {
	s.engine.Accrue(now)

	// One click per non-expired auto booster per tick. Expiry is the
	// cancellation point; an expired entry simply stops matching.
	view := s.engine.Snapshot()
	for id, b := range view.ActiveBoosters {
		if !boosterActive(b, now) {
			continue
		}
		def, ok := s.engine.cat.Booster(id)
		if !ok || def.Category != BoosterAuto {
			continue
		}
		if _, err := s.engine.Dispatch(ClickAction{}); err != nil {
			s.log.Error("auto action failed", "booster", id, "err", err)
		}
	}
}

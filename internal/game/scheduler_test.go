package game

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testScheduler(e *Engine) *Scheduler {
	return NewScheduler(e, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAccrueCreditsRateTimesElapsed(t *testing.T) {
	e, clk := newTestEngine(testCatalog())

	// One kiosk: 86_400 coins/day is exactly 1 coin/sec.
	mustAccept(t, e, BuyVenture{VentureID: "kiosk"})
	if got, want := e.Snapshot().PassiveIncomeRateMicros, int64(MicrosPerCoin); got != want {
		t.Fatalf("rate = %d, want %d", got, want)
	}
	balance := e.Snapshot().BalanceMicros

	clk.Advance(time.Second)
	if credit := e.Accrue(clk.Now()); credit != MicrosPerCoin {
		t.Fatalf("1s accrual = %d, want %d", credit, MicrosPerCoin)
	}
	if got := e.Snapshot().BalanceMicros; got != balance+MicrosPerCoin {
		t.Fatalf("balance = %d, want %d", got, balance+MicrosPerCoin)
	}
}

func TestAccrueCoalescesMissedTicks(t *testing.T) {
	e, clk := newTestEngine(testCatalog())
	mustAccept(t, e, BuyVenture{VentureID: "kiosk"})

	// A 3s gap pays once for the whole gap, not per missed tick.
	clk.Advance(3 * time.Second)
	if credit := e.Accrue(clk.Now()); credit != 3*MicrosPerCoin {
		t.Fatalf("3s accrual = %d, want %d", credit, 3*MicrosPerCoin)
	}
}

func TestAccrueWithoutElapsedTimeIsNoop(t *testing.T) {
	e, clk := newTestEngine(testCatalog())
	mustAccept(t, e, BuyVenture{VentureID: "kiosk"})

	if credit := e.Accrue(clk.Now()); credit != 0 {
		t.Fatalf("zero-elapsed accrual = %d, want 0", credit)
	}
}

func TestAccrueRecomputesRateBeforeCrediting(t *testing.T) {
	e, clk := newTestEngine(testCatalog())
	mustAccept(t, e, BuyVenture{VentureID: "kiosk"})
	mustAccept(t, e, ActivateBooster{BoosterID: "tailwind"})

	if got, want := e.Snapshot().PassiveIncomeRateMicros, int64(2*MicrosPerCoin); got != want {
		t.Fatalf("boosted rate = %d, want %d", got, want)
	}
	clk.Advance(time.Second)
	if credit := e.Accrue(clk.Now()); credit != 2*MicrosPerCoin {
		t.Fatalf("boosted accrual = %d, want %d", credit, 2*MicrosPerCoin)
	}

	// Past expiry the recompute drops the multiplier before crediting, so
	// the expired booster contributes nothing to this tick.
	clk.Advance(301 * time.Second)
	if credit := e.Accrue(clk.Now()); credit != 301*MicrosPerCoin {
		t.Fatalf("post-expiry accrual = %d, want %d", credit, 301*MicrosPerCoin)
	}
	if got, want := e.Snapshot().PassiveIncomeRateMicros, int64(MicrosPerCoin); got != want {
		t.Fatalf("rate after expiry = %d, want %d", got, want)
	}
}

func TestSchedulerTickDispatchesAutoBoosterClicks(t *testing.T) {
	e, clk := newTestEngine(testCatalog())
	s := testScheduler(e)

	mustAccept(t, e, ActivateBooster{BoosterID: "interns"})
	balance := e.Snapshot().BalanceMicros

	clk.Advance(time.Second)
	s.Tick(clk.Now())
	view := e.Snapshot()
	if view.TotalActions != 1 {
		t.Fatalf("total actions = %d, want 1 auto click", view.TotalActions)
	}
	if want := balance + CoinsToMicros(2.5); view.BalanceMicros != want {
		t.Fatalf("balance = %d, want %d", view.BalanceMicros, want)
	}

	// Expired auto boosters stop clicking; expiry is the cancellation.
	clk.Advance(120 * time.Second)
	s.Tick(clk.Now())
	if got := e.Snapshot().TotalActions; got != 1 {
		t.Fatalf("total actions after expiry = %d, want 1", got)
	}
}

func TestSchedulerTickWithoutAutoBoosterOnlyAccrues(t *testing.T) {
	e, clk := newTestEngine(testCatalog())
	s := testScheduler(e)
	mustAccept(t, e, BuyVenture{VentureID: "kiosk"})
	balance := e.Snapshot().BalanceMicros

	clk.Advance(time.Second)
	s.Tick(clk.Now())
	view := e.Snapshot()
	if view.TotalActions != 0 {
		t.Fatalf("tick dispatched %d clicks without an auto booster", view.TotalActions)
	}
	if want := balance + MicrosPerCoin; view.BalanceMicros != want {
		t.Fatalf("balance = %d, want %d", view.BalanceMicros, want)
	}
}

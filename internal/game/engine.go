package game

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Engine owns the aggregate and serializes every mutation behind one
// mutex: transaction dispatch, accrual ticks, and snapshot reads all take
// the same lock, so each operation is atomic with respect to the
// aggregate. There is exactly one Engine per player session.
type Engine struct {
	mu          sync.Mutex
	cat         *Catalog
	agg         *Aggregate
	clock       Clock
	log         *slog.Logger
	seq         uint64
	lastAccrual time.Time

	subMu sync.Mutex
	subs  []func(*Aggregate)

	// strict makes invariant violations panic instead of clamping.
	// Tests enable it; production builds clamp and log.
	strict bool
}

func NewEngine(cat *Catalog, agg *Aggregate, clock Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = SystemClock()
	}
	if agg == nil {
		agg = NewAggregate(cat)
	}
	agg.ensureMaps()
	agg.recomputePassiveRate(cat, clock.Now())
	return &Engine{
		cat:         cat,
		agg:         agg,
		clock:       clock,
		log:         logger,
		lastAccrual: clock.Now(),
	}
}

func (e *Engine) Catalog() *Catalog { return e.cat }

// Snapshot returns a deep copy of the current aggregate for rendering and
// serialization. Callers may mutate it freely.
func (e *Engine) Snapshot() *Aggregate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg.Clone()
}

// MutationSeq increments on every committed mutation. The persistence
// manager uses it to skip cadence ticks with nothing new to write.
func (e *Engine) MutationSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// OnMutation registers a callback fired after every committed mutation
// with an immutable copy of the new state. Callbacks run outside the
// engine lock and may dispatch further actions.
func (e *Engine) OnMutation(fn func(*Aggregate)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, fn)
}

// Dispatch validates and applies one action. Precondition failures come
// back as a rejected Result; errors are reserved for unknown ids and
// malformed actions.
func (e *Engine) Dispatch(act Action) (Result, error) {
	e.mu.Lock()
	now := e.clock.Now()

	res, err := e.apply(act, now)
	if err != nil || !res.Accepted {
		e.mu.Unlock()
		return res, err
	}

	e.enforceNonNegative()
	res.Unlocked = e.evaluateAchievements()
	e.seq++
	view := e.agg.Clone()
	e.mu.Unlock()

	e.notify(view)
	return res, nil
}

func (e *Engine) apply(act Action, now time.Time) (Result, error) {
	switch a := act.(type) {
	case ClickAction:
		return e.applyClick(now), nil
	case BuyHolding:
		return e.applyBuyHolding(a.AssetID)
	case SellHolding:
		return e.applySellHolding(a.AssetID)
	case BuyVenture:
		return e.applyBuyVenture(a.VentureID)
	case UpgradeVenture:
		return e.applyUpgradeVenture(a.VentureID, a.UpgradeID)
	case SellVenture:
		return e.applySellVenture(a.VentureID)
	case ActivateBooster:
		return e.applyActivateBooster(a.BoosterID, now)
	case Debit:
		if a.AmountMicros <= 0 {
			return Result{}, fmt.Errorf("%w: debit amount must be > 0", ErrInvalidAction)
		}
		if e.agg.BalanceMicros < a.AmountMicros {
			return rejected(ReasonInsufficientFunds), nil
		}
		e.agg.BalanceMicros -= a.AmountMicros
		return Result{Accepted: true, AmountMicros: -a.AmountMicros}, nil
	case Credit:
		if a.AmountMicros <= 0 {
			return Result{}, fmt.Errorf("%w: credit amount must be > 0", ErrInvalidAction)
		}
		e.agg.BalanceMicros += a.AmountMicros
		return Result{Accepted: true, AmountMicros: a.AmountMicros}, nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrInvalidAction, act)
	}
}

func (e *Engine) applyClick(now time.Time) Result {
	mult := e.agg.boosterProduct(e.cat, BoosterClick, now)
	credit := int64(math.Round(float64(e.agg.ClickValueMicros) * mult))
	e.agg.BalanceMicros += credit
	e.agg.TotalActions++
	lvl := e.agg.gainExperience(e.cat)
	if lvl.LevelsGained > 0 {
		// The level income multiplier changed; the cached rate must
		// reflect it immediately, not at the next tick.
		e.agg.recomputePassiveRate(e.cat, now)
	}
	return Result{Accepted: true, AmountMicros: credit + lvl.BonusMicros, LevelsGained: lvl.LevelsGained}
}

func (e *Engine) applyBuyHolding(assetID string) (Result, error) {
	def, ok := e.cat.Asset(assetID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	qty := e.agg.Holdings[assetID]
	price := HoldingPriceMicros(def.BasePriceMicros, qty, def.GrowthMultiplier)
	if e.agg.BalanceMicros < price {
		return rejected(ReasonInsufficientFunds), nil
	}
	e.agg.BalanceMicros -= price
	e.agg.Holdings[assetID] = qty + 1
	lot := e.agg.PurchaseLedger[assetID]
	lot.TotalUnits++
	lot.TotalCostMicros += price
	e.agg.PurchaseLedger[assetID] = lot
	e.agg.recomputePassiveRate(e.cat, e.clock.Now())
	return Result{Accepted: true, AmountMicros: -price}, nil
}

func (e *Engine) applySellHolding(assetID string) (Result, error) {
	def, ok := e.cat.Asset(assetID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	qty := e.agg.Holdings[assetID]
	if qty < 1 {
		return rejected(ReasonNotOwned), nil
	}
	price := HoldingSellPriceMicros(def.BasePriceMicros, qty, def.GrowthMultiplier, e.cat.Tuning.HoldingSellRatio)
	e.agg.BalanceMicros += price
	e.agg.Holdings[assetID] = qty - 1
	if lot, ok := e.agg.PurchaseLedger[assetID]; ok && lot.TotalUnits > 0 {
		avg := lot.TotalCostMicros / lot.TotalUnits
		lot.TotalUnits--
		lot.TotalCostMicros -= avg
		e.agg.PurchaseLedger[assetID] = lot
	}
	e.agg.recomputePassiveRate(e.cat, e.clock.Now())
	return Result{Accepted: true, AmountMicros: price}, nil
}

func (e *Engine) applyBuyVenture(ventureID string) (Result, error) {
	def, ok := e.cat.Venture(ventureID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrVentureNotFound, ventureID)
	}
	if e.agg.Level < def.RequiredLevel {
		return rejected(ReasonLevelTooLow), nil
	}
	var qty int64
	var owned map[string]bool
	if vs, ok := e.agg.Ventures[ventureID]; ok {
		qty = vs.QuantityOwned
		owned = vs.UpgradesOwned
	}
	cost := VentureCostMicros(def, qty, owned, e.cat.Tuning.VentureGrowthRate)
	if e.agg.BalanceMicros < cost {
		return rejected(ReasonInsufficientFunds), nil
	}
	e.agg.BalanceMicros -= cost
	e.agg.venture(ventureID).QuantityOwned = qty + 1
	e.agg.recomputePassiveRate(e.cat, e.clock.Now())
	return Result{Accepted: true, AmountMicros: -cost}, nil
}

func (e *Engine) applyUpgradeVenture(ventureID, upgradeID string) (Result, error) {
	def, ok := e.cat.Venture(ventureID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrVentureNotFound, ventureID)
	}
	upg, ok := def.Upgrade(upgradeID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrUpgradeNotFound, ventureID, upgradeID)
	}
	vs, ok := e.agg.Ventures[ventureID]
	if !ok || vs.QuantityOwned < 1 {
		return rejected(ReasonNotOwned), nil
	}
	if vs.UpgradesOwned[upgradeID] {
		// Upgrades are a set, not a counter: re-requesting an owned
		// upgrade changes nothing and charges nothing.
		return rejected(ReasonAlreadyOwned), nil
	}
	cost := UpgradeCostMicros(upg.BaseCostMicros, vs.QuantityOwned)
	if e.agg.BalanceMicros < cost {
		return rejected(ReasonInsufficientFunds), nil
	}
	e.agg.BalanceMicros -= cost
	vs.UpgradesOwned[upgradeID] = true
	e.agg.recomputePassiveRate(e.cat, e.clock.Now())
	return Result{Accepted: true, AmountMicros: -cost}, nil
}

func (e *Engine) applySellVenture(ventureID string) (Result, error) {
	def, ok := e.cat.Venture(ventureID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrVentureNotFound, ventureID)
	}
	vs, ok := e.agg.Ventures[ventureID]
	if !ok || vs.QuantityOwned < 1 {
		return rejected(ReasonNotOwned), nil
	}
	price := VentureSellPriceMicros(def.BasePriceMicros, e.cat.Tuning.VentureSellRatio)
	e.agg.BalanceMicros += price
	// Upgrades survive the sale, even at quantity zero. Re-buying picks
	// them back up through the escalated venture cost.
	vs.QuantityOwned--
	e.agg.recomputePassiveRate(e.cat, e.clock.Now())
	return Result{Accepted: true, AmountMicros: price}, nil
}

func (e *Engine) applyActivateBooster(boosterID string, now time.Time) (Result, error) {
	def, ok := e.cat.Booster(boosterID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrBoosterNotFound, boosterID)
	}
	// Last activation wins: re-activating replaces the expiry rather
	// than extending it. Distinct booster ids stack multiplicatively.
	e.agg.ActiveBoosters[boosterID] = ActiveBooster{
		ExpiresAt:  now.Add(def.Duration),
		Multiplier: def.Multiplier,
	}
	e.agg.recomputePassiveRate(e.cat, now)
	return Result{Accepted: true}, nil
}

// Accrue applies passive income for the time elapsed since the previous
// accrual. The rate is recomputed from scratch first, so a purchase or
// level-up landing in the same tick window can never leave a stale
// multiplier behind. Returns the credited amount.
func (e *Engine) Accrue(now time.Time) int64 {
	e.mu.Lock()
	e.agg.recomputePassiveRate(e.cat, now)
	elapsed := now.Sub(e.lastAccrual)
	if elapsed <= 0 {
		e.mu.Unlock()
		return 0
	}
	e.lastAccrual = now
	credit := int64(math.Round(float64(e.agg.PassiveIncomeRateMicros) * elapsed.Seconds()))
	if credit <= 0 {
		e.mu.Unlock()
		return 0
	}
	e.agg.BalanceMicros += credit
	e.evaluateAchievements()
	e.seq++
	view := e.agg.Clone()
	e.mu.Unlock()

	e.notify(view)
	return credit
}

// ResetProgress replaces the aggregate with the cold default.
func (e *Engine) ResetProgress() {
	e.mu.Lock()
	e.agg = NewAggregate(e.cat)
	e.agg.recomputePassiveRate(e.cat, e.clock.Now())
	e.lastAccrual = e.clock.Now()
	e.seq++
	view := e.agg.Clone()
	e.mu.Unlock()

	e.notify(view)
}

// Replace swaps in a loaded aggregate (cold start or restore). The loaded
// passive rate is stale cache by definition and is recomputed here.
func (e *Engine) Replace(agg *Aggregate) {
	e.mu.Lock()
	agg.ensureMaps()
	if agg.BalanceMicros < e.cat.Tuning.StartingBalanceMicros {
		// The only repair rule: never load below the starting balance.
		agg.BalanceMicros = e.cat.Tuning.StartingBalanceMicros
	}
	agg.recomputePassiveRate(e.cat, e.clock.Now())
	e.agg = agg
	e.lastAccrual = e.clock.Now()
	e.seq++
	view := e.agg.Clone()
	e.mu.Unlock()

	e.notify(view)
}

func (e *Engine) enforceNonNegative() {
	if e.agg.BalanceMicros >= 0 {
		return
	}
	if e.strict {
		panic(fmt.Sprintf("%v: %d", ErrNegativeBalance, e.agg.BalanceMicros))
	}
	e.log.Error("balance went negative, clamping", "balance_micros", e.agg.BalanceMicros)
	e.agg.BalanceMicros = 0
}

func (e *Engine) notify(view *Aggregate) {
	e.subMu.Lock()
	subs := make([]func(*Aggregate), len(e.subs))
	copy(subs, e.subs)
	e.subMu.Unlock()
	for _, fn := range subs {
		fn(view)
	}
}

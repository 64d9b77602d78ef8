package game

import (
	"math"
	"time"
)

// HoldingLot tracks cost basis for gain/loss display. It is bookkeeping
// only; the Holdings quantity map is the sole ownership record.
type HoldingLot struct {
	TotalUnits      int64 `json:"total_units"`
	TotalCostMicros int64 `json:"total_cost_micros"`
}

type VentureState struct {
	QuantityOwned int64           `json:"quantity_owned"`
	UpgradesOwned map[string]bool `json:"upgrades_owned"`
}

type ActiveBooster struct {
	ExpiresAt  time.Time `json:"expires_at"`
	Multiplier float64   `json:"multiplier"`
}

// Aggregate is the single authoritative state object for one player
// session. Every mutation path funnels through the Engine that owns it.
//
// Quantity-zero map entries are equivalent to absent entries everywhere:
// selling a venture down to zero keeps its key (and its upgrade set) so a
// re-buy restores prior upgrades.
type Aggregate struct {
	BalanceMicros           int64                    `json:"balance_micros"`
	Level                   int                      `json:"level"`
	Experience              float64                  `json:"experience"`
	XPToNextLevel           float64                  `json:"xp_to_next_level"`
	ClickValueMicros        int64                    `json:"click_value_micros"`
	TotalActions            int64                    `json:"total_actions"`
	Holdings                map[string]int64         `json:"holdings"`
	PurchaseLedger          map[string]HoldingLot    `json:"purchase_ledger"`
	Ventures                map[string]*VentureState `json:"ventures"`
	ActiveBoosters          map[string]ActiveBooster `json:"active_boosters"`
	UnlockedAchievements    map[string]bool          `json:"unlocked_achievements"`
	PassiveIncomeRateMicros int64                    `json:"passive_income_rate_micros"`
}

func NewAggregate(cat *Catalog) *Aggregate {
	return &Aggregate{
		BalanceMicros:        cat.Tuning.StartingBalanceMicros,
		Level:                1,
		Experience:           0,
		XPToNextLevel:        cat.Tuning.BaseXPToNextLevel,
		ClickValueMicros:     cat.Tuning.BaseClickValueMicros,
		Holdings:             map[string]int64{},
		PurchaseLedger:       map[string]HoldingLot{},
		Ventures:             map[string]*VentureState{},
		ActiveBoosters:       map[string]ActiveBooster{},
		UnlockedAchievements: map[string]bool{},
	}
}

// ensureMaps backfills nil maps after deserialization so older snapshots
// that predate a field still load.
func (a *Aggregate) ensureMaps() {
	if a.Holdings == nil {
		a.Holdings = map[string]int64{}
	}
	if a.PurchaseLedger == nil {
		a.PurchaseLedger = map[string]HoldingLot{}
	}
	if a.Ventures == nil {
		a.Ventures = map[string]*VentureState{}
	}
	for _, vs := range a.Ventures {
		if vs.UpgradesOwned == nil {
			vs.UpgradesOwned = map[string]bool{}
		}
	}
	if a.ActiveBoosters == nil {
		a.ActiveBoosters = map[string]ActiveBooster{}
	}
	if a.UnlockedAchievements == nil {
		a.UnlockedAchievements = map[string]bool{}
	}
}

func (a *Aggregate) Clone() *Aggregate {
	out := *a
	out.Holdings = make(map[string]int64, len(a.Holdings))
	for k, v := range a.Holdings {
		out.Holdings[k] = v
	}
	out.PurchaseLedger = make(map[string]HoldingLot, len(a.PurchaseLedger))
	for k, v := range a.PurchaseLedger {
		out.PurchaseLedger[k] = v
	}
	out.Ventures = make(map[string]*VentureState, len(a.Ventures))
	for k, v := range a.Ventures {
		vs := &VentureState{QuantityOwned: v.QuantityOwned, UpgradesOwned: make(map[string]bool, len(v.UpgradesOwned))}
		for uk, uv := range v.UpgradesOwned {
			vs.UpgradesOwned[uk] = uv
		}
		out.Ventures[k] = vs
	}
	out.ActiveBoosters = make(map[string]ActiveBooster, len(a.ActiveBoosters))
	for k, v := range a.ActiveBoosters {
		out.ActiveBoosters[k] = v
	}
	out.UnlockedAchievements = make(map[string]bool, len(a.UnlockedAchievements))
	for k, v := range a.UnlockedAchievements {
		out.UnlockedAchievements[k] = v
	}
	return &out
}

func (a *Aggregate) venture(id string) *VentureState {
	vs, ok := a.Ventures[id]
	if !ok {
		vs = &VentureState{UpgradesOwned: map[string]bool{}}
		a.Ventures[id] = vs
	}
	return vs
}

// boosterActive reports whether the entry exists and has not expired.
// Expired entries are treated as absent; pruning is lazy.
func boosterActive(b ActiveBooster, now time.Time) bool {
	return b.ExpiresAt.After(now)
}

// boosterProduct multiplies every non-expired booster of the given
// category. Boosters of the same category stack multiplicatively.
func (a *Aggregate) boosterProduct(cat *Catalog, category BoosterCategory, now time.Time) float64 {
	product := 1.0
	for id, b := range a.ActiveBoosters {
		if !boosterActive(b, now) {
			continue
		}
		def, ok := cat.Booster(id)
		if !ok || def.Category != category {
			continue
		}
		product *= b.Multiplier
	}
	return product
}

// recomputePassiveRate rebuilds the cached rate from scratch: holdings,
// ventures, level multiplier, and non-expired income boosters. The cache
// is never adjusted incrementally; this is the consistency guarantee the
// whole engine leans on.
func (a *Aggregate) recomputePassiveRate(cat *Catalog, now time.Time) {
	total := 0.0
	for id, qty := range a.Holdings {
		if qty < 1 {
			continue
		}
		def, ok := cat.Asset(id)
		if !ok {
			continue
		}
		total += HoldingIncomeMicrosPerSec(def.IncomeMicrosPerSec, qty)
	}
	for id, vs := range a.Ventures {
		if vs.QuantityOwned < 1 {
			continue
		}
		def, ok := cat.Venture(id)
		if !ok {
			continue
		}
		total += VentureIncomeMicrosPerSec(def, vs.QuantityOwned, vs.UpgradesOwned, cat.Tuning.TicksPerDay)
	}
	total *= LevelIncomeMultiplier(a.Level, cat.Tuning.LevelIncomeStep)
	total *= a.boosterProduct(cat, BoosterIncome, now)
	a.PassiveIncomeRateMicros = int64(math.Round(total))
}

// HoldingUnits is the total units across all tradable assets.
func (a *Aggregate) HoldingUnits() int64 {
	var n int64
	for _, qty := range a.Holdings {
		if qty > 0 {
			n += qty
		}
	}
	return n
}

// VentureUnits is the total venture units owned.
func (a *Aggregate) VentureUnits() int64 {
	var n int64
	for _, vs := range a.Ventures {
		if vs.QuantityOwned > 0 {
			n += vs.QuantityOwned
		}
	}
	return n
}

// UpgradesOwnedCount counts owned upgrades across all ventures.
func (a *Aggregate) UpgradesOwnedCount() int64 {
	var n int64
	for _, vs := range a.Ventures {
		for _, owned := range vs.UpgradesOwned {
			if owned {
				n++
			}
		}
	}
	return n
}

// NetWorthMicros is balance plus the resale value of everything owned.
func (a *Aggregate) NetWorthMicros(cat *Catalog) int64 {
	total := a.BalanceMicros
	for id, qty := range a.Holdings {
		if qty < 1 {
			continue
		}
		def, ok := cat.Asset(id)
		if !ok {
			continue
		}
		for i := int64(0); i < qty; i++ {
			total += HoldingSellPriceMicros(def.BasePriceMicros, i+1, def.GrowthMultiplier, cat.Tuning.HoldingSellRatio)
		}
	}
	for id, vs := range a.Ventures {
		if vs.QuantityOwned < 1 {
			continue
		}
		def, ok := cat.Venture(id)
		if !ok {
			continue
		}
		total += VentureSellPriceMicros(def.BasePriceMicros, cat.Tuning.VentureSellRatio) * vs.QuantityOwned
	}
	return total
}

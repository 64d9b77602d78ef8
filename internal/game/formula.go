package game

import "math"

// Pure pricing and income math. Nothing in this file touches state; every
// function is a straight computation over its inputs so the scheduler and
// the transaction engine can recompute from scratch at any moment.

// HoldingPriceMicros is the cost of the next unit of an asset:
// floor(base * growth^quantityOwned), floored to a whole coin.
func HoldingPriceMicros(basePriceMicros int64, quantityOwned int64, growthMultiplier float64) int64 {
	return floorToCoin(float64(basePriceMicros) * math.Pow(growthMultiplier, float64(quantityOwned)))
}

// HoldingSellPriceMicros credits a fraction of the market price of the most
// recently acquired unit, i.e. price(quantityOwned-1).
func HoldingSellPriceMicros(basePriceMicros int64, quantityOwned int64, growthMultiplier, sellRatio float64) int64 {
	if quantityOwned < 1 {
		return 0
	}
	last := HoldingPriceMicros(basePriceMicros, quantityOwned-1, growthMultiplier)
	return floorToCoin(float64(last) * sellRatio)
}

// VentureCostMicros is the price of the next venture unit: the base price
// escalated by the venture growth rate per unit already owned, plus the base
// cost of every upgrade already folded into the venture. A new unit of an
// upgraded venture costs as much as a fresh one with those upgrades.
func VentureCostMicros(def VentureDef, quantityOwned int64, ownedUpgrades map[string]bool, growthRate float64) int64 {
	cost := floorToCoin(float64(def.BasePriceMicros) * math.Pow(growthRate, float64(quantityOwned)))
	for _, u := range def.Upgrades {
		if ownedUpgrades[u.ID] {
			cost += u.BaseCostMicros
		}
	}
	return cost
}

// VentureSellPriceMicros is a fixed fraction of one unit's base price,
// independent of the escalated price the unit was bought for.
func VentureSellPriceMicros(basePriceMicros int64, sellRatio float64) int64 {
	return floorToCoin(float64(basePriceMicros) * sellRatio)
}

// UpgradeCostMicros scales linearly with the number of venture units owned.
func UpgradeCostMicros(baseCostMicros int64, ventureQuantityOwned int64) int64 {
	return floorToCoin(float64(baseCostMicros) * float64(1+ventureQuantityOwned))
}

// HoldingIncomeMicrosPerSec is linear in quantity.
func HoldingIncomeMicrosPerSec(incomeMicrosPerSec int64, quantityOwned int64) float64 {
	return float64(incomeMicrosPerSec) * float64(quantityOwned)
}

// VentureIncomeMicrosPerSec converts the per-day rate to per-second and
// applies the product of owned upgrade multipliers.
func VentureIncomeMicrosPerSec(def VentureDef, quantityOwned int64, ownedUpgrades map[string]bool, ticksPerDay int64) float64 {
	if quantityOwned < 1 {
		return 0
	}
	mult := 1.0
	for _, u := range def.Upgrades {
		if ownedUpgrades[u.ID] {
			mult *= u.IncomeMultiplier
		}
	}
	perSec := float64(def.BaseDailyIncomeMicros) / float64(ticksPerDay)
	return perSec * mult * float64(quantityOwned)
}

// LevelIncomeMultiplier amplifies all passive income as the player levels.
func LevelIncomeMultiplier(level int, step float64) float64 {
	return 1 + step*float64(level-1)
}

// LevelBonusMicros is the one-time currency grant on reaching a level.
func LevelBonusMicros(baseBonusMicros int64, level int) int64 {
	return floorToCoin(float64(baseBonusMicros) * math.Pow(1.5, float64(level-1)))
}

package game

import "math"

// xpGainForLevel grows gently with the player level so thresholds stay
// ahead of per-action gains.
func xpGainForLevel(t Tuning, level int) float64 {
	return t.BaseXPGain + t.XPGainLevelStep*float64(level-1)
}

// levelUpResult reports what a progression pass changed.
type levelUpResult struct {
	LevelsGained int
	BonusMicros  int64
}

// gainExperience adds click experience and applies level-ups until the
// remaining experience is below the threshold. A single action normally
// overflows at most one threshold, but the loop handles arbitrary
// overflow (large windfall rewards, tuning changes) the same way.
func (a *Aggregate) gainExperience(cat *Catalog) levelUpResult {
	var out levelUpResult
	a.Experience += xpGainForLevel(cat.Tuning, a.Level)
	for a.Experience >= a.XPToNextLevel {
		a.Experience -= a.XPToNextLevel
		a.Level++
		out.LevelsGained++
		a.XPToNextLevel = math.Floor(a.XPToNextLevel * cat.Tuning.LevelDifficultyFactor)
		a.ClickValueMicros = roundToDeciCoin(float64(a.ClickValueMicros) * cat.Tuning.ClickGrowthFactor)
		bonus := LevelBonusMicros(cat.Tuning.LevelBonusBaseMicros, a.Level)
		a.BalanceMicros += bonus
		out.BonusMicros += bonus
	}
	return out
}

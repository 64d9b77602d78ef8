package game

// evaluateAchievements runs every not-yet-unlocked achievement predicate
// against the current aggregate, in catalog order, and grants all that
// newly hold. Already-unlocked ids are skipped outright, which makes the
// pass idempotent. Called with the engine lock held after every mutation.
func (e *Engine) evaluateAchievements() []string {
	var unlocked []string
	for _, def := range e.cat.Achievements {
		if e.agg.UnlockedAchievements[def.ID] {
			continue
		}
		if !achievementSatisfied(def, e.agg) {
			continue
		}
		e.agg.UnlockedAchievements[def.ID] = true
		e.agg.BalanceMicros += def.RewardMicros
		unlocked = append(unlocked, def.ID)
		e.log.Info("achievement unlocked", "id", def.ID, "reward_micros", def.RewardMicros)
	}
	// A reward can itself cross a later balance threshold; the next
	// mutation's pass will pick that up. Within one pass order is fixed,
	// so a windfall crossing several thresholds grants all of them when
	// their rows are evaluated.
	return unlocked
}

func achievementSatisfied(def AchievementDef, a *Aggregate) bool {
	switch def.Metric {
	case MetricBalance:
		return a.BalanceMicros >= def.Threshold
	case MetricTotalActions:
		return a.TotalActions >= def.Threshold
	case MetricLevel:
		return int64(a.Level) >= def.Threshold
	case MetricHoldingUnits:
		return a.HoldingUnits() >= def.Threshold
	case MetricVentureUnits:
		return a.VentureUnits() >= def.Threshold
	case MetricUpgradesOwned:
		return a.UpgradesOwnedCount() >= def.Threshold
	default:
		return false
	}
}

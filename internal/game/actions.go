package game

// RejectReason classifies a precondition rejection. Rejections are normal,
// expected outcomes reported to the caller; they never partially apply and
// are never surfaced as errors.
type RejectReason string

const (
	ReasonInsufficientFunds RejectReason = "insufficient_funds"
	ReasonNotOwned          RejectReason = "not_owned"
	ReasonLevelTooLow       RejectReason = "level_too_low"
	ReasonAlreadyOwned      RejectReason = "already_owned"
)

// Result is the outcome of a dispatched action.
type Result struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	// AmountMicros is the currency credited (positive) or debited
	// (negative) by the action, excluding achievement rewards.
	AmountMicros int64 `json:"amount_micros,omitempty"`
	// Achievements unlocked by the evaluator pass that followed.
	Unlocked []string `json:"unlocked,omitempty"`
	// LevelsGained by a click that crossed one or more thresholds.
	LevelsGained int `json:"levels_gained,omitempty"`
}

func rejected(reason RejectReason) Result {
	return Result{Accepted: false, Reason: reason}
}

// Action is a discrete mutation request against the aggregate.
type Action interface {
	isAction()
}

// ClickAction is the manual earn action.
type ClickAction struct{}

// BuyHolding purchases one unit of a tradable asset.
type BuyHolding struct {
	AssetID string
}

// SellHolding sells one unit of a tradable asset.
type SellHolding struct {
	AssetID string
}

// BuyVenture purchases one unit of an income-generating business.
type BuyVenture struct {
	VentureID string
}

// UpgradeVenture buys a permanent upgrade for an owned venture.
type UpgradeVenture struct {
	VentureID string
	UpgradeID string
}

// SellVenture sells one venture unit at the fixed base-price ratio.
type SellVenture struct {
	VentureID string
}

// ActivateBooster starts (or restarts) a time-bounded multiplier.
type ActivateBooster struct {
	BoosterID string
}

// Debit withdraws currency; mini-games use it to place bets.
type Debit struct {
	AmountMicros int64
	Memo         string
}

// Credit deposits currency; mini-games use it to pay out wins.
type Credit struct {
	AmountMicros int64
	Memo         string
}

func (ClickAction) isAction()     {}
func (BuyHolding) isAction()      {}
func (SellHolding) isAction()     {}
func (BuyVenture) isAction()      {}
func (UpgradeVenture) isAction()  {}
func (SellVenture) isAction()     {}
func (ActivateBooster) isAction() {}
func (Debit) isAction()           {}
func (Credit) isAction()          {}

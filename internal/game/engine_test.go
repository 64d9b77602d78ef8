package game

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testCatalog keeps the reference tuning but swaps in a small, predictable
// content set and no achievements, so balance assertions stay exact.
func testCatalog() *Catalog {
	c := &Catalog{
		Assets: []AssetDef{
			{ID: "COBOLT", DisplayName: "Cobalt Dynamics", BasePriceMicros: 1_000 * MicrosPerCoin, GrowthMultiplier: 1.18, IncomeMicrosPerSec: 2 * MicrosPerCoin},
			{ID: "PENNY", DisplayName: "Penny Stock", BasePriceMicros: 10 * MicrosPerCoin, GrowthMultiplier: 1.1, IncomeMicrosPerSec: 1 * MicrosPerCoin},
		},
		Ventures: []VentureDef{
			{
				ID: "kiosk", DisplayName: "Kiosk",
				BasePriceMicros: 50 * MicrosPerCoin, BaseDailyIncomeMicros: 86_400 * MicrosPerCoin, RequiredLevel: 1,
				Upgrades: []UpgradeDef{
					{ID: "awning", BaseCostMicros: 20 * MicrosPerCoin, IncomeMultiplier: 2.0},
					{ID: "register", BaseCostMicros: 30 * MicrosPerCoin, IncomeMultiplier: 1.5},
				},
			},
			{
				ID: "tower", DisplayName: "Office Tower",
				BasePriceMicros: 500 * MicrosPerCoin, BaseDailyIncomeMicros: 864_000 * MicrosPerCoin, RequiredLevel: 5,
			},
		},
		Boosters: []BoosterDef{
			{ID: "gold_rush", Category: BoosterClick, Multiplier: 5, Duration: 120 * time.Second},
			{ID: "tailwind", Category: BoosterIncome, Multiplier: 2, Duration: 300 * time.Second},
			{ID: "interns", Category: BoosterAuto, Multiplier: 1, Duration: 120 * time.Second},
		},
		Tuning: Tuning{
			StartingBalanceMicros: 99 * MicrosPerCoin,
			BaseClickValueMicros:  CoinsToMicros(2.5),
			BaseXPGain:            5,
			XPGainLevelStep:       0.6,
			BaseXPToNextLevel:     100,
			LevelDifficultyFactor: 1.35,
			ClickGrowthFactor:     1.12,
			LevelBonusBaseMicros:  50 * MicrosPerCoin,
			LevelIncomeStep:       0.05,
			TicksPerDay:           86_400,
			VentureSellRatio:      0.70,
			HoldingSellRatio:      0.95,
			VentureGrowthRate:     1.15,
		},
	}
	c.index()
	return c
}

func newTestEngine(cat *Catalog) (*Engine, *fakeClock) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	e := NewEngine(cat, nil, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.strict = true
	return e, clk
}

func mustDispatch(t *testing.T, e *Engine, act Action) Result {
	t.Helper()
	res, err := e.Dispatch(act)
	if err != nil {
		t.Fatalf("dispatch %T: %v", act, err)
	}
	return res
}

func mustAccept(t *testing.T, e *Engine, act Action) Result {
	t.Helper()
	res := mustDispatch(t, e, act)
	if !res.Accepted {
		t.Fatalf("dispatch %T rejected: %s", act, res.Reason)
	}
	return res
}

func TestClickCreditsClickValue(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	res := mustAccept(t, e, ClickAction{})
	if want := CoinsToMicros(2.5); res.AmountMicros != want {
		t.Fatalf("click credit = %d, want %d", res.AmountMicros, want)
	}
	view := e.Snapshot()
	if want := CoinsToMicros(101.5); view.BalanceMicros != want {
		t.Fatalf("balance = %d, want %d", view.BalanceMicros, want)
	}
	if view.TotalActions != 1 {
		t.Fatalf("total actions = %d, want 1", view.TotalActions)
	}
}

func TestBuyHoldingInsufficientFundsRejects(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	res := mustDispatch(t, e, BuyHolding{AssetID: "COBOLT"})
	if res.Accepted {
		t.Fatal("expected rejection")
	}
	if res.Reason != ReasonInsufficientFunds {
		t.Fatalf("reason = %s, want %s", res.Reason, ReasonInsufficientFunds)
	}
	view := e.Snapshot()
	if view.BalanceMicros != 99*MicrosPerCoin {
		t.Fatalf("rejected buy moved balance to %d", view.BalanceMicros)
	}
	if view.Holdings["COBOLT"] != 0 {
		t.Fatalf("rejected buy granted units: %d", view.Holdings["COBOLT"])
	}
}

func TestBuySellHoldingUpdatesLedger(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	// 10 then 11 coins at growth 1.1.
	mustAccept(t, e, BuyHolding{AssetID: "PENNY"})
	mustAccept(t, e, BuyHolding{AssetID: "PENNY"})
	view := e.Snapshot()
	if want := CoinsToMicros(78); view.BalanceMicros != want {
		t.Fatalf("balance after buys = %d, want %d", view.BalanceMicros, want)
	}
	if lot := view.PurchaseLedger["PENNY"]; lot.TotalUnits != 2 || lot.TotalCostMicros != 21*MicrosPerCoin {
		t.Fatalf("ledger = %+v", lot)
	}

	// Sell credits floor(0.95 * price of the last unit): floor(11 * 0.95) = 10.
	res := mustAccept(t, e, SellHolding{AssetID: "PENNY"})
	if want := CoinsToMicros(10); res.AmountMicros != want {
		t.Fatalf("sell credit = %d, want %d", res.AmountMicros, want)
	}
	view = e.Snapshot()
	if view.Holdings["PENNY"] != 1 {
		t.Fatalf("holdings after sell = %d", view.Holdings["PENNY"])
	}
	if lot := view.PurchaseLedger["PENNY"]; lot.TotalUnits != 1 || lot.TotalCostMicros != CoinsToMicros(10.5) {
		t.Fatalf("ledger after sell = %+v", lot)
	}
}

func TestSellHoldingWithoutUnitsRejects(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	res := mustDispatch(t, e, SellHolding{AssetID: "PENNY"})
	if res.Accepted || res.Reason != ReasonNotOwned {
		t.Fatalf("result = %+v, want not_owned rejection", res)
	}
}

func TestUnknownIDsAreErrors(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	if _, err := e.Dispatch(BuyHolding{AssetID: "NOPE"}); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if _, err := e.Dispatch(BuyVenture{VentureID: "nope"}); !errors.Is(err, ErrVentureNotFound) {
		t.Fatalf("err = %v, want ErrVentureNotFound", err)
	}
	if _, err := e.Dispatch(UpgradeVenture{VentureID: "kiosk", UpgradeID: "nope"}); !errors.Is(err, ErrUpgradeNotFound) {
		t.Fatalf("err = %v, want ErrUpgradeNotFound", err)
	}
	if _, err := e.Dispatch(ActivateBooster{BoosterID: "nope"}); !errors.Is(err, ErrBoosterNotFound) {
		t.Fatalf("err = %v, want ErrBoosterNotFound", err)
	}
}

func TestVentureLevelGate(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	res := mustDispatch(t, e, BuyVenture{VentureID: "tower"})
	if res.Accepted || res.Reason != ReasonLevelTooLow {
		t.Fatalf("result = %+v, want level_too_low rejection", res)
	}
}

func TestUpgradeRequiresOwnedVenture(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	res := mustDispatch(t, e, UpgradeVenture{VentureID: "kiosk", UpgradeID: "awning"})
	if res.Accepted || res.Reason != ReasonNotOwned {
		t.Fatalf("result = %+v, want not_owned rejection", res)
	}
}

func TestUpgradeIsIdempotentSet(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	mustAccept(t, e, BuyVenture{VentureID: "kiosk"}) // 50 coins
	res := mustAccept(t, e, UpgradeVenture{VentureID: "kiosk", UpgradeID: "awning"})
	// Linear upgrade cost: 20 * (1 + 1 unit owned) = 40 coins.
	if want := -CoinsToMicros(40); res.AmountMicros != want {
		t.Fatalf("upgrade cost = %d, want %d", res.AmountMicros, want)
	}

	before := e.Snapshot()
	res = mustDispatch(t, e, UpgradeVenture{VentureID: "kiosk", UpgradeID: "awning"})
	if res.Accepted || res.Reason != ReasonAlreadyOwned {
		t.Fatalf("result = %+v, want already_owned rejection", res)
	}
	after := e.Snapshot()
	if after.BalanceMicros != before.BalanceMicros {
		t.Fatalf("re-request charged: %d -> %d", before.BalanceMicros, after.BalanceMicros)
	}
}

func TestVentureSellKeepsUpgradeSet(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	mustAccept(t, e, BuyVenture{VentureID: "kiosk"})
	mustAccept(t, e, UpgradeVenture{VentureID: "kiosk", UpgradeID: "awning"})

	res := mustAccept(t, e, SellVenture{VentureID: "kiosk"})
	// Fixed fraction of base price: floor(50 * 0.70) = 35 coins.
	if want := CoinsToMicros(35); res.AmountMicros != want {
		t.Fatalf("venture sale credit = %d, want %d", res.AmountMicros, want)
	}

	view := e.Snapshot()
	vs := view.Ventures["kiosk"]
	if vs == nil || vs.QuantityOwned != 0 {
		t.Fatalf("venture state after sale = %+v", vs)
	}
	if !vs.UpgradesOwned["awning"] {
		t.Fatal("upgrade set lost on sale to zero")
	}

	// A re-buy pays the base price plus the folded upgrade.
	res = mustAccept(t, e, BuyVenture{VentureID: "kiosk"})
	if want := -CoinsToMicros(70); res.AmountMicros != want {
		t.Fatalf("re-buy cost = %d, want %d", res.AmountMicros, want)
	}
	if !e.Snapshot().Ventures["kiosk"].UpgradesOwned["awning"] {
		t.Fatal("upgrade not restored after re-buy")
	}
}

func TestSellVentureWithoutUnitsRejects(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	res := mustDispatch(t, e, SellVenture{VentureID: "kiosk"})
	if res.Accepted || res.Reason != ReasonNotOwned {
		t.Fatalf("result = %+v, want not_owned rejection", res)
	}
}

func TestBoosterMultipliesClicksUntilExpiry(t *testing.T) {
	e, clk := newTestEngine(testCatalog())

	mustAccept(t, e, ActivateBooster{BoosterID: "gold_rush"})
	res := mustAccept(t, e, ClickAction{})
	if want := CoinsToMicros(12.5); res.AmountMicros != want {
		t.Fatalf("boosted click = %d, want %d", res.AmountMicros, want)
	}

	clk.Advance(121 * time.Second)
	res = mustAccept(t, e, ClickAction{})
	if want := CoinsToMicros(2.5); res.AmountMicros != want {
		t.Fatalf("post-expiry click = %d, want %d", res.AmountMicros, want)
	}
}

func TestBoosterReactivationResetsExpiry(t *testing.T) {
	e, clk := newTestEngine(testCatalog())

	mustAccept(t, e, ActivateBooster{BoosterID: "gold_rush"})
	clk.Advance(60 * time.Second)
	mustAccept(t, e, ActivateBooster{BoosterID: "gold_rush"})
	clk.Advance(90 * time.Second)

	// 150s after the first activation, 90s after the second: still live.
	res := mustAccept(t, e, ClickAction{})
	if want := CoinsToMicros(12.5); res.AmountMicros != want {
		t.Fatalf("click after re-activation = %d, want %d", res.AmountMicros, want)
	}
}

func TestDebitCredit(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	res := mustDispatch(t, e, Debit{AmountMicros: CoinsToMicros(1_000), Memo: "bet"})
	if res.Accepted || res.Reason != ReasonInsufficientFunds {
		t.Fatalf("overdraft debit = %+v", res)
	}

	mustAccept(t, e, Debit{AmountMicros: CoinsToMicros(50), Memo: "bet"})
	mustAccept(t, e, Credit{AmountMicros: CoinsToMicros(100), Memo: "win"})
	if got, want := e.Snapshot().BalanceMicros, CoinsToMicros(149); got != want {
		t.Fatalf("balance = %d, want %d", got, want)
	}

	if _, err := e.Dispatch(Debit{AmountMicros: 0}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("zero debit err = %v, want ErrInvalidAction", err)
	}
	if _, err := e.Dispatch(Credit{AmountMicros: -5}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("negative credit err = %v, want ErrInvalidAction", err)
	}
}

func TestResetProgress(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	mustAccept(t, e, ClickAction{})
	mustAccept(t, e, BuyHolding{AssetID: "PENNY"})
	e.ResetProgress()

	view := e.Snapshot()
	if view.BalanceMicros != 99*MicrosPerCoin || view.Level != 1 || view.TotalActions != 0 {
		t.Fatalf("reset state = %+v", view)
	}
	if len(view.Holdings) != 0 {
		t.Fatalf("reset kept holdings: %v", view.Holdings)
	}
}

func TestReplaceFloorsBalanceToStarting(t *testing.T) {
	cat := testCatalog()
	e, _ := newTestEngine(cat)

	loaded := NewAggregate(cat)
	loaded.BalanceMicros = 5 * MicrosPerCoin
	loaded.Level = 3
	e.Replace(loaded)

	view := e.Snapshot()
	if view.BalanceMicros != cat.Tuning.StartingBalanceMicros {
		t.Fatalf("balance = %d, want floor-corrected %d", view.BalanceMicros, cat.Tuning.StartingBalanceMicros)
	}
	if view.Level != 3 {
		t.Fatalf("level = %d, repair rule must not touch other fields", view.Level)
	}
}

func TestReplaceRecomputesPassiveRate(t *testing.T) {
	cat := testCatalog()
	e, _ := newTestEngine(cat)

	loaded := NewAggregate(cat)
	loaded.Holdings["COBOLT"] = 3
	loaded.PassiveIncomeRateMicros = 12345 // stale cache from the snapshot
	e.Replace(loaded)

	if got, want := e.Snapshot().PassiveIncomeRateMicros, int64(6*MicrosPerCoin); got != want {
		t.Fatalf("rate = %d, want recomputed %d", got, want)
	}
}

func TestMutationSeqAdvancesOnCommitOnly(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	before := e.MutationSeq()
	mustDispatch(t, e, BuyHolding{AssetID: "COBOLT"}) // rejected
	if e.MutationSeq() != before {
		t.Fatal("rejected action advanced the mutation seq")
	}
	mustAccept(t, e, ClickAction{})
	if e.MutationSeq() != before+1 {
		t.Fatal("accepted action did not advance the mutation seq")
	}
}

func TestOnMutationDeliversSnapshotCopy(t *testing.T) {
	e, _ := newTestEngine(testCatalog())

	var got *Aggregate
	e.OnMutation(func(view *Aggregate) { got = view })
	mustAccept(t, e, ClickAction{})

	if got == nil {
		t.Fatal("no mutation callback fired")
	}
	got.BalanceMicros = -1
	if e.Snapshot().BalanceMicros < 0 {
		t.Fatal("callback view aliases engine state")
	}
}

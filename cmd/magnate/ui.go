package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"magnate/internal/game"
	"magnate/internal/remote"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	danger  = color.New(color.FgRed)
	dim     = color.New(color.Faint)
)

func printSuccess(format string, a ...any) { success.Printf(format+"\n", a...) }
func printWarn(format string, a ...any)    { warn.Printf(format+"\n", a...) }
func printDanger(format string, a ...any)  { danger.Printf(format+"\n", a...) }

func fmtCoins(micros int64) string {
	return strconv.FormatFloat(game.MicrosToCoins(micros), 'f', 2, 64)
}

func printLeaderboard(rows []remote.LeaderboardRow) {
	if len(rows) == 0 {
		printWarn("Leaderboard is empty.")
		return
	}
	accent.Println("Top players by net worth")
	for _, r := range rows {
		fmt.Printf("%3d. %-24s lvl %-3d %s\n", r.Rank, r.Handle, r.Level, fmtCoins(r.NetWorthMicros))
	}
}

func runConsole(ctx context.Context, stop context.CancelFunc, engine *game.Engine) {
	accent.Println("magnate — type 'help' for commands")
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				stop()
				return
			}
			if handleLine(engine, line) {
				stop()
				return
			}
		}
	}
}

// handleLine runs one console command; returning true ends the session.
func handleLine(engine *game.Engine, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "help", "h", "?":
		printHelp()
	case "click", "c":
		showResult(engine, dispatch(engine, game.ClickAction{}))
	case "stats", "s":
		printStats(engine)
	case "market", "m":
		printMarket(engine)
	case "buy":
		if len(args) != 1 {
			printWarn("usage: buy <ASSET>")
			return false
		}
		showResult(engine, dispatch(engine, game.BuyHolding{AssetID: strings.ToUpper(args[0])}))
	case "sell":
		if len(args) != 1 {
			printWarn("usage: sell <ASSET>")
			return false
		}
		showResult(engine, dispatch(engine, game.SellHolding{AssetID: strings.ToUpper(args[0])}))
	case "ventures", "v":
		printVentures(engine)
	case "vbuy":
		if len(args) != 1 {
			printWarn("usage: vbuy <venture>")
			return false
		}
		showResult(engine, dispatch(engine, game.BuyVenture{VentureID: strings.ToLower(args[0])}))
	case "vsell":
		if len(args) != 1 {
			printWarn("usage: vsell <venture>")
			return false
		}
		showResult(engine, dispatch(engine, game.SellVenture{VentureID: strings.ToLower(args[0])}))
	case "upgrade", "u":
		if len(args) != 2 {
			printWarn("usage: upgrade <venture> <upgrade>")
			return false
		}
		showResult(engine, dispatch(engine, game.UpgradeVenture{VentureID: strings.ToLower(args[0]), UpgradeID: strings.ToLower(args[1])}))
	case "boosts", "b":
		printBoosts(engine)
	case "boost":
		if len(args) != 1 {
			printWarn("usage: boost <booster>")
			return false
		}
		showResult(engine, dispatch(engine, game.ActivateBooster{BoosterID: strings.ToLower(args[0])}))
	case "ach", "a":
		printAchievements(engine)
	case "flip":
		if len(args) != 1 {
			printWarn("usage: flip <coins>")
			return false
		}
		playFlip(engine, args[0])
	case "quit", "exit", "q":
		return true
	default:
		printWarn("unknown command %q — try 'help'", cmd)
	}
	return false
}

func dispatch(engine *game.Engine, act game.Action) game.Result {
	res, err := engine.Dispatch(act)
	if err != nil {
		printDanger("%v", err)
		return game.Result{}
	}
	return res
}

func showResult(engine *game.Engine, res game.Result) {
	if !res.Accepted {
		switch res.Reason {
		case game.ReasonInsufficientFunds:
			printDanger("Not enough coins.")
		case game.ReasonNotOwned:
			printDanger("You don't own that.")
		case game.ReasonLevelTooLow:
			printDanger("Level too low.")
		case game.ReasonAlreadyOwned:
			printWarn("Already owned.")
		case "":
			// Dispatch errored and already printed.
		default:
			printDanger("Rejected: %s", res.Reason)
		}
		return
	}
	switch {
	case res.AmountMicros > 0:
		printSuccess("+%s coins", fmtCoins(res.AmountMicros))
	case res.AmountMicros < 0:
		fmt.Printf("-%s coins\n", fmtCoins(-res.AmountMicros))
	default:
		printSuccess("Done.")
	}
	if res.LevelsGained > 0 {
		view := engine.Snapshot()
		accent.Printf("LEVEL UP! You are now level %d.\n", view.Level)
	}
	for _, id := range res.Unlocked {
		if def, ok := achievementByID(engine.Catalog(), id); ok {
			accent.Printf("Achievement unlocked: %s (+%s coins)\n", def.DisplayName, fmtCoins(def.RewardMicros))
		}
	}
}

func achievementByID(cat *game.Catalog, id string) (game.AchievementDef, bool) {
	for _, def := range cat.Achievements {
		if def.ID == id {
			return def, true
		}
	}
	return game.AchievementDef{}, false
}

func printHelp() {
	fmt.Println(`  click            earn coins (c)
  stats            balance, level, income rate (s)
  market           list tradable assets (m)
  buy <ASSET>      buy one unit
  sell <ASSET>     sell one unit at 95% of last price
  ventures         list ventures and upgrades (v)
  vbuy <id>        buy a venture unit
  vsell <id>       sell a venture unit at 70% of base
  upgrade <v> <u>  buy a venture upgrade
  boosts           list boosters (b)
  boost <id>       activate a booster
  ach              achievements (a)
  flip <coins>     double or nothing
  quit             save and exit`)
}

func printStats(engine *game.Engine) {
	view := engine.Snapshot()
	cat := engine.Catalog()
	accent.Println("— stats —")
	fmt.Printf("  balance     %s coins\n", fmtCoins(view.BalanceMicros))
	fmt.Printf("  net worth   %s coins\n", fmtCoins(view.NetWorthMicros(cat)))
	fmt.Printf("  level       %d  (%.1f / %.1f xp)\n", view.Level, view.Experience, view.XPToNextLevel)
	fmt.Printf("  per click   %s coins\n", fmtCoins(view.ClickValueMicros))
	fmt.Printf("  income      %s coins/sec\n", fmtCoins(view.PassiveIncomeRateMicros))
	fmt.Printf("  actions     %d\n", view.TotalActions)
	for id, b := range view.ActiveBoosters {
		if remaining := time.Until(b.ExpiresAt); remaining > 0 {
			warn.Printf("  booster     %s ×%.0f, %s left\n", id, b.Multiplier, remaining.Round(time.Second))
		}
	}
}

func printMarket(engine *game.Engine) {
	view := engine.Snapshot()
	cat := engine.Catalog()
	accent.Println("— market —")
	for _, def := range cat.Assets {
		qty := view.Holdings[def.ID]
		buy := game.HoldingPriceMicros(def.BasePriceMicros, qty, def.GrowthMultiplier)
		line := fmt.Sprintf("  %-8s %-18s own %-4d buy %10s", def.ID, def.DisplayName, qty, fmtCoins(buy))
		if qty > 0 {
			sell := game.HoldingSellPriceMicros(def.BasePriceMicros, qty, def.GrowthMultiplier, cat.Tuning.HoldingSellRatio)
			line += fmt.Sprintf("  sell %10s", fmtCoins(sell))
			if lot, ok := view.PurchaseLedger[def.ID]; ok && lot.TotalUnits > 0 {
				line += dim.Sprintf("  avg cost %s", fmtCoins(lot.TotalCostMicros/lot.TotalUnits))
			}
		}
		fmt.Println(line)
	}
}

func printVentures(engine *game.Engine) {
	view := engine.Snapshot()
	cat := engine.Catalog()
	accent.Println("— ventures —")
	for _, def := range cat.Ventures {
		var qty int64
		var owned map[string]bool
		if vs, ok := view.Ventures[def.ID]; ok {
			qty = vs.QuantityOwned
			owned = vs.UpgradesOwned
		}
		cost := game.VentureCostMicros(def, qty, owned, cat.Tuning.VentureGrowthRate)
		locked := ""
		if view.Level < def.RequiredLevel {
			locked = danger.Sprintf(" (requires level %d)", def.RequiredLevel)
		}
		fmt.Printf("  %-14s %-16s own %-4d next %12s%s\n", def.ID, def.DisplayName, qty, fmtCoins(cost), locked)
		for _, upg := range def.Upgrades {
			if owned[upg.ID] {
				success.Printf("    [x] %-12s %s\n", upg.ID, upg.DisplayName)
				continue
			}
			upgCost := game.UpgradeCostMicros(upg.BaseCostMicros, qty)
			fmt.Printf("    [ ] %-12s %-18s ×%.2f income, %s coins\n", upg.ID, upg.DisplayName, upg.IncomeMultiplier, fmtCoins(upgCost))
		}
	}
}

func printBoosts(engine *game.Engine) {
	view := engine.Snapshot()
	cat := engine.Catalog()
	accent.Println("— boosters —")
	for _, def := range cat.Boosters {
		line := fmt.Sprintf("  %-12s %-14s %-7s ×%.0f for %s", def.ID, def.DisplayName, def.Category, def.Multiplier, def.Duration)
		if b, ok := view.ActiveBoosters[def.ID]; ok {
			if remaining := time.Until(b.ExpiresAt); remaining > 0 {
				line += success.Sprintf("  ACTIVE %s left", remaining.Round(time.Second))
			}
		}
		fmt.Println(line)
	}
}

func printAchievements(engine *game.Engine) {
	view := engine.Snapshot()
	cat := engine.Catalog()
	defs := make([]game.AchievementDef, len(cat.Achievements))
	copy(defs, cat.Achievements)
	sort.SliceStable(defs, func(i, j int) bool {
		return view.UnlockedAchievements[defs[i].ID] && !view.UnlockedAchievements[defs[j].ID]
	})
	accent.Println("— achievements —")
	for _, def := range defs {
		if view.UnlockedAchievements[def.ID] {
			success.Printf("  [x] %s\n", def.DisplayName)
		} else {
			dim.Printf("  [ ] %s\n", def.DisplayName)
		}
	}
}

// playFlip is a double-or-nothing coin flip built on the Debit/Credit
// actions, the same hooks any mini-game would use.
func playFlip(engine *game.Engine, arg string) {
	coins, err := strconv.ParseFloat(arg, 64)
	if err != nil || coins <= 0 {
		printWarn("usage: flip <coins>")
		return
	}
	bet := game.CoinsToMicros(coins)
	res, err := engine.Dispatch(game.Debit{AmountMicros: bet, Memo: "flip bet"})
	if err != nil {
		printDanger("%v", err)
		return
	}
	if !res.Accepted {
		printDanger("Not enough coins to bet %s.", fmtCoins(bet))
		return
	}
	if rand.Intn(2) == 0 {
		if _, err := engine.Dispatch(game.Credit{AmountMicros: 2 * bet, Memo: "flip win"}); err != nil {
			printDanger("%v", err)
			return
		}
		printSuccess("Heads! You win %s coins.", fmtCoins(bet))
		return
	}
	printDanger("Tails. %s coins gone.", fmtCoins(bet))
}

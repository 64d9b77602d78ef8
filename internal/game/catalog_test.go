package game

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogIsValidAndIndexed(t *testing.T) {
	c := DefaultCatalog()
	if err := c.validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	if _, ok := c.Asset("COBOLT"); !ok {
		t.Fatal("asset index missing COBOLT")
	}
	if _, ok := c.Venture("corner_kiosk"); !ok {
		t.Fatal("venture index missing corner_kiosk")
	}
	if _, ok := c.Booster("gold_rush"); !ok {
		t.Fatal("booster index missing gold_rush")
	}
	v, _ := c.Venture("corner_kiosk")
	if _, ok := v.Upgrade("awning"); !ok {
		t.Fatal("upgrade lookup missing awning")
	}
	if _, ok := v.Upgrade("nope"); ok {
		t.Fatal("upgrade lookup invented an id")
	}
}

func TestLoadCatalogReplacesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `
assets:
  - id: ONLY
    display_name: Only Asset
    base_price_micros: 5000000
    growth_multiplier: 1.2
    income_micros_per_sec: 1000000
ventures:
  - id: stand
    display_name: Stand
    base_price_micros: 10000000
    base_daily_income_micros: 86400000000
    required_level: 1
tuning:
  starting_balance_micros: 99000000
  base_click_value_micros: 2500000
  base_xp_gain: 5
  xp_gain_level_step: 0.6
  base_xp_to_next_level: 100
  level_difficulty_factor: 1.35
  click_growth_factor: 1.12
  level_bonus_base_micros: 50000000
  level_income_step: 0.05
  ticks_per_day: 86400
  venture_sell_ratio: 0.7
  holding_sell_ratio: 0.95
  venture_growth_rate: 1.15
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Assets) != 1 {
		t.Fatalf("assets = %d, want the file's set only", len(c.Assets))
	}
	if _, ok := c.Asset("ONLY"); !ok {
		t.Fatal("loaded catalog not indexed")
	}
	if _, ok := c.Asset("COBOLT"); ok {
		t.Fatal("built-in assets leaked into a loaded catalog")
	}
}

func TestLoadCatalogRejectsBadData(t *testing.T) {
	cases := map[string]string{
		"no assets": `
assets: []
tuning: {ticks_per_day: 86400, level_difficulty_factor: 1.35, click_growth_factor: 1.12}
`,
		"flat growth": `
assets:
  - {id: X, base_price_micros: 1000000, growth_multiplier: 1.0}
tuning: {ticks_per_day: 86400, level_difficulty_factor: 1.35, click_growth_factor: 1.12}
`,
		"duplicate upgrade": `
assets:
  - {id: X, base_price_micros: 1000000, growth_multiplier: 1.2}
ventures:
  - id: v
    base_price_micros: 1000000
    base_daily_income_micros: 0
    upgrades:
      - {id: u, base_cost_micros: 1, income_multiplier: 1.5}
      - {id: u, base_cost_micros: 1, income_multiplier: 2.0}
tuning: {ticks_per_day: 86400, level_difficulty_factor: 1.35, click_growth_factor: 1.12}
`,
	}
	for name, doc := range cases {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadCatalog(path); err == nil {
			t.Errorf("%s: load accepted invalid catalog", name)
		}
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package game

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BoosterCategory decides which income channel a booster multiplies.
type BoosterCategory string

const (
	BoosterClick  BoosterCategory = "click"
	BoosterIncome BoosterCategory = "income"
	BoosterAuto   BoosterCategory = "auto"
)

// AchievementMetric names the aggregate field an achievement threshold
// is compared against.
type AchievementMetric string

const (
	MetricBalance       AchievementMetric = "balance"
	MetricTotalActions  AchievementMetric = "total_actions"
	MetricLevel         AchievementMetric = "level"
	MetricHoldingUnits  AchievementMetric = "holding_units"
	MetricVentureUnits  AchievementMetric = "venture_units"
	MetricUpgradesOwned AchievementMetric = "upgrades_owned"
)

type AssetDef struct {
	ID               string  `yaml:"id"`
	DisplayName      string  `yaml:"display_name"`
	Kind             string  `yaml:"kind"`
	BasePriceMicros  int64   `yaml:"base_price_micros"`
	GrowthMultiplier float64 `yaml:"growth_multiplier"`
	// Passive income contributed per owned unit, per second.
	IncomeMicrosPerSec int64 `yaml:"income_micros_per_sec"`
}

type UpgradeDef struct {
	ID               string  `yaml:"id"`
	DisplayName      string  `yaml:"display_name"`
	BaseCostMicros   int64   `yaml:"base_cost_micros"`
	IncomeMultiplier float64 `yaml:"income_multiplier"`
}

type VentureDef struct {
	ID              string       `yaml:"id"`
	DisplayName     string       `yaml:"display_name"`
	Category        string       `yaml:"category"`
	BasePriceMicros int64        `yaml:"base_price_micros"`
	// Single source of truth for venture income. Nothing else in the
	// engine carries a per-venture income number.
	BaseDailyIncomeMicros int64        `yaml:"base_daily_income_micros"`
	RequiredLevel         int          `yaml:"required_level"`
	Upgrades              []UpgradeDef `yaml:"upgrades"`
}

type BoosterDef struct {
	ID          string          `yaml:"id"`
	DisplayName string          `yaml:"display_name"`
	Category    BoosterCategory `yaml:"category"`
	Multiplier  float64         `yaml:"multiplier"`
	Duration    time.Duration   `yaml:"duration"`
}

type AchievementDef struct {
	ID           string            `yaml:"id"`
	DisplayName  string            `yaml:"display_name"`
	Metric       AchievementMetric `yaml:"metric"`
	Threshold    int64             `yaml:"threshold"`
	RewardMicros int64             `yaml:"reward_micros"`
}

// Tuning holds the progression curve constants. These are balancing data,
// not architecture; the defaults below are the reference values.
type Tuning struct {
	StartingBalanceMicros int64   `yaml:"starting_balance_micros"`
	BaseClickValueMicros  int64   `yaml:"base_click_value_micros"`
	BaseXPGain            float64 `yaml:"base_xp_gain"`
	XPGainLevelStep       float64 `yaml:"xp_gain_level_step"`
	BaseXPToNextLevel     float64 `yaml:"base_xp_to_next_level"`
	LevelDifficultyFactor float64 `yaml:"level_difficulty_factor"`
	ClickGrowthFactor     float64 `yaml:"click_growth_factor"`
	LevelBonusBaseMicros  int64   `yaml:"level_bonus_base_micros"`
	LevelIncomeStep       float64 `yaml:"level_income_step"`
	TicksPerDay           int64   `yaml:"ticks_per_day"`
	VentureSellRatio      float64 `yaml:"venture_sell_ratio"`
	HoldingSellRatio      float64 `yaml:"holding_sell_ratio"`
	VentureGrowthRate     float64 `yaml:"venture_growth_rate"`
}

type Catalog struct {
	Assets       []AssetDef       `yaml:"assets"`
	Ventures     []VentureDef     `yaml:"ventures"`
	Boosters     []BoosterDef     `yaml:"boosters"`
	Achievements []AchievementDef `yaml:"achievements"`
	Tuning       Tuning           `yaml:"tuning"`

	assetByID   map[string]AssetDef
	ventureByID map[string]VentureDef
	boosterByID map[string]BoosterDef
}

func DefaultCatalog() *Catalog {
	c := &Catalog{
		Assets: []AssetDef{
			{ID: "COBOLT", DisplayName: "Cobalt Dynamics", Kind: "stock", BasePriceMicros: 1_000 * MicrosPerCoin, GrowthMultiplier: 1.18, IncomeMicrosPerSec: 2 * MicrosPerCoin},
			{ID: "NIMBUS", DisplayName: "Nimbus Labs", Kind: "stock", BasePriceMicros: 450 * MicrosPerCoin, GrowthMultiplier: 1.14, IncomeMicrosPerSec: 1 * MicrosPerCoin},
			{ID: "QUARKX", DisplayName: "Quarkx Compute", Kind: "stock", BasePriceMicros: 2_400 * MicrosPerCoin, GrowthMultiplier: 1.22, IncomeMicrosPerSec: 5 * MicrosPerCoin},
			{ID: "BITRON", DisplayName: "Bitron", Kind: "crypto", BasePriceMicros: 5_500 * MicrosPerCoin, GrowthMultiplier: 1.30, IncomeMicrosPerSec: 13 * MicrosPerCoin},
			{ID: "ETHERA", DisplayName: "Ethera", Kind: "crypto", BasePriceMicros: 1_800 * MicrosPerCoin, GrowthMultiplier: 1.24, IncomeMicrosPerSec: 4 * MicrosPerCoin},
			{ID: "AURUMX", DisplayName: "Aurum Bars", Kind: "commodity", BasePriceMicros: 900 * MicrosPerCoin, GrowthMultiplier: 1.12, IncomeMicrosPerSec: 2 * MicrosPerCoin},
			{ID: "CRUDEX", DisplayName: "Crudex Barrels", Kind: "commodity", BasePriceMicros: 300 * MicrosPerCoin, GrowthMultiplier: 1.10, IncomeMicrosPerSec: 1 * MicrosPerCoin},
		},
		Ventures: []VentureDef{
			{
				ID: "corner_kiosk", DisplayName: "Corner Kiosk", Category: "retail",
				BasePriceMicros: 250 * MicrosPerCoin, BaseDailyIncomeMicros: 8_640 * MicrosPerCoin, RequiredLevel: 1,
				Upgrades: []UpgradeDef{
					{ID: "awning", DisplayName: "Striped Awning", BaseCostMicros: 120 * MicrosPerCoin, IncomeMultiplier: 1.25},
					{ID: "register", DisplayName: "Fast Register", BaseCostMicros: 340 * MicrosPerCoin, IncomeMultiplier: 1.5},
				},
			},
			{
				ID: "food_truck", DisplayName: "Food Truck", Category: "food",
				BasePriceMicros: 1_500 * MicrosPerCoin, BaseDailyIncomeMicros: 43_200 * MicrosPerCoin, RequiredLevel: 3,
				Upgrades: []UpgradeDef{
					{ID: "grill", DisplayName: "Double Grill", BaseCostMicros: 800 * MicrosPerCoin, IncomeMultiplier: 1.4},
					{ID: "neon", DisplayName: "Neon Sign", BaseCostMicros: 500 * MicrosPerCoin, IncomeMultiplier: 1.2},
					{ID: "franchise", DisplayName: "Franchise License", BaseCostMicros: 4_000 * MicrosPerCoin, IncomeMultiplier: 2.0},
				},
			},
			{
				ID: "arcade_hall", DisplayName: "Arcade Hall", Category: "entertainment",
				BasePriceMicros: 9_000 * MicrosPerCoin, BaseDailyIncomeMicros: 216_000 * MicrosPerCoin, RequiredLevel: 6,
				Upgrades: []UpgradeDef{
					{ID: "cabinets", DisplayName: "Retro Cabinets", BaseCostMicros: 3_500 * MicrosPerCoin, IncomeMultiplier: 1.35},
					{ID: "snackbar", DisplayName: "Snack Bar", BaseCostMicros: 6_000 * MicrosPerCoin, IncomeMultiplier: 1.5},
				},
			},
			{
				ID: "data_center", DisplayName: "Data Center", Category: "tech",
				BasePriceMicros: 60_000 * MicrosPerCoin, BaseDailyIncomeMicros: 1_728_000 * MicrosPerCoin, RequiredLevel: 10,
				Upgrades: []UpgradeDef{
					{ID: "cooling", DisplayName: "Liquid Cooling", BaseCostMicros: 25_000 * MicrosPerCoin, IncomeMultiplier: 1.6},
					{ID: "gpu_racks", DisplayName: "GPU Racks", BaseCostMicros: 80_000 * MicrosPerCoin, IncomeMultiplier: 2.2},
				},
			},
		},
		Boosters: []BoosterDef{
			{ID: "double_shot", DisplayName: "Double Shot", Category: BoosterClick, Multiplier: 2, Duration: 60 * time.Second},
			{ID: "gold_rush", DisplayName: "Gold Rush", Category: BoosterClick, Multiplier: 5, Duration: 120 * time.Second},
			{ID: "tailwind", DisplayName: "Tailwind", Category: BoosterIncome, Multiplier: 2, Duration: 5 * time.Minute},
			{ID: "hypergrowth", DisplayName: "Hypergrowth", Category: BoosterIncome, Multiplier: 3, Duration: 90 * time.Second},
			{ID: "intern_army", DisplayName: "Intern Army", Category: BoosterAuto, Multiplier: 1, Duration: 2 * time.Minute},
		},
		Achievements: []AchievementDef{
			{ID: "first_click", DisplayName: "Breaking Ground", Metric: MetricTotalActions, Threshold: 1, RewardMicros: 10 * MicrosPerCoin},
			{ID: "click_100", DisplayName: "Calloused Fingers", Metric: MetricTotalActions, Threshold: 100, RewardMicros: 250 * MicrosPerCoin},
			{ID: "click_10k", DisplayName: "Clicker Veteran", Metric: MetricTotalActions, Threshold: 10_000, RewardMicros: 10_000 * MicrosPerCoin},
			{ID: "coin_1k", DisplayName: "First Grand", Metric: MetricBalance, Threshold: 1_000 * MicrosPerCoin, RewardMicros: 100 * MicrosPerCoin},
			{ID: "coin_100k", DisplayName: "Six Figures", Metric: MetricBalance, Threshold: 100_000 * MicrosPerCoin, RewardMicros: 5_000 * MicrosPerCoin},
			{ID: "coin_1m", DisplayName: "Magnate", Metric: MetricBalance, Threshold: 1_000_000 * MicrosPerCoin, RewardMicros: 50_000 * MicrosPerCoin},
			{ID: "level_5", DisplayName: "Climbing", Metric: MetricLevel, Threshold: 5, RewardMicros: 500 * MicrosPerCoin},
			{ID: "level_20", DisplayName: "Serial Operator", Metric: MetricLevel, Threshold: 20, RewardMicros: 20_000 * MicrosPerCoin},
			{ID: "portfolio_10", DisplayName: "Diversified", Metric: MetricHoldingUnits, Threshold: 10, RewardMicros: 1_000 * MicrosPerCoin},
			{ID: "venture_1", DisplayName: "Open For Business", Metric: MetricVentureUnits, Threshold: 1, RewardMicros: 200 * MicrosPerCoin},
			{ID: "venture_10", DisplayName: "Chain Owner", Metric: MetricVentureUnits, Threshold: 10, RewardMicros: 5_000 * MicrosPerCoin},
			{ID: "upgrade_5", DisplayName: "Renovator", Metric: MetricUpgradesOwned, Threshold: 5, RewardMicros: 2_500 * MicrosPerCoin},
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

// LoadCatalog reads a full catalog from a YAML file. The file replaces the
// built-in catalog wholesale; there is no per-field merging.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	c.index()
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("no assets defined")
	}
	for _, a := range c.Assets {
		if a.GrowthMultiplier <= 1 {
			return fmt.Errorf("asset %s: growth multiplier must be > 1", a.ID)
		}
		if a.BasePriceMicros <= 0 {
			return fmt.Errorf("asset %s: base price must be > 0", a.ID)
		}
	}
	for _, v := range c.Ventures {
		if v.BasePriceMicros <= 0 || v.BaseDailyIncomeMicros < 0 {
			return fmt.Errorf("venture %s: bad pricing", v.ID)
		}
		seen := map[string]bool{}
		for _, u := range v.Upgrades {
			if seen[u.ID] {
				return fmt.Errorf("venture %s: duplicate upgrade %s", v.ID, u.ID)
			}
			seen[u.ID] = true
			if u.IncomeMultiplier <= 0 {
				return fmt.Errorf("venture %s upgrade %s: multiplier must be > 0", v.ID, u.ID)
			}
		}
	}
	if c.Tuning.TicksPerDay <= 0 {
		return fmt.Errorf("tuning: ticks_per_day must be > 0")
	}
	if c.Tuning.LevelDifficultyFactor <= 1 || c.Tuning.ClickGrowthFactor <= 1 {
		return fmt.Errorf("tuning: level growth factors must be > 1")
	}
	return nil
}

func (c *Catalog) index() {
	c.assetByID = make(map[string]AssetDef, len(c.Assets))
	for _, a := range c.Assets {
		c.assetByID[a.ID] = a
	}
	c.ventureByID = make(map[string]VentureDef, len(c.Ventures))
	for _, v := range c.Ventures {
		c.ventureByID[v.ID] = v
	}
	c.boosterByID = make(map[string]BoosterDef, len(c.Boosters))
	for _, b := range c.Boosters {
		c.boosterByID[b.ID] = b
	}
}

func (c *Catalog) Asset(id string) (AssetDef, bool) {
	a, ok := c.assetByID[id]
	return a, ok
}

func (c *Catalog) Venture(id string) (VentureDef, bool) {
	v, ok := c.ventureByID[id]
	return v, ok
}

func (c *Catalog) Booster(id string) (BoosterDef, bool) {
	b, ok := c.boosterByID[id]
	return b, ok
}

func (v VentureDef) Upgrade(id string) (UpgradeDef, bool) {
	for _, u := range v.Upgrades {
		if u.ID == id {
			return u, true
		}
	}
	return UpgradeDef{}, false
}

package plan

import (
	"time"

	"github.com/loanerfleet/loanerfleet/core/model"
)

// Fairness penalty modes.
const (
	FairnessStepped = "stepped" // mode B: soft ceiling near two per partner
	FairnessLinear  = "linear"  // mode A: linear beyond a target
)

// Budget enforcement modes.
const (
	BudgetSoft = "soft"
	BudgetHard = "hard"
)

// Cooldown matching scopes.
const (
	CooldownByMake  = "make"
	CooldownByModel = "model"
)

// Config is the full run-level configuration of one optimization. All
// knobs are validated eagerly before any model construction.
type Config struct {
	Office    string    `json:"office"`
	WeekStart time.Time `json:"-"` // per-run input, set by the caller
	LoanDays  int       `json:"loan_days"`

	CrossOffice bool `json:"cross_office"`

	CooldownDays  int            `json:"cooldown_days"`
	CooldownScope string         `json:"cooldown_scope"`
	MakeCooldowns map[string]int `json:"make_cooldowns"`

	LambdaCap float64 `json:"lambda_cap"`

	FairnessMode   string  `json:"fairness_mode"`
	LambdaFair     float64 `json:"lambda_fair"`
	LambdaStep     float64 `json:"lambda_step"`
	FairnessTarget int     `json:"fairness_target"`

	PointsPerDollar      float64  `json:"points_per_dollar"`
	BudgetMode           string   `json:"budget_mode"`
	HardFleets           []string `json:"hard_fleets"`
	SoftFleets           []string `json:"soft_fleets"`
	EnforceMissingBudget bool     `json:"enforce_missing_budget"`

	CostPerMake map[string]float64 `json:"cost_per_make"`
	DefaultCost float64            `json:"default_cost"`

	QuarterAttribution model.Attribution `json:"quarter_attribution"`

	WeightRank float64 `json:"weight_rank"`
	WeightGeo  float64 `json:"weight_geo"`
	WeightPub  float64 `json:"weight_pub"`
	WeightHist float64 `json:"weight_hist"`
	WeightDay  float64 `json:"weight_day"`

	ZeroCapOverride bool `json:"zero_cap_override"`

	DefaultWeekdaySlots int      `json:"default_weekday_slots"`
	Holidays            []string `json:"holidays"` // YYYY-MM-DD

	TopK int `json:"top_k"`

	SolveTimeLimitSeconds int   `json:"solve_time_limit_seconds"`
	Workers               int   `json:"workers"`
	SearchIterations      int   `json:"search_iterations"`
	Seed                  int64 `json:"seed"`
}

// DefaultConfig returns the documented default for every knob. Callers
// building a Config programmatically start here and override; zero values
// set on the result are honored (a zero rate disables its penalty, a zero
// cooldown disables the filter).
func DefaultConfig() Config {
	return Config{
		LoanDays:              7,
		CooldownDays:          30,
		CooldownScope:         CooldownByMake,
		LambdaCap:             500,
		FairnessMode:          FairnessStepped,
		LambdaFair:            120,
		LambdaStep:            400,
		FairnessTarget:        1,
		PointsPerDollar:       0.25,
		BudgetMode:            BudgetSoft,
		QuarterAttribution:    model.AttributionStartDate,
		WeightRank:            1.0,
		WeightGeo:             100,
		WeightPub:             150,
		WeightHist:            50,
		DefaultWeekdaySlots:   3,
		TopK:                  3,
		SolveTimeLimitSeconds: 10,
		Workers:               4,
		SearchIterations:      20000,
	}
}

// SetDefaults fills only the fields whose zero value can never be valid, so
// an explicitly configured zero rate or weight survives. Everything else
// defaults through DefaultConfig.
func (c *Config) SetDefaults() {
	if c.LoanDays == 0 {
		c.LoanDays = 7
	}
	if c.CooldownScope == "" {
		c.CooldownScope = CooldownByMake
	}
	if c.FairnessMode == "" {
		c.FairnessMode = FairnessStepped
	}
	if c.BudgetMode == "" {
		c.BudgetMode = BudgetSoft
	}
	if c.QuarterAttribution == "" {
		c.QuarterAttribution = model.AttributionStartDate
	}
	if c.TopK == 0 {
		c.TopK = 3
	}
	if c.SolveTimeLimitSeconds == 0 {
		c.SolveTimeLimitSeconds = 10
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.SearchIterations == 0 {
		c.SearchIterations = 20000
	}
}

// Validate rejects contradictory or out-of-range settings before any model
// construction. All violations are ConfigurationError values.
func (c Config) Validate() error {
	if c.Office == "" {
		return &ConfigurationError{Field: "office", Reason: "required"}
	}
	if c.WeekStart.IsZero() {
		return &ConfigurationError{Field: "week_start", Reason: "required"}
	}
	if c.LoanDays < 1 {
		return &ConfigurationError{Field: "loan_days", Reason: "must be at least 1"}
	}
	if c.CooldownDays < 0 {
		return &ConfigurationError{Field: "cooldown_days", Reason: "must not be negative"}
	}
	if c.CooldownScope != CooldownByMake && c.CooldownScope != CooldownByModel {
		return &ConfigurationError{Field: "cooldown_scope", Reason: "must be make or model"}
	}
	for mk, d := range c.MakeCooldowns {
		if d < 0 {
			return &ConfigurationError{Field: "make_cooldowns." + mk, Reason: "must not be negative"}
		}
	}
	if c.LambdaCap < 0 || c.LambdaFair < 0 || c.LambdaStep < 0 || c.PointsPerDollar < 0 {
		return &ConfigurationError{Field: "penalties", Reason: "penalty rates must not be negative"}
	}
	if c.FairnessMode != FairnessStepped && c.FairnessMode != FairnessLinear {
		return &ConfigurationError{Field: "fairness_mode", Reason: "must be stepped or linear"}
	}
	if c.FairnessTarget < 0 {
		return &ConfigurationError{Field: "fairness_target", Reason: "must not be negative"}
	}
	if c.BudgetMode != BudgetSoft && c.BudgetMode != BudgetHard {
		return &ConfigurationError{Field: "budget_mode", Reason: "must be soft or hard"}
	}
	soft := make(map[string]bool, len(c.SoftFleets))
	for _, f := range c.SoftFleets {
		soft[f] = true
	}
	for _, f := range c.HardFleets {
		if soft[f] {
			return &ConfigurationError{Field: "hard_fleets", Reason: "fleet " + f + " requested as both hard and soft"}
		}
	}
	if c.WeightRank < 0 || c.WeightGeo < 0 || c.WeightPub < 0 || c.WeightHist < 0 || c.WeightDay < 0 {
		return &ConfigurationError{Field: "weights", Reason: "shaping weights must not be negative"}
	}
	for mk, cost := range c.CostPerMake {
		if cost < 0 {
			return &ConfigurationError{Field: "cost_per_make." + mk, Reason: "must not be negative"}
		}
	}
	if !c.QuarterAttribution.Valid() {
		return &ConfigurationError{Field: "quarter_attribution", Reason: "must be start_date or prorata"}
	}
	if c.DefaultWeekdaySlots < 0 {
		return &ConfigurationError{Field: "default_weekday_slots", Reason: "must not be negative"}
	}
	for _, h := range c.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return &ConfigurationError{Field: "holidays", Reason: "invalid date " + h}
		}
	}
	if c.TopK < 1 {
		return &ConfigurationError{Field: "top_k", Reason: "must be at least 1"}
	}
	if c.SolveTimeLimitSeconds < 1 {
		return &ConfigurationError{Field: "solve_time_limit_seconds", Reason: "must be at least 1"}
	}
	if c.Workers < 1 {
		return &ConfigurationError{Field: "workers", Reason: "must be at least 1"}
	}
	if c.SearchIterations < 1 {
		return &ConfigurationError{Field: "search_iterations", Reason: "must be at least 1"}
	}
	return nil
}

// budgetModeFor resolves the enforcement mode of one fleet bucket.
func (c Config) budgetModeFor(fleet string) string {
	for _, f := range c.HardFleets {
		if f == fleet {
			return BudgetHard
		}
	}
	for _, f := range c.SoftFleets {
		if f == fleet {
			return BudgetSoft
		}
	}
	return c.BudgetMode
}

// cooldownFor resolves the cooldown for a make, honoring per-make overrides.
func (c Config) cooldownFor(make string) int {
	if d, ok := c.MakeCooldowns[make]; ok {
		return d
	}
	return c.CooldownDays
}

// week returns the seven candidate start days of the scheduling week.
func (c Config) week() []time.Time {
	start := model.Day(c.WeekStart)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// holidaySet parses the configured holidays into day keys.
func (c Config) holidaySet() map[string]bool {
	if len(c.Holidays) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.Holidays))
	for _, h := range c.Holidays {
		if d, err := time.Parse("2006-01-02", h); err == nil {
			set[model.DayKey(d)] = true
		}
	}
	return set
}

package model

// UnlimitedCap marks a tier with no annual loan ceiling.
const UnlimitedCap = -1

// defaultFleetAliases folds sibling brands into the fleet bucket that owns
// the budget line.
var defaultFleetAliases = map[string]string{
	"Chevrolet":     "GM",
	"GMC":           "GM",
	"Cadillac":      "GM",
	"Buick":         "GM",
	"Lincoln":       "Ford",
	"Acura":         "Honda",
	"Lexus":         "Toyota",
	"Infiniti":      "Nissan",
	"Genesis":       "Hyundai",
	"Audi":          "Volkswagen",
	"Porsche":       "Volkswagen",
	"Mini":          "BMW",
	"Chrysler":      "Stellantis",
	"Dodge":         "Stellantis",
	"Jeep":          "Stellantis",
	"Ram":           "Stellantis",
	"Alfa Romeo":    "Stellantis",
	"Mercedes-Benz": "Mercedes",
}

var defaultRankCaps = map[Rank]int{
	RankAPlus: UnlimitedCap,
	RankA:     100,
	RankB:     50,
	RankC:     10,
}

var defaultRankWeights = map[Rank]float64{
	RankAPlus: 1000,
	RankA:     900,
	RankB:     700,
	RankC:     500,
}

// ReferenceConfig carries the per-run reference tables that the source
// system kept as module-level dictionaries: fleet-name aliasing, tier
// defaults and assignment cost lookups. It is built once per run and never
// mutated afterwards.
type ReferenceConfig struct {
	fleetAliases map[string]string
	rankCaps     map[Rank]int
	rankWeights  map[Rank]float64
	costPerMake  map[string]float64
	defaultCost  float64
}

// NewReferenceConfig builds the reference tables for one run. costPerMake
// and defaultCost override the built-in cost fallback; a nil map and zero
// default keep the built-ins.
func NewReferenceConfig(costPerMake map[string]float64, defaultCost float64) *ReferenceConfig {
	rc := &ReferenceConfig{
		fleetAliases: defaultFleetAliases,
		rankCaps:     defaultRankCaps,
		rankWeights:  defaultRankWeights,
		defaultCost:  defaultCost,
	}
	if rc.defaultCost <= 0 {
		rc.defaultCost = 1200
	}
	if len(costPerMake) > 0 {
		cp := make(map[string]float64, len(costPerMake))
		for k, v := range costPerMake {
			cp[k] = v
		}
		rc.costPerMake = cp
	}
	return rc
}

// Fleet returns the normalized fleet bucket for a make. Makes without an
// alias are their own bucket.
func (rc *ReferenceConfig) Fleet(make string) string {
	if f, ok := rc.fleetAliases[make]; ok {
		return f
	}
	return make
}

// RankCap returns the default annual cap for a tier and whether the tier is
// capped at all.
func (rc *ReferenceConfig) RankCap(r Rank) (int, bool) {
	cap, ok := rc.rankCaps[r]
	if !ok {
		return 0, false
	}
	return cap, cap != UnlimitedCap
}

// RankWeight returns the base score for a tier.
func (rc *ReferenceConfig) RankWeight(r Rank) float64 {
	return rc.rankWeights[r]
}

// Cost returns the estimated cost of one assignment for a make.
func (rc *ReferenceConfig) Cost(make string) float64 {
	if c, ok := rc.costPerMake[make]; ok {
		return c
	}
	return rc.defaultCost
}

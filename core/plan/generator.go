package plan

import (
	"time"

	"github.com/loanerfleet/loanerfleet/core/model"
)

// Exclusion reasons surfaced in the audit summary.
const (
	ReasonMissingMake   = "missing_make"
	ReasonMissingRanks  = "missing_rank_table"
	ReasonUnknownPinned = "unknown_pinned_reference"
)

// Exclusion records one skipped input entity and why. Per-entity data
// problems are absorbed here instead of failing the run.
type Exclusion struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// incomplete builds the exclusion for an entity missing a required field.
func incomplete(kind, id, missing, reason string) Exclusion {
	err := &DataIncompleteError{Kind: kind, ID: id, Missing: missing}
	return Exclusion{Kind: kind, ID: id, Reason: reason, Detail: err.Error()}
}

// generateCandidates enumerates feasible (vehicle, partner, start day)
// triples for the scheduling week. Output carries no ordering guarantee;
// downstream stages must treat it as a set.
func generateCandidates(vehicles []model.Vehicle, partners []model.Partner, rc *model.ReferenceConfig, cfg Config) ([]model.Triple, []Exclusion) {
	var (
		triples    []model.Triple
		exclusions []Exclusion
	)
	week := cfg.week()

	badPartner := make(map[string]bool)
	for _, p := range partners {
		if p.ApprovedMakes == nil {
			exclusions = append(exclusions, incomplete("partner", p.ID, "rank table", ReasonMissingRanks))
			badPartner[p.ID] = true
		}
	}

	for _, v := range vehicles {
		// Only the target office's fleet is schedulable this run; the
		// cross-office flag widens the partner side only.
		if v.Office != cfg.Office {
			continue
		}
		if v.Make == "" {
			exclusions = append(exclusions, incomplete("vehicle", v.VIN, "make", ReasonMissingMake))
			continue
		}
		for _, start := range week {
			end := start.AddDate(0, 0, cfg.LoanDays-1)
			if !v.AvailableBetween(start, end) {
				continue
			}
			for _, p := range partners {
				if badPartner[p.ID] {
					continue
				}
				rank, ok := p.ApprovedMakes[v.Make]
				if !ok || !rank.Valid() {
					continue
				}
				if !cfg.CrossOffice && p.Office != v.Office {
					continue
				}
				if !p.AvailableBetween(start, end) {
					continue
				}
				triples = append(triples, newTriple(v, p, start, rank, rc))
			}
		}
	}
	return triples, exclusions
}

func newTriple(v model.Vehicle, p model.Partner, start time.Time, rank model.Rank, rc *model.ReferenceConfig) model.Triple {
	dayHit := 0.0
	if p.PreferredDay != nil && start.Weekday() == *p.PreferredDay {
		dayHit = p.PreferredDayConf
	}
	return model.Triple{
		VIN:              v.VIN,
		PartnerID:        p.ID,
		Start:            start,
		Make:             v.Make,
		Model:            v.Model,
		Fleet:            rc.Fleet(v.Make),
		Office:           v.Office,
		Rank:             rank,
		BaseScore:        rc.RankWeight(rank),
		EstimatedCost:    rc.Cost(v.Make),
		SameOffice:       v.Office == p.Office,
		PubRate:          clamp01(p.PubRate24m),
		PriorPublication: p.PriorPublication,
		PreferredDayHit:  dayHit,
	}
}

// mergePinned marks generated triples matching a carry-over assignment as
// pinned, synthesizing the triple when the generator did not emit it (a
// published decision is honored even if this week's eligibility data would
// no longer produce it).
func mergePinned(triples []model.Triple, pinned []model.PinnedAssignment, vehicles []model.Vehicle, partners []model.Partner, rc *model.ReferenceConfig, cfg Config) ([]model.Triple, []Exclusion) {
	if len(pinned) == 0 {
		return triples, nil
	}
	byKey := make(map[string]int, len(triples))
	for i, t := range triples {
		byKey[t.Key()] = i
	}
	vehByVIN := make(map[string]model.Vehicle, len(vehicles))
	for _, v := range vehicles {
		vehByVIN[v.VIN] = v
	}
	partByID := make(map[string]model.Partner, len(partners))
	for _, p := range partners {
		partByID[p.ID] = p
	}

	var exclusions []Exclusion
	for _, pa := range pinned {
		key := pa.VIN + "|" + pa.PartnerID + "|" + model.DayKey(pa.Start)
		if i, ok := byKey[key]; ok {
			triples[i].Pinned = true
			continue
		}
		v, vok := vehByVIN[pa.VIN]
		p, pok := partByID[pa.PartnerID]
		if !vok || !pok || v.Make == "" {
			exclusions = append(exclusions, Exclusion{Kind: "pinned", ID: key, Reason: ReasonUnknownPinned})
			continue
		}
		rank, ok := p.ApprovedMakes[v.Make]
		if !ok {
			rank = model.RankC
		}
		t := newTriple(v, p, model.Day(pa.Start), rank, rc)
		t.Pinned = true
		byKey[t.Key()] = len(triples)
		triples = append(triples, t)
	}
	return triples, exclusions
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

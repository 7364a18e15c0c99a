package plan

import (
	"time"

	"github.com/loanerfleet/loanerfleet/core/model"
)

// filterCooldown drops triples whose partner had a loan of the same make
// (or model, per the configured scope) end within the cooldown window
// before the candidate start day. This runs before optimization: cooldown
// is a hard eligibility rule, and putting it in the objective would let the
// solver buy violations with penalty budget. Pinned carry-over decisions
// bypass the filter.
func filterCooldown(triples []model.Triple, history []model.LoanRecord, cfg Config) (kept []model.Triple, dropped int) {
	if len(history) == 0 {
		return triples, 0
	}
	// Latest loan end per (partner, make-or-model).
	lastEnd := make(map[string]time.Time, len(history))
	for _, h := range history {
		k := cooldownKey(h.PartnerID, h.Make, h.Model, cfg.CooldownScope)
		end := model.Day(h.End)
		if cur, ok := lastEnd[k]; !ok || end.After(cur) {
			lastEnd[k] = end
		}
	}

	kept = triples[:0]
	for _, t := range triples {
		if t.Pinned {
			kept = append(kept, t)
			continue
		}
		k := cooldownKey(t.PartnerID, t.Make, t.Model, cfg.CooldownScope)
		end, ok := lastEnd[k]
		if ok {
			days := int(t.Start.Sub(end).Hours() / 24)
			if days < cfg.cooldownFor(t.Make) {
				dropped++
				continue
			}
		}
		kept = append(kept, t)
	}
	return kept, dropped
}

func cooldownKey(partnerID, make, mdl, scope string) string {
	if scope == CooldownByModel {
		return partnerID + "|" + make + "|" + mdl
	}
	return partnerID + "|" + make
}

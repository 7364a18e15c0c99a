package plan

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/loanerfleet/loanerfleet/core/model"
)

// tiebreakScale keeps the deterministic tiebreak far below any real score
// difference so it can only order otherwise-equal triples.
const tiebreakScale = 1e-3

// shapeScores computes every triple's shaped score from the configured
// weights plus a seeded tiebreak. Pure: it never changes which triples are
// feasible, only their relative order.
//
//	shaped = W_RANK*rank + W_GEO*sameOffice + W_PUB*pubRate
//	       + W_HIST*prior + W_DAY*preferredDayHit + tiebreak(seed, key)
func shapeScores(triples []model.Triple, cfg Config) []model.Triple {
	shaped := make([]model.Triple, len(triples))
	for i, t := range triples {
		score := cfg.WeightRank * t.BaseScore
		if t.SameOffice {
			score += cfg.WeightGeo
		}
		score += cfg.WeightPub * t.PubRate
		if t.PriorPublication {
			score += cfg.WeightHist
		}
		score += cfg.WeightDay * t.PreferredDayHit
		score += tiebreak(cfg.Seed, t.Key())
		t.ShapedScore = score
		shaped[i] = t
	}
	return shaped
}

// tiebreak derives a tiny deterministic term from the run seed and the
// triple's stable key. Equal-quality triples break ties identically across
// repeated runs with the same seed and differently across seeds; wall-clock
// and object identity never enter.
func tiebreak(seed int64, key string) float64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(key))
	return float64(h.Sum64()%1_000_000) / 1_000_000 * tiebreakScale
}

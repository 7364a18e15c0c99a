package plan

import (
	"math"
	"testing"

	"github.com/loanerfleet/loanerfleet/core/model"
)

func shaperTriples() []model.Triple {
	return []model.Triple{
		{VIN: "V1", PartnerID: "P1", Start: date(2025, 9, 22), BaseScore: 900, SameOffice: true, PubRate: 0.8, PriorPublication: true},
		{VIN: "V2", PartnerID: "P2", Start: date(2025, 9, 22), BaseScore: 900},
		{VIN: "V3", PartnerID: "P3", Start: date(2025, 9, 23), BaseScore: 500, PreferredDayHit: 1},
	}
}

func TestShapeScores_Weights(t *testing.T) {
	cfg := testConfig()
	shaped := shapeScores(shaperTriples(), cfg)

	// 1*900 + 100 geo + 150*0.8 pub + 50 hist = 1170, plus a sub-1e-3 tiebreak.
	if math.Abs(shaped[0].ShapedScore-1170) > tiebreakScale {
		t.Fatalf("shaped[0] = %v, want ~1170", shaped[0].ShapedScore)
	}
	if math.Abs(shaped[1].ShapedScore-900) > tiebreakScale {
		t.Fatalf("shaped[1] = %v, want ~900", shaped[1].ShapedScore)
	}
	// W_DAY defaults to zero: the preferred-day hit must not move the score.
	if math.Abs(shaped[2].ShapedScore-500) > tiebreakScale {
		t.Fatalf("shaped[2] = %v, want ~500", shaped[2].ShapedScore)
	}

	cfg.WeightDay = 40
	shaped = shapeScores(shaperTriples(), cfg)
	if math.Abs(shaped[2].ShapedScore-540) > tiebreakScale {
		t.Fatalf("W_DAY not applied: %v", shaped[2].ShapedScore)
	}
}

func TestShapeScores_Pure(t *testing.T) {
	cfg := testConfig()
	in := shaperTriples()
	_ = shapeScores(in, cfg)
	for _, tr := range in {
		if tr.ShapedScore != 0 {
			t.Fatal("shaping must not mutate its input")
		}
	}
}

func TestShapeScores_DeterministicPerSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 7
	a := shapeScores(shaperTriples(), cfg)
	b := shapeScores(shaperTriples(), cfg)
	for i := range a {
		if a[i].ShapedScore != b[i].ShapedScore {
			t.Fatalf("same seed must shape identically at %d", i)
		}
	}

	cfg.Seed = 8
	c := shapeScores(shaperTriples(), cfg)
	diff := false
	for i := range a {
		if a[i].ShapedScore != c[i].ShapedScore {
			diff = true
		}
	}
	if !diff {
		t.Fatal("different seeds must vary the tiebreak")
	}
}

func TestShapeScores_TiebreakStaysTiny(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		v := tiebreak(seed, "V1|P1|2025-09-22")
		if v < 0 || v >= tiebreakScale {
			t.Fatalf("tiebreak out of range: %v", v)
		}
	}
}

package model

import (
	"fmt"
	"time"
)

// Rank is a partner's approval tier for a given make.
type Rank string

const (
	RankAPlus Rank = "A+"
	RankA     Rank = "A"
	RankB     Rank = "B"
	RankC     Rank = "C"
)

// Valid reports whether the rank is one of the known tiers.
func (r Rank) Valid() bool {
	switch r {
	case RankAPlus, RankA, RankB, RankC:
		return true
	}
	return false
}

// Vehicle is a loanable unit of the press fleet. Immutable per run.
type Vehicle struct {
	VIN            string
	Make           string
	Model          string
	Office         string
	AvailableFrom  time.Time // zero value means no lower bound
	AvailableUntil time.Time // zero value means no upper bound
}

// Validate checks that the vehicle carries the keys every stage joins on.
func (v Vehicle) Validate() error {
	if v.VIN == "" {
		return fmt.Errorf("vehicle VIN is required")
	}
	return nil
}

// AvailableBetween reports whether the vehicle's availability window covers
// the inclusive [start, end] span.
func (v Vehicle) AvailableBetween(start, end time.Time) bool {
	if !v.AvailableFrom.IsZero() && start.Before(Day(v.AvailableFrom)) {
		return false
	}
	if !v.AvailableUntil.IsZero() && end.After(Day(v.AvailableUntil)) {
		return false
	}
	return true
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Overlaps reports whether the range intersects the inclusive [start, end] span.
func (r DateRange) Overlaps(start, end time.Time) bool {
	return !Day(r.To).Before(start) && !Day(r.From).After(end)
}

// Partner is a media partner eligible to receive loans.
type Partner struct {
	ID               string
	Name             string
	Office           string
	ApprovedMakes    map[string]Rank // make -> approval tier; nil means the rank table is missing
	PubRate24m       float64         // publication rate over 24 months, 0..1
	PriorPublication bool
	PreferredDay     *time.Weekday
	PreferredDayConf float64 // confidence of the preferred-day signal, 0..1
	Blackouts        []DateRange
}

// AvailableBetween reports whether no blackout intersects [start, end].
func (p Partner) AvailableBetween(start, end time.Time) bool {
	for _, b := range p.Blackouts {
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// Triple is a candidate (vehicle, partner, start day) assignment. Once
// generated it is immutable; only the solver marks a subset as selected.
type Triple struct {
	VIN       string
	PartnerID string
	Start     time.Time
	Make      string
	Model     string
	Fleet     string // normalized make bucket
	Office    string // vehicle office
	Rank      Rank   // partner's approval tier for the make

	BaseScore     float64 // rank weight, 500-1000 band
	ShapedScore   float64 // set by the objective shaper
	EstimatedCost float64

	SameOffice       bool
	PubRate          float64
	PriorPublication bool
	PreferredDayHit  float64 // 0 or the partner's preferred-day confidence

	Pinned bool // carry-over from a prior run; must stay selected
}

// Key returns a stable identity for the triple, used for deterministic
// tiebreaks and deduplication.
func (t Triple) Key() string {
	return t.VIN + "|" + t.PartnerID + "|" + DayKey(t.Start)
}

// Rule maps (make, rank) to an annual loan cap. A cap of zero is a hard
// block unless override mode is active.
type Rule struct {
	Make      string
	Rank      Rank
	AnnualCap int
}

// UsageRecord is a partner's rolling 12-month used-loan count for a make.
type UsageRecord struct {
	PartnerID string
	Make      string
	Used12m   int
}

// LoanRecord is one historical loan, used by the cooldown filter.
type LoanRecord struct {
	PartnerID string
	VIN       string
	Make      string
	Model     string
	End       time.Time // last day of the loan
}

// CapacityDay is an explicit per-(office, date) slot ceiling. Zero slots is
// a blackout. The note is audit display only.
type CapacityDay struct {
	Office string
	Date   time.Time
	Slots  int
	Note   string
}

// Budget is the spend ceiling for an (office, fleet, quarter) bucket.
// A nil Used is treated as zero.
type Budget struct {
	Office  string
	Fleet   string
	Quarter int
	Year    int
	Amount  float64
	Used    *float64
}

// Remaining returns the unspent budget. It can be negative when the bucket
// is already overdrawn.
func (b Budget) Remaining() float64 {
	used := 0.0
	if b.Used != nil {
		used = *b.Used
	}
	return b.Amount - used
}

// Assignment is one selected triple, the sole output entity of a run.
type Assignment struct {
	VIN           string    `json:"vin"`
	PartnerID     string    `json:"partner_id"`
	Start         time.Time `json:"start"`
	Make          string    `json:"make"`
	Fleet         string    `json:"fleet"`
	Score         float64   `json:"score"`
	EstimatedCost float64   `json:"estimated_cost"`
	Pinned        bool      `json:"pinned"`
}

// PinnedAssignment locks a (vehicle, partner, start day) decision that was
// published in a prior run and carries over into this week.
type PinnedAssignment struct {
	VIN       string
	PartnerID string
	Start     time.Time
}

// Day truncates a timestamp to UTC midnight so that all calendar arithmetic
// operates on whole days.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey formats a day as its canonical YYYY-MM-DD key.
func DayKey(t time.Time) string {
	return Day(t).Format("2006-01-02")
}

// Package dataset loads the weekly planning inputs from a JSON snapshot
// file. All dates use the YYYY-MM-DD form; timestamps are not accepted.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loanerfleet/loanerfleet/core/model"
	"github.com/loanerfleet/loanerfleet/core/plan"
)

type VehicleDef struct {
	VIN            string `json:"vin"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Office         string `json:"office"`
	AvailableFrom  string `json:"available_from,omitempty"`
	AvailableUntil string `json:"available_until,omitempty"`
}

type BlackoutDef struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type PartnerDef struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Office           string            `json:"office"`
	ApprovedMakes    map[string]string `json:"approved_makes"`
	PubRate24m       float64           `json:"pub_rate_24m"`
	PriorPublication bool              `json:"prior_publication"`
	PreferredDay     string            `json:"preferred_day,omitempty"`
	PreferredDayConf float64           `json:"preferred_day_confidence,omitempty"`
	Blackouts        []BlackoutDef     `json:"blackouts,omitempty"`
}

type RuleDef struct {
	Make      string `json:"make"`
	Rank      string `json:"rank"`
	AnnualCap int    `json:"annual_cap"`
}

type UsageDef struct {
	PartnerID string `json:"partner_id"`
	Make      string `json:"make"`
	Used12m   int    `json:"used_12m"`
}

type LoanDef struct {
	PartnerID string `json:"partner_id"`
	VIN       string `json:"vin"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	End       string `json:"end"`
}

type CapacityDef struct {
	Office string `json:"office"`
	Date   string `json:"date"`
	Slots  int    `json:"slots"`
	Note   string `json:"note,omitempty"`
}

type BudgetDef struct {
	Office  string   `json:"office"`
	Fleet   string   `json:"fleet"`
	Quarter int      `json:"quarter"`
	Year    int      `json:"year"`
	Amount  float64  `json:"amount"`
	Used    *float64 `json:"used,omitempty"`
}

type PinnedDef struct {
	VIN       string `json:"vin"`
	PartnerID string `json:"partner_id"`
	Start     string `json:"start"`
}

// File is the on-disk layout of one dataset snapshot.
type File struct {
	Vehicles []VehicleDef  `json:"vehicles"`
	Partners []PartnerDef  `json:"partners"`
	Rules    []RuleDef     `json:"rules,omitempty"`
	Usage    []UsageDef    `json:"usage,omitempty"`
	History  []LoanDef     `json:"history,omitempty"`
	Capacity []CapacityDef `json:"capacity,omitempty"`
	Budgets  []BudgetDef   `json:"budgets,omitempty"`
	Pinned   []PinnedDef   `json:"pinned,omitempty"`
}

// Load reads and converts a dataset snapshot.
func Load(path string) (plan.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plan.Dataset{}, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return plan.Dataset{}, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	return f.ToDataset()
}

// ToDataset converts the raw definitions into model entities.
func (f File) ToDataset() (plan.Dataset, error) {
	var ds plan.Dataset
	for _, d := range f.Vehicles {
		v := model.Vehicle{VIN: d.VIN, Make: d.Make, Model: d.Model, Office: d.Office}
		var err error
		if v.AvailableFrom, err = parseDay(d.AvailableFrom); err != nil {
			return ds, fmt.Errorf("dataset: vehicle %s: %w", d.VIN, err)
		}
		if v.AvailableUntil, err = parseDay(d.AvailableUntil); err != nil {
			return ds, fmt.Errorf("dataset: vehicle %s: %w", d.VIN, err)
		}
		ds.Vehicles = append(ds.Vehicles, v)
	}
	for _, d := range f.Partners {
		p := model.Partner{
			ID:               d.ID,
			Name:             d.Name,
			Office:           d.Office,
			PubRate24m:       d.PubRate24m,
			PriorPublication: d.PriorPublication,
			PreferredDayConf: d.PreferredDayConf,
		}
		if d.ApprovedMakes != nil {
			p.ApprovedMakes = make(map[string]model.Rank, len(d.ApprovedMakes))
			for mk, r := range d.ApprovedMakes {
				p.ApprovedMakes[mk] = model.Rank(r)
			}
		}
		if d.PreferredDay != "" {
			wd, err := parseWeekday(d.PreferredDay)
			if err != nil {
				return ds, fmt.Errorf("dataset: partner %s: %w", d.ID, err)
			}
			p.PreferredDay = &wd
		}
		for _, b := range d.Blackouts {
			from, err := parseDay(b.From)
			if err != nil {
				return ds, fmt.Errorf("dataset: partner %s blackout: %w", d.ID, err)
			}
			to, err := parseDay(b.To)
			if err != nil {
				return ds, fmt.Errorf("dataset: partner %s blackout: %w", d.ID, err)
			}
			p.Blackouts = append(p.Blackouts, model.DateRange{From: from, To: to})
		}
		ds.Partners = append(ds.Partners, p)
	}
	for _, d := range f.Rules {
		ds.Rules = append(ds.Rules, model.Rule{Make: d.Make, Rank: model.Rank(d.Rank), AnnualCap: d.AnnualCap})
	}
	for _, d := range f.Usage {
		ds.Usage = append(ds.Usage, model.UsageRecord{PartnerID: d.PartnerID, Make: d.Make, Used12m: d.Used12m})
	}
	for _, d := range f.History {
		end, err := parseDay(d.End)
		if err != nil {
			return ds, fmt.Errorf("dataset: loan history for %s: %w", d.PartnerID, err)
		}
		ds.History = append(ds.History, model.LoanRecord{PartnerID: d.PartnerID, VIN: d.VIN, Make: d.Make, Model: d.Model, End: end})
	}
	for _, d := range f.Capacity {
		date, err := parseDay(d.Date)
		if err != nil {
			return ds, fmt.Errorf("dataset: capacity for %s: %w", d.Office, err)
		}
		ds.CapacityDays = append(ds.CapacityDays, model.CapacityDay{Office: d.Office, Date: date, Slots: d.Slots, Note: d.Note})
	}
	for _, d := range f.Budgets {
		ds.Budgets = append(ds.Budgets, model.Budget{Office: d.Office, Fleet: d.Fleet, Quarter: d.Quarter, Year: d.Year, Amount: d.Amount, Used: d.Used})
	}
	for _, d := range f.Pinned {
		start, err := parseDay(d.Start)
		if err != nil {
			return ds, fmt.Errorf("dataset: pinned %s/%s: %w", d.VIN, d.PartnerID, err)
		}
		ds.Pinned = append(ds.Pinned, model.PinnedAssignment{VIN: d.VIN, PartnerID: d.PartnerID, Start: start})
	}
	return ds, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdays[strings.ToLower(s)]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

package model

import "time"

// Attribution selects how a loan week spanning a quarter boundary is charged.
type Attribution string

const (
	// AttributionStartDate charges the full cost to the quarter containing
	// the start day.
	AttributionStartDate Attribution = "start_date"
	// AttributionProRata splits the cost across quarters by loan days.
	AttributionProRata Attribution = "prorata"
)

// Valid reports whether the attribution rule is known.
func (a Attribution) Valid() bool {
	return a == AttributionStartDate || a == AttributionProRata
}

// QuarterOf returns the calendar year and quarter of a day.
func QuarterOf(t time.Time) (year, quarter int) {
	t = Day(t)
	return t.Year(), (int(t.Month())-1)/3 + 1
}

// QuarterShare is the portion of an assignment's cost charged to a quarter.
type QuarterShare struct {
	Year    int
	Quarter int
	Amount  float64
}

// AttributeCost splits an assignment's cost across quarters according to the
// configured rule. days is the loan length in days (minimum 1).
func AttributeCost(start time.Time, days int, cost float64, mode Attribution) []QuarterShare {
	start = Day(start)
	if days < 1 {
		days = 1
	}
	if mode != AttributionProRata {
		y, q := QuarterOf(start)
		return []QuarterShare{{Year: y, Quarter: q, Amount: cost}}
	}
	counts := make(map[[2]int]int)
	var order [][2]int
	for i := 0; i < days; i++ {
		y, q := QuarterOf(start.AddDate(0, 0, i))
		k := [2]int{y, q}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	shares := make([]QuarterShare, 0, len(order))
	for _, k := range order {
		shares = append(shares, QuarterShare{
			Year:    k[0],
			Quarter: k[1],
			Amount:  cost * float64(counts[k]) / float64(days),
		})
	}
	return shares
}

// Package export renders a planning result for downstream consumers:
// JSON for tooling, CSV for the fleet coordinators' spreadsheets.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/loanerfleet/loanerfleet/core/plan"
)

// WriteJSON writes the full run result, report included, as indented JSON.
func WriteJSON(w io.Writer, res *plan.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteCSV writes the selected assignments as one row per loan.
func WriteCSV(w io.Writer, res *plan.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"vin", "partner_id", "start", "make", "fleet", "score", "estimated_cost", "pinned"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range res.Assignments {
		rec := []string{
			a.VIN,
			a.PartnerID,
			a.Start.Format("2006-01-02"),
			a.Make,
			a.Fleet,
			strconv.FormatFloat(a.Score, 'f', 2, 64),
			strconv.FormatFloat(a.EstimatedCost, 'f', 2, 64),
			strconv.FormatBool(a.Pinned),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

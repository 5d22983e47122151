package types

import "time"

// RaceCard is the raw record fetched from the upstream source for one race.
// Payload preserves the original response bytes for archiving; Entries is the
// decoded form consumed by the preprocessing stage.
type RaceCard struct {
	// Key identifies the race this card describes.
	Key RaceKey `json:"key"`
	// FetchedAt is when the card was retrieved from the source.
	FetchedAt time.Time `json:"fetched_at"`
	// Entries are the decoded per-lane entries.
	Entries []CardEntry `json:"entries"`
	// Payload is the raw source response, kept for archiving.
	Payload []byte `json:"-"`
}

// CardEntry is one lane's entry on a race card, including the posted result.
type CardEntry struct {
	// Lane is the starting lane number, starting at 1.
	Lane int `json:"lane"`
	// RiderID is the source's stable rider identifier.
	RiderID string `json:"rider_id"`
	// RiderName is the display name as posted by the source.
	RiderName string `json:"rider_name"`
	// FinishOrder is the posted finishing position (1 = winner).
	// Zero means did-not-finish or not yet posted.
	FinishOrder int `json:"finish_order"`
	// FinishTime is the posted finish time string (e.g. "11.2").
	FinishTime string `json:"finish_time"`
	// Odds is the final win odds for this lane.
	Odds float64 `json:"odds"`
}

// ResultRecord is one normalized race result produced by preprocessing.
type ResultRecord struct {
	// Key identifies the race.
	Key RaceKey `json:"key" msgpack:"key"`
	// Lane is the starting lane number.
	Lane int `json:"lane" msgpack:"lane"`
	// RiderID is the stable rider identifier.
	RiderID string `json:"rider_id" msgpack:"rider_id"`
	// RiderName is the normalized rider display name.
	RiderName string `json:"rider_name" msgpack:"rider_name"`
	// FinishOrder is the finishing position (1 = winner, 0 = DNF).
	FinishOrder int `json:"finish_order" msgpack:"finish_order"`
	// FinishSeconds is the parsed finish time. Zero when unparseable.
	FinishSeconds float64 `json:"finish_seconds" msgpack:"finish_seconds"`
	// Odds is the final win odds.
	Odds float64 `json:"odds" msgpack:"odds"`
}

// RiderFeatures holds per-rider aggregates derived from stored history
// by the enrichment stage.
type RiderFeatures struct {
	// RiderID is the stable rider identifier.
	RiderID string `json:"rider_id"`
	// Starts is the number of prior results seen for the rider.
	Starts int `json:"starts"`
	// Wins is the number of prior first-place finishes.
	Wins int `json:"wins"`
	// Podiums is the number of prior top-three finishes.
	Podiums int `json:"podiums"`
	// WinRate is Wins / Starts. Zero when Starts is zero.
	WinRate float64 `json:"win_rate"`
	// AvgFinish is the mean finishing position over prior results,
	// excluding DNFs. Zero when no finished results exist.
	AvgFinish float64 `json:"avg_finish"`
}

// Finding is one validation issue discovered on a processed race.
type Finding struct {
	// Code is a stable machine-readable finding code (e.g. "dup_finish_order").
	Code string `json:"code"`
	// Lane is the lane the finding applies to. Zero for race-level findings.
	Lane int `json:"lane,omitempty"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// Fatal marks findings that fail the run.
	Fatal bool `json:"fatal"`
}

// ValidationReport is the outcome of the validation stage.
type ValidationReport struct {
	// Checked is the number of records inspected.
	Checked int `json:"checked"`
	// Findings lists all issues discovered, fatal and non-fatal.
	Findings []Finding `json:"findings,omitempty"`
}

// HasFatal returns true if any finding is fatal.
func (r *ValidationReport) HasFatal() bool {
	for _, f := range r.Findings {
		if f.Fatal {
			return true
		}
	}
	return false
}

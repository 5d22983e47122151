package orchestrator

import (
	"fmt"
	"time"

	"github.com/paddockhq/paddock/types"
)

// Expand builds the flat key list for a batch: every race number at every
// venue on every day in the inclusive [startDay, endDay] range. Pure
// function, no I/O.
//
// Keys are ordered day-major, then venue, then race number, matching the
// argument order.
func Expand(startDay, endDay string, venues []string, raceNos []int) ([]types.RaceKey, error) {
	start, err := time.Parse(types.DayFormat, startDay)
	if err != nil {
		return nil, fmt.Errorf("invalid start day %q: %w", startDay, err)
	}
	end, err := time.Parse(types.DayFormat, endDay)
	if err != nil {
		return nil, fmt.Errorf("invalid end day %q: %w", endDay, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end day %s precedes start day %s", endDay, startDay)
	}

	days := int(end.Sub(start).Hours()/24) + 1
	keys := make([]types.RaceKey, 0, days*len(venues)*len(raceNos))

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dayStr := day.Format(types.DayFormat)
		for _, venue := range venues {
			for _, raceNo := range raceNos {
				keys = append(keys, types.RaceKey{Day: dayStr, Venue: venue, RaceNo: raceNo})
			}
		}
	}
	return keys, nil
}

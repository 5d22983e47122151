// Package types defines core domain types for the paddock runtime.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"time"
)

// DayFormat is the Go layout for race day keys (compact, no separators).
const DayFormat = "20060102"

// RaceKey is the natural key of one race: day, venue code, race number.
// Immutable after construction; the key identifies exactly one race card
// on the upstream source.
type RaceKey struct {
	// Day is the race day in YYYYMMDD form.
	Day string `json:"day" yaml:"day"`
	// Venue is the venue code (e.g. track abbreviation).
	Venue string `json:"venue" yaml:"venue"`
	// RaceNo is the race number within the day, starting at 1.
	RaceNo int `json:"race_no" yaml:"race_no"`
}

// Validate checks that all key components are present and well-formed.
func (k RaceKey) Validate() error {
	if k.Day == "" {
		return errors.New("race key day must be non-empty")
	}
	if _, err := time.Parse(DayFormat, k.Day); err != nil {
		return fmt.Errorf("race key day %q is not YYYYMMDD: %w", k.Day, err)
	}
	if k.Venue == "" {
		return errors.New("race key venue must be non-empty")
	}
	if k.RaceNo < 1 {
		return fmt.Errorf("race key race_no must be >= 1, got %d", k.RaceNo)
	}
	return nil
}

// String renders the key as day/venue/raceNo.
func (k RaceKey) String() string {
	return fmt.Sprintf("%s/%s/%02d", k.Day, k.Venue, k.RaceNo)
}

// PartitionPath renders the key as a storage partition path.
func (k RaceKey) PartitionPath() string {
	return fmt.Sprintf("day=%s/venue=%s/race=%02d", k.Day, k.Venue, k.RaceNo)
}

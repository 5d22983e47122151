package stages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/types"
)

// Preprocessing normalizes the raw card entries into result records and
// writes the Records slot. Entries with a non-positive lane or an empty
// rider ID are dropped rather than carried forward.
type Preprocessing struct{}

// NewPreprocessing creates the preprocessing stage.
func NewPreprocessing() *Preprocessing {
	return &Preprocessing{}
}

// Name implements pipeline.Stage.
func (s *Preprocessing) Name() string { return PreprocessingName }

// ValidatePrerequisites implements pipeline.Stage: a card must be present.
func (s *Preprocessing) ValidatePrerequisites(_ context.Context, rc *pipeline.Context) error {
	if rc.RawCard == nil {
		return errors.New("no race card collected")
	}
	return nil
}

// ShouldSkip implements pipeline.Stage: skip when records already exist.
func (s *Preprocessing) ShouldSkip(_ context.Context, rc *pipeline.Context) bool {
	return rc.Records != nil
}

// Execute implements pipeline.Stage.
func (s *Preprocessing) Execute(_ context.Context, rc *pipeline.Context) (*types.StageOutcome, error) {
	card := rc.RawCard
	if len(card.Entries) == 0 {
		return nil, fmt.Errorf("card %s has no entries", card.Key)
	}

	records := make([]types.ResultRecord, 0, len(card.Entries))
	dropped := 0
	for _, entry := range card.Entries {
		if entry.Lane <= 0 || entry.RiderID == "" {
			dropped++
			continue
		}
		records = append(records, types.ResultRecord{
			Key:           card.Key,
			Lane:          entry.Lane,
			RiderID:       entry.RiderID,
			RiderName:     strings.TrimSpace(entry.RiderName),
			FinishOrder:   entry.FinishOrder,
			FinishSeconds: parseFinishTime(entry.FinishTime),
			Odds:          entry.Odds,
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("card %s has no usable entries", card.Key)
	}

	rc.Records = records

	return types.Completed(PreprocessingName,
		map[string]any{"records": len(records)},
		map[string]any{"dropped": dropped},
	), nil
}

// Rollback implements pipeline.Stage: clear the records slot.
func (s *Preprocessing) Rollback(_ context.Context, rc *pipeline.Context) error {
	rc.Records = nil
	return nil
}

// parseFinishTime converts a posted time string like "11.2" to seconds.
// Unparseable or absent times yield zero.
func parseFinishTime(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

// Verify Preprocessing implements pipeline.Stage.
var _ pipeline.Stage = (*Preprocessing)(nil)

package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/types"
)

// Validation finding codes.
const (
	FindingDupFinishOrder = "dup_finish_order"
	FindingDupLane        = "dup_lane"
	FindingNoWinner       = "no_winner"
	FindingOddsMissing    = "odds_missing"
	FindingTimeUnparsed   = "time_unparsed"
)

// Validation checks the processed records for internal consistency and
// writes the Report slot. Fatal findings fail the run; the report is only
// written when the race passes, so a failed validation leaves no partial
// state behind.
type Validation struct{}

// NewValidation creates the validation stage.
func NewValidation() *Validation {
	return &Validation{}
}

// Name implements pipeline.Stage.
func (s *Validation) Name() string { return ValidationName }

// ValidatePrerequisites implements pipeline.Stage.
func (s *Validation) ValidatePrerequisites(_ context.Context, rc *pipeline.Context) error {
	if len(rc.Records) == 0 {
		return errors.New("no records to validate")
	}
	if rc.Features == nil {
		return errors.New("no rider features derived")
	}
	return nil
}

// ShouldSkip implements pipeline.Stage: skip when a report already exists.
func (s *Validation) ShouldSkip(_ context.Context, rc *pipeline.Context) bool {
	return rc.Report != nil
}

// Execute implements pipeline.Stage.
func (s *Validation) Execute(_ context.Context, rc *pipeline.Context) (*types.StageOutcome, error) {
	report := inspect(rc.Records)

	fatal := 0
	for _, f := range report.Findings {
		if f.Fatal {
			fatal++
		}
	}
	metadata := map[string]any{
		"findings": len(report.Findings),
		"fatal":    fatal,
	}

	if report.HasFatal() {
		outcome := types.Failed(ValidationName, fmt.Errorf("race %s failed validation: %d fatal finding(s)", rc.Key, fatal))
		outcome.Metadata = metadata
		return outcome, nil
	}

	rc.Report = report

	return types.Completed(ValidationName,
		map[string]any{"checked": report.Checked},
		metadata,
	), nil
}

// Rollback implements pipeline.Stage: clear the report slot.
func (s *Validation) Rollback(_ context.Context, rc *pipeline.Context) error {
	rc.Report = nil
	return nil
}

// inspect runs all consistency checks over the records.
func inspect(records []types.ResultRecord) *types.ValidationReport {
	report := &types.ValidationReport{Checked: len(records)}

	seenOrder := make(map[int]int, len(records))
	seenLane := make(map[int]bool, len(records))
	anyFinished := false
	hasWinner := false

	for _, rec := range records {
		if seenLane[rec.Lane] {
			report.Findings = append(report.Findings, types.Finding{
				Code:    FindingDupLane,
				Lane:    rec.Lane,
				Message: fmt.Sprintf("lane %d appears more than once", rec.Lane),
				Fatal:   true,
			})
		}
		seenLane[rec.Lane] = true

		if rec.FinishOrder > 0 {
			anyFinished = true
			if rec.FinishOrder == 1 {
				hasWinner = true
			}
			if prev, dup := seenOrder[rec.FinishOrder]; dup {
				report.Findings = append(report.Findings, types.Finding{
					Code:    FindingDupFinishOrder,
					Lane:    rec.Lane,
					Message: fmt.Sprintf("finish order %d posted for lanes %d and %d", rec.FinishOrder, prev, rec.Lane),
					Fatal:   true,
				})
			} else {
				seenOrder[rec.FinishOrder] = rec.Lane
			}
			if rec.FinishSeconds == 0 {
				report.Findings = append(report.Findings, types.Finding{
					Code:    FindingTimeUnparsed,
					Lane:    rec.Lane,
					Message: fmt.Sprintf("lane %d finished without a parseable time", rec.Lane),
				})
			}
		}

		if rec.Odds <= 0 {
			report.Findings = append(report.Findings, types.Finding{
				Code:    FindingOddsMissing,
				Lane:    rec.Lane,
				Message: fmt.Sprintf("lane %d has no posted odds", rec.Lane),
			})
		}
	}

	if anyFinished && !hasWinner {
		report.Findings = append(report.Findings, types.Finding{
			Code:    FindingNoWinner,
			Message: "results posted but no lane finished first",
			Fatal:   true,
		})
	}

	return report
}

// Verify Validation implements pipeline.Stage.
var _ pipeline.Stage = (*Validation)(nil)

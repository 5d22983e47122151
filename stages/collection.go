// Package stages implements the concrete pipeline stages: collection,
// preprocessing, enrichment, and validation. Each stage takes its
// collaborators as constructor arguments; there are no package-level
// singletons.
package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/pipeline"
	"github.com/paddockhq/paddock/source"
	"github.com/paddockhq/paddock/store"
	"github.com/paddockhq/paddock/types"
)

// Stage name constants, used as ledger keys.
const (
	CollectionName    = "collection"
	PreprocessingName = "preprocessing"
	EnrichmentName    = "enrichment"
	ValidationName    = "validation"
)

// Collection fetches the race card from the upstream source and writes the
// RawCard slot. When an archiver is configured the raw payload is archived
// as well; archive failures are recorded in the outcome metadata but do not
// fail the stage.
type Collection struct {
	client    source.Client
	archiver  store.Archiver
	collector *metrics.Collector
}

// NewCollection creates the collection stage. The archiver is optional.
func NewCollection(client source.Client, archiver store.Archiver, collector *metrics.Collector) *Collection {
	return &Collection{client: client, archiver: archiver, collector: collector}
}

// Name implements pipeline.Stage.
func (s *Collection) Name() string { return CollectionName }

// ValidatePrerequisites implements pipeline.Stage.
func (s *Collection) ValidatePrerequisites(_ context.Context, rc *pipeline.Context) error {
	if s.client == nil {
		return errors.New("source client is not wired")
	}
	if err := rc.Key.Validate(); err != nil {
		return err
	}
	return nil
}

// ShouldSkip implements pipeline.Stage: skip when the card slot is already
// populated.
func (s *Collection) ShouldSkip(_ context.Context, rc *pipeline.Context) bool {
	return rc.RawCard != nil
}

// Execute implements pipeline.Stage.
func (s *Collection) Execute(ctx context.Context, rc *pipeline.Context) (*types.StageOutcome, error) {
	card, err := s.client.FetchRaceCard(ctx, rc.Key)
	if err != nil {
		s.collector.IncFetchFailure()
		return nil, fmt.Errorf("fetch race card: %w", err)
	}
	s.collector.IncFetchSuccess()

	rc.RawCard = card

	metadata := map[string]any{"entries": len(card.Entries)}
	payload := map[string]any{"fetched_at": card.FetchedAt}

	if s.archiver != nil {
		path, archiveErr := s.archiver.ArchiveCard(ctx, card)
		if archiveErr != nil {
			// Archiving is best effort; the card itself was fetched.
			metadata["archive_error"] = archiveErr.Error()
		} else {
			payload["archived_to"] = path
		}
	}

	return types.Completed(CollectionName, payload, metadata), nil
}

// Rollback implements pipeline.Stage: clear the card slot.
func (s *Collection) Rollback(_ context.Context, rc *pipeline.Context) error {
	rc.RawCard = nil
	return nil
}

// Verify Collection implements pipeline.Stage.
var _ pipeline.Stage = (*Collection)(nil)

package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("connection refused")
	perr := &PrerequisiteError{Stage: "enrichment", Err: cause}
	serr := &StageExecutionError{Stage: "collection", Err: cause}

	if !IsPrerequisite(perr) || IsPrerequisite(serr) {
		t.Error("IsPrerequisite misclassified")
	}
	if !IsStageExecution(serr) || IsStageExecution(perr) {
		t.Error("IsStageExecution misclassified")
	}
	if !errors.Is(perr, cause) || !errors.Is(serr, cause) {
		t.Error("wrapped causes must unwrap")
	}
}

func TestErrorClassification_Wrapped(t *testing.T) {
	inner := &StageExecutionError{Stage: "validation", Err: errors.New("fatal findings")}
	wrapped := fmt.Errorf("run aborted: %w", inner)

	if !IsStageExecution(wrapped) {
		t.Error("classification must see through wrapping")
	}

	var target *StageExecutionError
	if !errors.As(wrapped, &target) || target.Stage != "validation" {
		t.Error("errors.As must recover the typed error")
	}
}

func TestConfigurationSentinel(t *testing.T) {
	err := fmt.Errorf("%w: concurrency must be positive", ErrConfiguration)
	if !IsConfiguration(err) {
		t.Error("want configuration classification")
	}
	if IsConfiguration(errors.New("other")) {
		t.Error("unrelated errors must not classify as configuration")
	}
}

package pipeline

import (
	"fmt"
	"io"

	"github.com/paddockhq/paddock/metrics"
	"github.com/paddockhq/paddock/types"
)

// Builder accumulates an ordered stage list and assembles a Pipeline.
// Pure data assembly; Build fails fast on an empty stage list.
type Builder struct {
	name      string
	stages    []Stage
	collector *metrics.Collector
	logOutput io.Writer
}

// NewBuilder creates a Builder for a named pipeline.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// With appends stages in execution order and returns the builder for
// chaining. Nil stages are ignored.
func (b *Builder) With(stages ...Stage) *Builder {
	for _, s := range stages {
		if s != nil {
			b.stages = append(b.stages, s)
		}
	}
	return b
}

// WithCollector attaches a metrics collector. Optional; a nil collector
// disables metrics.
func (b *Builder) WithCollector(c *metrics.Collector) *Builder {
	b.collector = c
	return b
}

// WithLogOutput redirects pipeline logging to w. Optional; defaults to
// stderr.
func (b *Builder) WithLogOutput(w io.Writer) *Builder {
	b.logOutput = w
	return b
}

// Build assembles the Pipeline. Returns a configuration error when no
// stages were added.
func (b *Builder) Build() (*Pipeline, error) {
	if len(b.stages) == 0 {
		return nil, fmt.Errorf("%w: pipeline %q has no stages", ErrConfiguration, b.name)
	}
	stages := make([]Stage, len(b.stages))
	copy(stages, b.stages)
	return &Pipeline{
		name:      b.name,
		stages:    stages,
		collector: b.collector,
		logOutput: b.logOutput,
		status:    types.PipelineIdle,
	}, nil
}

// New assembles a Pipeline directly from an ordered stage list.
// Convenience for callers that do not need the fluent builder.
func New(name string, stages ...Stage) (*Pipeline, error) {
	return NewBuilder(name).With(stages...).Build()
}

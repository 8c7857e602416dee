// Package postprocessors turns extracted documents into chunks through a
// configurable chain of processors.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs chunk processors in order. The first stage receives no
// chunks and creates them; later stages refine or replace the list.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline running stages in the order given.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// FromConfig builds the pipeline named by cfg.Processors from r. A name may
// appear only once.
func FromConfig(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("%w: chunking pipeline has no processors", domain.ErrInvalidInput)
	}
	p := NewPipeline()
	seen := make(map[string]bool, len(cfg.Processors))
	for _, name := range cfg.Processors {
		if seen[name] {
			return nil, fmt.Errorf("%w: chunk processor %q listed twice", domain.ErrInvalidInput, name)
		}
		seen[name] = true

		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// Process chunks doc. Chunk IDs in the result are renumbered 0..n-1 so
// stages that insert or drop chunks need not maintain them.
func (p *Pipeline) Process(ctx context.Context, doc *domain.ExtractedDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done := logger.Timer("chunk stage " + stage.Name())
		out, err := stage.Process(ctx, doc, chunks)
		done()
		if err != nil {
			return nil, fmt.Errorf("chunk stage %s: %w", stage.Name(), err)
		}
		logger.Debug("chunk stage %s: %d -> %d chunks", stage.Name(), len(chunks), len(out))
		chunks = out
	}

	for i := range chunks {
		chunks[i].ID = i
	}
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Names lists the stage names in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Package backfill generates glossaries for editorial bodies stored without one.
package backfill

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/domain"
	"github.com/kapu/koreanow-go/internal/glossary"
	"github.com/kapu/koreanow-go/internal/service/ai"
)

// Store is the repository surface the backfill reads and writes.
type Store interface {
	ContentWithoutGlossary(ctx context.Context, limit int) ([]*domain.EditorialContent, error)
	GetEditorialByURL(ctx context.Context, site, url string) (*domain.Editorial, error)
	UpdateContentGlossary(ctx context.Context, id string, glossary domain.GlossaryJSON) error
}

// Generator produces new terms for one article.
type Generator interface {
	Generate(ctx context.Context, title, content string, existing glossary.Source) (glossary.Source, *ai.GenerateMetadata, error)
}

// Refiner rewrites the explanations of generated terms.
type Refiner interface {
	Refine(ctx context.Context, title string, terms glossary.Source) (glossary.Source, *ai.GenerateMetadata, error)
}

type Options struct {
	Limit   int
	Workers int
	DryRun  bool
	// Refine runs a second pass over generated definitions when the
	// generator supports it.
	Refine bool
}

// Result summarizes one run.
type Result struct {
	Scanned int   `json:"scanned"`
	Updated int64 `json:"updated"`
	Empty   int64 `json:"empty"`
	Failed  int64 `json:"failed"`
	// Preview holds generated glossaries by content ID on dry runs.
	Preview map[string]glossary.Source `json:"preview,omitempty"`
}

type Runner struct {
	store     Store
	generator Generator
	logger    *zap.Logger
}

func NewRunner(store Store, generator Generator, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, generator: generator, logger: logger}
}

// Run processes pending bodies concurrently. A failure on one body is logged
// and counted without stopping the rest.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	contents, err := r.store.ContentWithoutGlossary(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	result := &Result{Scanned: len(contents)}
	if opts.DryRun {
		result.Preview = make(map[string]glossary.Source)
	}
	var (
		updated, empty, failed atomic.Int64
		previewMu              sync.Mutex
	)

	p := pool.New().WithMaxGoroutines(workers)
	for _, content := range contents {
		content := content
		p.Go(func() {
			generated, err := r.processOne(ctx, content, opts.Refine)
			switch {
			case err != nil:
				failed.Add(1)
				r.logger.Warn("Glossary generation failed",
					zap.String("content_id", content.ID),
					zap.String("url", content.URL),
					zap.Error(err))
				return
			case len(generated) == 0:
				empty.Add(1)
				return
			}

			if opts.DryRun {
				previewMu.Lock()
				result.Preview[content.ID] = generated
				previewMu.Unlock()
				return
			}

			encoded, err := ai.Encode(generated)
			if err == nil {
				err = r.store.UpdateContentGlossary(ctx, content.ID, encoded)
			}
			if err != nil {
				failed.Add(1)
				r.logger.Warn("Failed to store glossary", zap.String("content_id", content.ID), zap.Error(err))
				return
			}
			updated.Add(1)
			r.logger.Info("Glossary stored",
				zap.String("content_id", content.ID),
				zap.Int("terms", len(generated)))
		})
	}
	p.Wait()

	result.Updated = updated.Load()
	result.Empty = empty.Load()
	result.Failed = failed.Load()
	return result, nil
}

// processOne generates terms not already defined on the editorial header.
func (r *Runner) processOne(ctx context.Context, content *domain.EditorialContent, refine bool) (glossary.Source, error) {
	var (
		title    string
		existing glossary.Source
	)

	header, err := r.store.GetEditorialByURL(ctx, content.Site, content.URL)
	if err != nil {
		return nil, err
	}
	if header != nil {
		title = header.TitleTranslated
		if existing, err = header.Glossary.Source(); err != nil {
			r.logger.Debug("Ignoring malformed header glossary", zap.String("url", content.URL), zap.Error(err))
			existing = nil
		}
	}

	generated, _, err := r.generator.Generate(ctx, title, content.ContentTranslated, existing)
	if err != nil || !refine || len(generated) == 0 {
		return generated, err
	}

	refiner, ok := r.generator.(Refiner)
	if !ok {
		return generated, nil
	}
	refined, _, err := refiner.Refine(ctx, title, generated)
	if err != nil {
		r.logger.Warn("Glossary refinement failed, keeping generated definitions",
			zap.String("content_id", content.ID),
			zap.Error(err))
		return generated, nil
	}
	return refined, nil
}

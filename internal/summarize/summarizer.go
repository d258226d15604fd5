package summarize

import (
	"context"
	"log"
	"sync"

	"github.com/joelkehle/paper-digest/internal/paper"
)

// DefaultConcurrency bounds simultaneous pipeline runs.
const DefaultConcurrency = 3

// Summarizer fans the pipeline out over a batch of papers with bounded
// concurrency. One paper failing never blocks or fails the batch.
type Summarizer struct {
	pipeline    *Pipeline
	concurrency int
	logger      *log.Logger
}

func NewSummarizer(pipeline *Pipeline) *Summarizer {
	return &Summarizer{
		pipeline:    pipeline,
		concurrency: DefaultConcurrency,
		logger:      log.Default(),
	}
}

func (s *Summarizer) SetLogger(l *log.Logger) { s.logger = l }
func (s *Summarizer) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Batch summarizes all candidates and returns a slice aligned with the
// input. A nil entry marks a paper whose summarization failed.
func (s *Summarizer) Batch(ctx context.Context, cands []paper.Candidate) []*paper.Summary {
	results := make([]*paper.Summary, len(cands))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i := range cands {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			summary, err := s.pipeline.Summarize(ctx, cands[i])
			if err != nil {
				s.logger.Printf("summarize: batch entry %s failed: %v", cands[i].ID, err)
				return
			}
			results[i] = &summary
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r != nil {
			succeeded++
		}
	}
	s.logger.Printf("summarize: batch complete (%d/%d succeeded)", succeeded, len(cands))
	return results
}

// One summarizes a single paper outside the batch fan-out.
func (s *Summarizer) One(ctx context.Context, cand paper.Candidate) (paper.Summary, error) {
	return s.pipeline.Summarize(ctx, cand)
}

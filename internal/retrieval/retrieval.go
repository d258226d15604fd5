package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/joelkehle/paper-digest/internal/cache"
	"github.com/joelkehle/paper-digest/internal/paper"
	"github.com/joelkehle/paper-digest/internal/semanticscholar"
)

const (
	// overfetchFactor covers papers that fall outside the month window once
	// submission dates are checked locally.
	overfetchFactor = 2

	// enrichBatchSize bounds concurrent citation lookups per batch.
	enrichBatchSize = 10
)

// MetadataSource yields candidate papers, newest first.
type MetadataSource interface {
	Search(ctx context.Context, categories []string, maxResults int) ([]paper.Candidate, error)
}

// CitationSource yields citation counts for one paper.
type CitationSource interface {
	Citations(ctx context.Context, id string) (paper.CitationData, error)
}

// Stage discovers one month's candidates and enriches them with citation
// counts. The filtered, sorted month list is cached as a single blob; a hit
// short-circuits the whole fetch and enrich path.
type Stage struct {
	metadata   MetadataSource
	citations  CitationSource
	store      cache.Cache
	logger     *log.Logger
	batchDelay time.Duration
}

func New(metadata MetadataSource, citations CitationSource, store cache.Cache) *Stage {
	return &Stage{
		metadata:   metadata,
		citations:  citations,
		store:      store,
		logger:     log.Default(),
		batchDelay: 1 * time.Second,
	}
}

// SetLogger replaces the default logger.
func (s *Stage) SetLogger(l *log.Logger) { s.logger = l }

// SetBatchDelay overrides the inter-batch pause (for testing).
func (s *Stage) SetBatchDelay(d time.Duration) { s.batchDelay = d }

// TopCited returns up to limit candidates submitted in the given period
// (YYYYMM), enriched with citation counts, filtered to minCitations, and
// ordered by citation count descending. A metadata outage degrades to an
// empty list, not an error.
func (s *Stage) TopCited(ctx context.Context, period string, limit, minCitations int) ([]paper.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	start, err := time.Parse("200601", period)
	if err != nil {
		return nil, fmt.Errorf("invalid period %q: %w", period, err)
	}
	end := start.AddDate(0, 1, 0)

	if cached, ok := s.cachedMonth(ctx, period); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	fetched, err := s.metadata.Search(ctx, nil, limit*overfetchFactor)
	if err != nil {
		s.logger.Printf("retrieval: metadata fetch failed for %s: %v", period, err)
		return nil, nil
	}
	inMonth := filterWindow(fetched, start, end, limit*overfetchFactor)
	enriched := s.enrich(ctx, inMonth)

	kept := enriched[:0]
	for _, c := range enriched {
		if c.CitationCount >= minCitations {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CitationCount > kept[j].CitationCount
	})
	s.storeMonth(ctx, period, kept)

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

func (s *Stage) cachedMonth(ctx context.Context, period string) ([]paper.Candidate, bool) {
	raw, ok, err := s.store.Get(ctx, cache.CitationsKey(period))
	if err != nil || !ok {
		return nil, false
	}
	var cands []paper.Candidate
	if err := json.Unmarshal(raw, &cands); err != nil {
		s.logger.Printf("retrieval: discarding corrupt cache entry for %s: %v", period, err)
		return nil, false
	}
	return cands, true
}

func (s *Stage) storeMonth(ctx context.Context, period string, cands []paper.Candidate) {
	raw, err := json.Marshal(cands)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, cache.CitationsKey(period), raw, cache.TTLCitations); err != nil {
		s.logger.Printf("retrieval: cache write failed for %s: %v", period, err)
	}
}

// filterWindow keeps candidates submitted in [start, end), up to max entries.
// The feed is ordered by submission date but Published carries the v1 date,
// so resubmissions can interleave out-of-window timestamps; the scan skips
// those and only stops once the cap is reached.
func filterWindow(cands []paper.Candidate, start, end time.Time, max int) []paper.Candidate {
	var out []paper.Candidate
	for _, c := range cands {
		if c.Published.Before(start) || !c.Published.Before(end) {
			continue
		}
		out = append(out, c)
		if len(out) >= max {
			break
		}
	}
	return out
}

// enrich fills in citation counts batch by batch. A failed or missing lookup
// leaves the candidate at zero citations; identity fields are never touched.
func (s *Stage) enrich(ctx context.Context, cands []paper.Candidate) []paper.Candidate {
	for batchStart := 0; batchStart < len(cands); batchStart += enrichBatchSize {
		batchEnd := batchStart + enrichBatchSize
		if batchEnd > len(cands) {
			batchEnd = len(cands)
		}

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				data, err := s.citations.Citations(ctx, paper.NormalizeID(cands[i].ID))
				if err != nil {
					if !errors.Is(err, semanticscholar.ErrNotFound) {
						s.logger.Printf("retrieval: citation lookup failed for %s: %v", cands[i].ID, err)
					}
					return
				}
				cands[i].CitationCount = data.CitationCount
				cands[i].InfluentialCitationCount = data.InfluentialCitationCount
			}(i)
		}
		wg.Wait()

		if batchEnd < len(cands) && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return cands
			case <-time.After(s.batchDelay):
			}
		}
	}
	return cands
}

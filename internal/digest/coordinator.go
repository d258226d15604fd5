package digest

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/paper-digest/internal/categorize"
	"github.com/joelkehle/paper-digest/internal/paper"
)

var tracer = otel.Tracer("paper-digest/digest")

// retrievalMultiplier over-fetches so topic filtering and summarization
// failures still leave enough papers for a full digest.
const retrievalMultiplier = 3

// Retriever yields one month's top-cited candidates.
type Retriever interface {
	TopCited(ctx context.Context, period string, limit, minCitations int) ([]paper.Candidate, error)
}

// TopicLabeler assigns one topic per candidate and cannot fail.
type TopicLabeler interface {
	Categorize(ctx context.Context, cand paper.Candidate) categorize.Decision
}

// BatchSummarizer produces input-aligned summaries; nil marks a failure.
type BatchSummarizer interface {
	Batch(ctx context.Context, cands []paper.Candidate) []*paper.Summary
}

// Request selects what one digest run covers. MinCitations below zero means
// adaptive: the floor scales with the month's age.
type Request struct {
	Month        string
	Topic        paper.Topic // empty selects all topics
	TopN         int
	MinCitations int
}

// Coordinator runs the full digest pipeline: retrieve, then categorize and
// summarize concurrently, then score, rank, and group by topic.
type Coordinator struct {
	retriever  Retriever
	labeler    TopicLabeler
	summarizer BatchSummarizer
	logger     *log.Logger
	now        func() time.Time
}

func NewCoordinator(retriever Retriever, labeler TopicLabeler, summarizer BatchSummarizer) *Coordinator {
	return &Coordinator{
		retriever:  retriever,
		labeler:    labeler,
		summarizer: summarizer,
		logger:     log.Default(),
		now:        time.Now,
	}
}

func (c *Coordinator) SetLogger(l *log.Logger) { c.logger = l }

// TopPapers produces the ranked digest for one month. Papers that failed
// summarization still appear, with a nil Summary; an empty retrieval
// short-circuits to an empty map.
func (c *Coordinator) TopPapers(ctx context.Context, req Request) (map[paper.Topic][]paper.RankedResult, error) {
	ctx, span := tracer.Start(ctx, "digest.TopPapers")
	defer span.End()

	if req.TopN <= 0 {
		req.TopN = 20
	}

	start, period, parsed := ParseMonth(req.Month, c.now())
	if !parsed && req.Month != "" {
		c.logger.Printf("digest: cannot parse month %q, using current month %s", req.Month, period)
	}

	minCitations := req.MinCitations
	if minCitations < 0 {
		monthsOld := MonthsOld(start, c.now())
		minCitations = AdaptiveMinCitations(monthsOld)
		c.logger.Printf("digest: adaptive citation floor for %s is %d (%d months old)", period, minCitations, monthsOld)
	}
	span.SetAttributes(
		attribute.String("digest.period", period),
		attribute.Int("digest.min_citations", minCitations),
	)

	cands, err := c.retriever.TopCited(ctx, period, req.TopN*retrievalMultiplier, minCitations)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		c.logger.Printf("digest: no papers found for %s", period)
		return map[paper.Topic][]paper.RankedResult{}, nil
	}

	topics, summaries := c.enrichConcurrently(ctx, cands)

	now := c.now()
	ranked := make([]paper.RankedResult, 0, len(cands))
	for i, cand := range cands {
		if req.Topic != "" && topics[i] != req.Topic {
			continue
		}
		ranked = append(ranked, paper.RankedResult{
			Candidate: cand,
			Score:     Score(cand, now),
			Topic:     topics[i],
			Summary:   summaries[i],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > req.TopN {
		ranked = ranked[:req.TopN]
	}

	grouped := make(map[paper.Topic][]paper.RankedResult)
	for _, r := range ranked {
		grouped[r.Topic] = append(grouped[r.Topic], r)
	}
	span.SetAttributes(attribute.Int("digest.papers", len(ranked)))
	return grouped, nil
}

// enrichConcurrently runs topic labeling and summarization side by side.
// Labeling fans out per paper; summarization manages its own concurrency.
func (c *Coordinator) enrichConcurrently(ctx context.Context, cands []paper.Candidate) ([]paper.Topic, []*paper.Summary) {
	topics := make([]paper.Topic, len(cands))
	var summaries []*paper.Summary

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		summaries = c.summarizer.Batch(ctx, cands)
	}()

	var labelWG sync.WaitGroup
	for i := range cands {
		labelWG.Add(1)
		go func(i int) {
			defer labelWG.Done()
			topics[i] = c.labeler.Categorize(ctx, cands[i]).Topic
		}(i)
	}
	labelWG.Wait()
	wg.Wait()
	return topics, summaries
}

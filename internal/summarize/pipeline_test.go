package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/joelkehle/paper-digest/internal/cache"
	"github.com/joelkehle/paper-digest/internal/llm"
	"github.com/joelkehle/paper-digest/internal/paper"
)

// stageGenerator routes responses by stage system prompt so each stage can
// be scripted independently. Handlers see the full request for per-paper
// behavior.
type stageGenerator struct {
	mu       sync.Mutex
	sanitize func(llm.Request) (string, error)
	summary  func(llm.Request) (string, error)
	repair   func(llm.Request) (string, error)
	stages   []string
}

func (g *stageGenerator) Complete(_ context.Context, req llm.Request) (string, llm.Usage, error) {
	g.mu.Lock()
	var fn func(llm.Request) (string, error)
	var stage string
	switch req.System {
	case systemSanitize:
		fn, stage = g.sanitize, "sanitize"
	case systemSummary:
		fn, stage = g.summary, "summary"
	case systemRepair:
		fn, stage = g.repair, "repair"
	}
	g.stages = append(g.stages, stage)
	g.mu.Unlock()

	if fn == nil {
		return "", llm.Usage{}, errors.New("stage not scripted: " + stage)
	}
	text, err := fn(req)
	return text, llm.Usage{OutputTokens: 100}, err
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func respond(s string) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return s, nil }
}

func fail(msg string) func(llm.Request) (string, error) {
	// "status code: 400" classifies as a client error, so the executor
	// fails fast without backoff sleeps.
	return func(llm.Request) (string, error) { return "", errors.New("status code: 400 " + msg) }
}

func newTestPipeline(gen llm.Generator) (*Pipeline, cache.Cache) {
	store := cache.NewMemoryCache()
	p := NewPipeline(gen, store)
	p.SetLogger(log.New(io.Discard, "", 0))
	return p, store
}

func testCandidate() paper.Candidate {
	return paper.Candidate{
		ID:              "2506.01234v2",
		Title:           "Test Paper",
		Authors:         []string{"Ada Lovelace", "Kurt Godel"},
		Abstract:        "We test things.",
		PrimaryCategory: "cs.CL",
	}
}

func TestSummarizeHappyPath(t *testing.T) {
	sanitizeOut := `{"title":"Test Paper","authors":"Ada Lovelace, Kurt Godel","category":"cs.CL","abstract":"We test things.","constraints":{"language":"zh-Hant","section_target":["intro","background","method","conclusion"]}}`
	gen := &stageGenerator{
		sanitize: respond(sanitizeOut),
		summary:  respond(mustJSON(t, validSummary())),
	}
	p, store := newTestPipeline(gen)

	got, err := p.Summarize(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if mustJSON(t, got) != mustJSON(t, validSummary()) {
		t.Fatalf("got %+v", got)
	}
	if strings.Join(gen.stages, ",") != "sanitize,summary" {
		t.Fatalf("stages = %v, repair must not run on valid output", gen.stages)
	}

	// Result cached under the normalized ID.
	key := cache.SummaryKey("2506.01234", llm.DefaultModel, "v1")
	if _, ok, _ := store.Get(context.Background(), key); !ok {
		t.Fatal("summary not cached")
	}
}

func TestSummarizeCacheHitSkipsGeneration(t *testing.T) {
	gen := &stageGenerator{}
	p, store := newTestPipeline(gen)

	key := cache.SummaryKey("2506.01234", llm.DefaultModel, "v1")
	if err := store.Set(context.Background(), key, []byte(mustJSON(t, validSummary())), cache.TTLSummary); err != nil {
		t.Fatal(err)
	}

	got, err := p.Summarize(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.Intro != validSummary().Intro {
		t.Fatalf("got %+v", got)
	}
	if len(gen.stages) != 0 {
		t.Fatalf("generator called on cache hit: %v", gen.stages)
	}
}

func TestSummarizeSanitizeFailureFallsThrough(t *testing.T) {
	gen := &stageGenerator{
		sanitize: fail("sanitizer down"),
		summary:  respond(mustJSON(t, validSummary())),
	}
	p, _ := newTestPipeline(gen)

	if _, err := p.Summarize(context.Background(), testCandidate()); err != nil {
		t.Fatalf("sanitize failure must not abort the pipeline: %v", err)
	}
}

func TestSummarizeGenerationFailureIsFatal(t *testing.T) {
	gen := &stageGenerator{
		sanitize: fail("down"),
		summary:  fail("down"),
	}
	p, store := newTestPipeline(gen)

	if _, err := p.Summarize(context.Background(), testCandidate()); err == nil {
		t.Fatal("expected error when generation fails")
	}
	key := cache.SummaryKey("2506.01234", llm.DefaultModel, "v1")
	if _, ok, _ := store.Get(context.Background(), key); ok {
		t.Fatal("failed run must not be cached")
	}
}

func TestSummarizeRepairFixAccepted(t *testing.T) {
	broken := validSummary()
	broken.Intro = "只有一句。"
	fixed := validSummary()

	gen := &stageGenerator{
		sanitize: fail("down"),
		summary:  respond(mustJSON(t, broken)),
		repair: respond(mustJSON(t, repairResponse{
			OK:         false,
			Violations: []string{"too_few_sentences:intro"},
			Fixed:      &fixed,
		})),
	}
	p, _ := newTestPipeline(gen)

	got, err := p.Summarize(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.Intro != fixed.Intro {
		t.Fatalf("repair output not used: %+v", got)
	}
}

func TestSummarizeInvalidRepairFallsBackToTruncation(t *testing.T) {
	broken := validSummary()
	broken.Method = strings.Repeat("超長的方法描述。", 200)
	stillBroken := broken

	gen := &stageGenerator{
		sanitize: fail("down"),
		summary:  respond(mustJSON(t, broken)),
		repair: respond(mustJSON(t, repairResponse{
			OK:    false,
			Fixed: &stillBroken,
		})),
	}
	p, _ := newTestPipeline(gen)

	got, err := p.Summarize(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if n := len([]rune(got.Method)); n > MaxCharsPerSection {
		t.Fatalf("method still over budget after fallback: %d runes", n)
	}
}

func TestSummarizeRepairTransportFailureFallsBackToTruncation(t *testing.T) {
	broken := validSummary()
	broken.Conclusion = strings.Repeat("結論。", 500)

	gen := &stageGenerator{
		sanitize: fail("down"),
		summary:  respond(mustJSON(t, broken)),
		repair:   fail("validator down"),
	}
	p, _ := newTestPipeline(gen)

	got, err := p.Summarize(context.Background(), testCandidate())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if n := len([]rune(got.Conclusion)); n > MaxCharsPerSection {
		t.Fatalf("conclusion not truncated: %d runes", n)
	}
}

func TestBatchAlignedResultsWithFailures(t *testing.T) {
	gen := &stageGenerator{sanitize: fail("down")}
	gen.summary = func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "Broken Paper") {
			return "", errors.New("status code: 400 refused")
		}
		return mustJSONNoT(validSummary()), nil
	}
	p, _ := newTestPipeline(gen)

	s := NewSummarizer(p)
	s.SetLogger(log.New(io.Discard, "", 0))
	cands := []paper.Candidate{
		{ID: "ok1", Title: "Good Paper", Abstract: "x"},
		{ID: "bad", Title: "Broken Paper", Abstract: "y"},
		{ID: "ok2", Title: "Another Paper", Abstract: "z"},
	}
	results := s.Batch(context.Background(), cands)
	if len(results) != 3 {
		t.Fatalf("results = %+v", results)
	}
	if results[0] == nil || results[2] == nil {
		t.Fatal("successful papers must have summaries")
	}
	if results[1] != nil {
		t.Fatal("failed paper must map to nil, not drop")
	}
}

func TestBatchRespectsConcurrencyBound(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0

	gen := &stageGenerator{sanitize: fail("down")}
	gen.summary = func(llm.Request) (string, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			active--
			mu.Unlock()
		}()
		return mustJSONNoT(validSummary()), nil
	}
	p, _ := newTestPipeline(gen)

	s := NewSummarizer(p)
	s.SetLogger(log.New(io.Discard, "", 0))
	s.SetConcurrency(2)

	cands := make([]paper.Candidate, 8)
	for i := range cands {
		cands[i] = paper.Candidate{ID: string(rune('a' + i)), Title: "t", Abstract: "x"}
	}
	results := s.Batch(context.Background(), cands)
	for i, r := range results {
		if r == nil {
			t.Fatalf("entry %d failed", i)
		}
	}
	if peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func mustJSONNoT(v any) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joelkehle/paper-digest/internal/cache"
	"github.com/joelkehle/paper-digest/internal/llm"
	"github.com/joelkehle/paper-digest/internal/paper"
)

var tracer = otel.Tracer("paper-digest/summarize")

// summaryVersion tags cache entries; bump it when the prompt contract
// changes so stale summaries regenerate.
const summaryVersion = "v1"

// Pipeline produces one validated summary per paper through three stages:
// sanitize the metadata (best effort), generate the summary (fatal on
// failure), then validate and repair. Results are cached per
// (paper, model, version).
type Pipeline struct {
	exec          *llm.Executor
	store         cache.Cache
	logger        *log.Logger
	model         string
	sanitizeModel string
	repairModel   string
	temperature   float64
}

func NewPipeline(gen llm.Generator, store cache.Cache) *Pipeline {
	return &Pipeline{
		exec:          llm.NewExecutor(gen),
		store:         store,
		logger:        log.Default(),
		model:         llm.DefaultModel,
		sanitizeModel: llm.DefaultSanitizeModel,
		repairModel:   llm.DefaultValidateModel,
		temperature:   0.2,
	}
}

func (p *Pipeline) SetLogger(l *log.Logger) { p.logger = l }
func (p *Pipeline) SetModel(model string)   { p.model = model }

// sanitized is the Stage A contract. Authors collapse to one string here;
// the constraints block rides along into Stage B unchanged.
type sanitized struct {
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Category    string `json:"category"`
	Abstract    string `json:"abstract"`
	Constraints struct {
		Language      string   `json:"language"`
		SectionTarget []string `json:"section_target"`
	} `json:"constraints"`
}

// Summarize returns the validated summary for one candidate, from cache when
// possible. Only a Stage B failure is fatal; Stage A falls back to the raw
// metadata and Stage C falls back to local truncation.
func (p *Pipeline) Summarize(ctx context.Context, cand paper.Candidate) (paper.Summary, error) {
	id := paper.NormalizeID(cand.ID)
	ctx, span := tracer.Start(ctx, "summarize.Summarize")
	span.SetAttributes(attribute.String("paper.id", id))
	defer span.End()

	key := cache.SummaryKey(id, p.model, summaryVersion)

	if raw, ok, _ := p.store.Get(ctx, key); ok {
		var cached paper.Summary
		if err := json.Unmarshal(raw, &cached); err == nil {
			p.logger.Printf("summarize: cache hit for %s", id)
			return cached, nil
		}
	}

	clean := p.sanitize(ctx, cand)

	summary, err := p.generate(ctx, cand, clean)
	if err != nil {
		return paper.Summary{}, fmt.Errorf("summarize %s: %w", id, err)
	}

	final := p.repair(ctx, id, summary)

	if raw, err := json.Marshal(final); err == nil {
		if err := p.store.Set(ctx, key, raw, cache.TTLSummary); err != nil {
			p.logger.Printf("summarize: cache write failed for %s: %v", id, err)
		}
	}
	return final, nil
}

// sanitize is Stage A. Any failure degrades to the raw metadata with the
// default constraints attached.
func (p *Pipeline) sanitize(ctx context.Context, cand paper.Candidate) sanitized {
	prompt := fmt.Sprintf(userSanitizeTemplate,
		cand.Title, strings.Join(cand.Authors, ", "), cand.PrimaryCategory, cand.Abstract)

	var clean sanitized
	_, err := p.exec.RunJSON(ctx, "sanitize", llm.Request{
		System:      systemSanitize,
		Prompt:      prompt,
		Model:       p.sanitizeModel,
		Temperature: 0.1,
		MaxTokens:   2048,
	}, &clean, func() error {
		if clean.Title == "" && clean.Abstract == "" {
			return fmt.Errorf("empty metadata")
		}
		return nil
	})
	if err != nil {
		p.logger.Printf("summarize: sanitize failed for %s, using raw metadata: %v", cand.ID, err)
		clean = sanitized{
			Title:    cand.Title,
			Authors:  strings.Join(cand.Authors, ", "),
			Category: cand.PrimaryCategory,
			Abstract: cand.Abstract,
		}
		clean.Constraints.Language = "zh-Hant"
		clean.Constraints.SectionTarget = []string{"intro", "background", "method", "conclusion"}
	}
	return clean
}

// generate is Stage B, the only stage whose failure aborts the pipeline.
func (p *Pipeline) generate(ctx context.Context, cand paper.Candidate, clean sanitized) (paper.Summary, error) {
	published := ""
	if !cand.Published.IsZero() {
		published = cand.Published.Format("2006-01-02")
	}
	prompt := fmt.Sprintf(userSummaryTemplate,
		clean.Title, clean.Authors, clean.Category, published, clean.Abstract)

	var summary paper.Summary
	m, err := p.exec.RunJSON(ctx, "summary", llm.Request{
		System:      systemSummary,
		Prompt:      prompt,
		Model:       p.model,
		Temperature: p.temperature,
	}, &summary, func() error { return nil })
	if err != nil {
		return paper.Summary{}, err
	}
	p.logger.Printf("summarize: generated summary for %s (tokens out=%d)", cand.ID, m.Usage.OutputTokens)
	return summary, nil
}

type repairResponse struct {
	OK         bool           `json:"ok"`
	Violations []string       `json:"violations"`
	Fixed      *paper.Summary `json:"fixed"`
}

// repair is Stage C. A structurally valid summary passes straight through;
// otherwise the repair model gets one shot, its output is re-checked
// locally, and local truncation is the fallback of last resort.
func (p *Pipeline) repair(ctx context.Context, id string, summary paper.Summary) paper.Summary {
	ok, violations := Validate(summary)
	if ok {
		return summary
	}
	p.logger.Printf("summarize: %s violates contract (%s), attempting repair", id, strings.Join(violations, ", "))

	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return TruncateSections(summary)
	}

	var resp repairResponse
	_, err = p.exec.RunJSON(ctx, "repair", llm.Request{
		System:      systemRepair,
		Prompt:      fmt.Sprintf(userRepairTemplate, string(raw)),
		Model:       p.repairModel,
		Temperature: 0,
	}, &resp, func() error { return nil })
	if err == nil {
		if resp.OK {
			if resp.Fixed != nil {
				return *resp.Fixed
			}
			return summary
		}
		if resp.Fixed != nil {
			if ok, _ := Validate(*resp.Fixed); ok {
				return *resp.Fixed
			}
		}
	} else {
		p.logger.Printf("summarize: repair stage failed for %s: %v", id, err)
	}

	p.logger.Printf("summarize: falling back to truncation for %s", id)
	return TruncateSections(summary)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelkehle/paper-digest/internal/arxiv"
	"github.com/joelkehle/paper-digest/internal/cache"
	"github.com/joelkehle/paper-digest/internal/categorize"
	"github.com/joelkehle/paper-digest/internal/digest"
	"github.com/joelkehle/paper-digest/internal/export"
	"github.com/joelkehle/paper-digest/internal/llm"
	"github.com/joelkehle/paper-digest/internal/paper"
	"github.com/joelkehle/paper-digest/internal/retrieval"
	"github.com/joelkehle/paper-digest/internal/semanticscholar"
	"github.com/joelkehle/paper-digest/internal/summarize"
	"github.com/joelkehle/paper-digest/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	month := flag.String("month", "", "Month to digest (YYYY-MM, default: current month)")
	paperID := flag.String("paper", "", "Summarize a single arXiv ID instead of a month")
	topic := flag.String("topic", "", "Only include one topic (e.g. OCR, RAG改良)")
	topN := flag.Int("top", 20, "Number of papers in the digest")
	minCitations := flag.Int("min-citations", -1, "Citation floor (-1: adaptive by month age)")
	cachePath := flag.String("cache", "paper-digest.db", "SQLite cache path (empty: in-memory)")
	reportPath := flag.String("report", "", "Write the markdown digest to this file")
	pdfPath := flag.String("pdf", "", "Render the digest to PDF at this path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "paper-digest")
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	var store cache.Cache
	if *cachePath == "" {
		store = cache.NewMemoryCache()
	} else {
		sqliteStore, err := cache.NewSQLiteCache(*cachePath)
		if err != nil {
			log.Fatal(err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	gen, err := llm.NewAnthropicGeneratorFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	arxivClient := arxiv.NewClient()
	stage := retrieval.New(arxivClient, semanticscholar.NewClient(), store)
	labeler := categorize.New(gen)
	summarizer := summarize.NewSummarizer(summarize.NewPipeline(gen, store))
	coordinator := digest.NewCoordinator(stage, labeler, summarizer)

	if *paperID != "" {
		summarizeOne(ctx, arxivClient, labeler, summarizer, *paperID)
		return
	}

	req := digest.Request{
		Month:        *month,
		TopN:         *topN,
		MinCitations: *minCitations,
	}
	if *topic != "" {
		req.Topic = paper.ParseTopic(*topic)
	}

	log.Printf("building digest (month=%q top=%d)", *month, *topN)
	grouped, err := coordinator.TopPapers(ctx, req)
	if err != nil {
		log.Fatal(err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	out.SetEscapeHTML(false)
	if err := out.Encode(grouped); err != nil {
		log.Fatal(err)
	}

	if *reportPath == "" && *pdfPath == "" {
		return
	}
	label := *month
	if label == "" {
		label = time.Now().UTC().Format("2006-01")
	}
	markdown := digest.BuildMarkdown(label, grouped)

	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, []byte(markdown), 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote markdown digest to %s", *reportPath)
	}
	if *pdfPath != "" {
		pdf, err := export.NewChromiumPDFRenderer().Render(ctx, "arXiv 論文月報 "+label, markdown)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote PDF digest to %s", *pdfPath)
	}
}

// summarizeOne handles the single-paper mode: fetch, categorize, summarize,
// and print one ranked result.
func summarizeOne(ctx context.Context, client *arxiv.Client, labeler *categorize.Categorizer, summarizer *summarize.Summarizer, id string) {
	cand, err := client.FetchOne(ctx, id)
	if err != nil {
		log.Fatal(err)
	}
	decision := labeler.Categorize(ctx, cand)
	summary, err := summarizer.One(ctx, cand)
	if err != nil {
		log.Fatal(err)
	}

	result := paper.RankedResult{
		Candidate: cand,
		Topic:     decision.Topic,
		Summary:   &summary,
	}
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	out.SetEscapeHTML(false)
	if err := out.Encode(result); err != nil {
		log.Fatal(err)
	}
}

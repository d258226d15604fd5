package paper

import (
	"strconv"
	"strings"
	"time"
)

// Topic is one label from the closed classification set. Every candidate
// ends up with exactly one Topic; TopicOther is the catch-all.
type Topic string

const (
	TopicLLMArchitecture Topic = "LLM架構"
	TopicLLMApplication  Topic = "LLM應用"
	TopicRAGImprovement  Topic = "RAG改良"
	TopicRAGApplication  Topic = "RAG應用"
	TopicOCR             Topic = "OCR"
	TopicLLMRouter       Topic = "LLM Router"
	TopicOther           Topic = "其他"
)

// Topics lists all members in a stable order.
var Topics = []Topic{
	TopicLLMArchitecture,
	TopicLLMApplication,
	TopicRAGImprovement,
	TopicRAGApplication,
	TopicOCR,
	TopicLLMRouter,
	TopicOther,
}

// ParseTopic maps a label to a Topic; unrecognized labels map to TopicOther.
func ParseTopic(label string) Topic {
	label = strings.TrimSpace(label)
	for _, t := range Topics {
		if string(t) == label {
			return t
		}
	}
	return TopicOther
}

// Candidate is a paper discovered by retrieval. Identity fields come from the
// metadata source and are never mutated; the citation counts are filled in by
// enrichment and stay zero if the lookup misses or fails.
type Candidate struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Authors         []string  `json:"authors"`
	Abstract        string    `json:"abstract"`
	Published       time.Time `json:"published"`
	PrimaryCategory string    `json:"primary_category"`
	PDFURL          string    `json:"pdf_url"`
	EntryURL        string    `json:"entry_url"`
	Source          string    `json:"source"`

	CitationCount            int `json:"citation_count"`
	InfluentialCitationCount int `json:"influential_citation_count"`
}

// CitationData is one citation-graph lookup result.
type CitationData struct {
	ID                       string `json:"id"`
	CitationCount            int    `json:"citation_count"`
	InfluentialCitationCount int    `json:"influential_citation_count"`
	PublicationDate          string `json:"publication_date,omitempty"`
}

// Summary is the structured six-field summary produced by the pipeline.
// JSON keys match the generation schema and the cache encoding.
type Summary struct {
	Intro        string   `json:"intro"`
	Background   string   `json:"background"`
	Method       string   `json:"method"`
	Conclusion   string   `json:"conclusion"`
	BulletPoints []string `json:"bullet_points"`
	Limitations  string   `json:"limitations"`
}

// RankedResult is a candidate after categorization, summarization, and
// scoring. Summary is nil only when summarization failed for this candidate.
type RankedResult struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
	Topic     Topic     `json:"topic"`
	Summary   *Summary  `json:"summary,omitempty"`
}

// NormalizeID strips a trailing version suffix ("2301.07041v2" → "2301.07041")
// for cache keys and lookups. The versioned form is kept for display.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			return id[:vIdx]
		}
	}
	return id
}

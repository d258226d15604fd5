package digest

import (
	"testing"
	"time"

	"github.com/joelkehle/paper-digest/internal/paper"
)

var scoreNow = time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

func TestScoreMonotonicInCitations(t *testing.T) {
	published := scoreNow.AddDate(0, -2, 0)
	low := Score(paper.Candidate{CitationCount: 3, Published: published}, scoreNow)
	high := Score(paper.Candidate{CitationCount: 30, Published: published}, scoreNow)
	if high <= low {
		t.Fatalf("more citations must score higher: %f <= %f", high, low)
	}
}

func TestScoreRecencyBreaksTies(t *testing.T) {
	newer := Score(paper.Candidate{CitationCount: 5, Published: scoreNow.AddDate(0, 0, -10)}, scoreNow)
	older := Score(paper.Candidate{CitationCount: 5, Published: scoreNow.AddDate(0, 0, -300)}, scoreNow)
	if newer <= older {
		t.Fatalf("newer paper must score higher: %f <= %f", newer, older)
	}
}

func TestScoreRecencyFloorsAtZero(t *testing.T) {
	ancient := Score(paper.Candidate{Published: scoreNow.AddDate(-3, 0, 0)}, scoreNow)
	veryAncient := Score(paper.Candidate{Published: scoreNow.AddDate(-10, 0, 0)}, scoreNow)
	if ancient != veryAncient {
		t.Fatalf("recency must floor at zero past one year: %f != %f", ancient, veryAncient)
	}
}

func TestScoreInfluentialCitationsContribute(t *testing.T) {
	published := scoreNow.AddDate(0, -1, 0)
	plain := Score(paper.Candidate{CitationCount: 10, Published: published}, scoreNow)
	influential := Score(paper.Candidate{CitationCount: 10, InfluentialCitationCount: 8, Published: published}, scoreNow)
	if influential <= plain {
		t.Fatalf("influential citations must add score: %f <= %f", influential, plain)
	}
}

func TestScoreZeroCandidate(t *testing.T) {
	got := Score(paper.Candidate{Published: scoreNow.AddDate(-2, 0, 0)}, scoreNow)
	if got != 0 {
		t.Fatalf("zero citations and stale date should score 0, got %f", got)
	}
}

package digest

import (
	"math"
	"time"

	"github.com/joelkehle/paper-digest/internal/paper"
)

// Ranking weights: citations dominate, recency and influential citations
// break ties.
const (
	citationWeight    = 0.7
	recencyWeight     = 0.2
	influentialWeight = 0.1
)

// Score ranks a candidate. Citation terms are log-damped so a single viral
// paper cannot swamp the list; recency decays linearly to zero over a year.
func Score(cand paper.Candidate, now time.Time) float64 {
	citation := math.Log(float64(cand.CitationCount) + 1)

	daysOld := now.UTC().Sub(cand.Published).Hours() / 24
	recency := math.Max(0, 1-daysOld/365)

	influential := math.Log(float64(cand.InfluentialCitationCount) + 1)

	return citation*citationWeight + recency*recencyWeight + influential*influentialWeight
}

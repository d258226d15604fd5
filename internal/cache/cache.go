package cache

import (
	"context"
	"fmt"
	"time"
)

// Namespace prefixes every key so the store can be shared with other tools.
const Namespace = "pd"

// TTLs per entry class. Citation blobs refresh weekly because counts keep
// moving; summaries are stable per (paper, model, version) and live longer.
const (
	TTLCitations = 7 * 24 * time.Hour
	TTLMetadata  = 7 * 24 * time.Hour
	TTLSummary   = 30 * 24 * time.Hour
)

// Cache is the key-value capability consumed by the retrieval and
// summarization stages. Get returns ok=false on a miss or an expired entry.
// Keys are independent; no cross-key transactions.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CitationsKey addresses the full filtered/sorted candidate set for one
// period. The period identifier is the YYYYMM month.
func CitationsKey(period string) string {
	return fmt.Sprintf("%s:citations:%s", Namespace, period)
}

// SummaryKey addresses one validated summary. The id must already be
// normalized (version suffix stripped).
func SummaryKey(id, model, version string) string {
	return fmt.Sprintf("%s:paper:%s:summary:%s:%s", Namespace, id, model, version)
}

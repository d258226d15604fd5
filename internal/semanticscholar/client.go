package semanticscholar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/joelkehle/paper-digest/internal/paper"
)

const (
	// BaseURL is the Semantic Scholar Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second

	// RateLimit keeps unauthenticated traffic under the public API budget.
	RateLimit = 1.0

	// citationFields are the fields requested for citation lookups.
	citationFields = "citationCount,influentialCitationCount,publicationDate"
)

// ErrNotFound means the paper has no Semantic Scholar record yet. Recent
// arXiv uploads routinely hit this; callers treat it as zero citations.
var ErrNotFound = errors.New("semanticscholar: paper not found")

// Client is a rate-limited client for the Semantic Scholar Graph API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithRateLimit overrides the request rate (for testing).
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a Graph API client. S2_API_KEY is picked up from the
// environment when present; explicit options win.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}
	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type citationResponse struct {
	CitationCount            int    `json:"citationCount"`
	InfluentialCitationCount int    `json:"influentialCitationCount"`
	PublicationDate          string `json:"publicationDate"`
}

// Citations looks up citation counts for one arXiv ID. The ID should be
// normalized; the arXiv: prefix is added here.
func (c *Client) Citations(ctx context.Context, arxivID string) (paper.CitationData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return paper.CitationData{}, err
	}

	u := fmt.Sprintf("%s/paper/arXiv:%s?fields=%s", c.baseURL, arxivID, citationFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return paper.CitationData{}, fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return paper.CitationData{}, fmt.Errorf("semantic scholar request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return paper.CitationData{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return paper.CitationData{}, fmt.Errorf("semantic scholar returned HTTP %d", resp.StatusCode)
	}

	var body citationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return paper.CitationData{}, fmt.Errorf("parsing response: %w", err)
	}
	return paper.CitationData{
		ID:                       arxivID,
		CitationCount:            body.CitationCount,
		InfluentialCitationCount: body.InfluentialCitationCount,
		PublicationDate:          body.PublicationDate,
	}, nil
}

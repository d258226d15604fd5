package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joelkehle/paper-digest/internal/paper"
)

// apiBase is the arXiv query endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

const userAgent = "paper-digest/1.0 (mailto:ops@paperdigest.dev)"

// DefaultCategories is the CS sweep used by monthly retrieval. Categories
// are OR-combined into a single query.
var DefaultCategories = []string{"cs.CL", "cs.LG", "cs.AI", "cs.CV"}

// Client queries the arXiv Atom API.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// Search returns up to maxResults candidates in the given categories,
// newest submissions first. Date filtering is the caller's job: the API's
// submittedDate ordering is what bounds the scan.
func (c *Client) Search(ctx context.Context, categories []string, maxResults int) ([]paper.Candidate, error) {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	parts := make([]string, 0, len(categories))
	for _, cat := range categories {
		parts = append(parts, "cat:"+cat)
	}
	query := strings.Join(parts, " OR ")

	u := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		apiBase, url.QueryEscape(query), maxResults)
	return c.fetch(ctx, u)
}

// FetchOne looks up a single paper by arXiv ID. A version suffix on the ID
// is accepted and resolves to that version's metadata.
func (c *Client) FetchOne(ctx context.Context, id string) (paper.Candidate, error) {
	u := fmt.Sprintf("%s?id_list=%s&max_results=1", apiBase, url.QueryEscape(id))
	results, err := c.fetch(ctx, u)
	if err != nil {
		return paper.Candidate{}, err
	}
	if len(results) == 0 {
		return paper.Candidate{}, fmt.Errorf("arXiv: no entry for %q", id)
	}
	return results[0], nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]paper.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var out []paper.Candidate
	for _, entry := range feed.Entries {
		id := extractID(entry.ID)
		if id == "" {
			continue
		}
		cand := paper.Candidate{
			ID:              id,
			Title:           collapseWhitespace(entry.Title),
			Abstract:        strings.TrimSpace(entry.Summary),
			Source:          "arxiv",
			PrimaryCategory: entry.PrimaryCategory.Term,
			EntryURL:        strings.TrimSpace(entry.ID),
		}
		for _, a := range entry.Authors {
			cand.Authors = append(cand.Authors, strings.TrimSpace(a.Name))
		}
		for _, l := range entry.Links {
			if l.Title == "pdf" || strings.Contains(l.Href, "/pdf/") {
				cand.PDFURL = l.Href
			}
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			cand.Published = t
		}
		out = append(out, cand)
	}
	return out, nil
}

// Atom feed XML structures.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID              string       `xml:"id"`
	Title           string       `xml:"title"`
	Summary         string       `xml:"summary"`
	Published       string       `xml:"published"`
	Authors         []atomAuthor `xml:"author"`
	Links           []atomLink   `xml:"link"`
	PrimaryCategory atomCategory `xml:"primary_category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// extractID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return paper.NormalizeID(idURL[idx+len(prefix):])
}

// collapseWhitespace flattens the newline-wrapped titles the Atom feed
// produces into a single line.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

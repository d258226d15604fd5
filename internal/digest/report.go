package digest

import (
	"fmt"
	"strings"

	"github.com/joelkehle/paper-digest/internal/paper"
)

// BuildMarkdown renders one digest as a markdown report. Topics appear in
// their canonical order; papers keep their ranking order within a topic.
func BuildMarkdown(month string, grouped map[paper.Topic][]paper.RankedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# arXiv 論文月報 %s\n\n", month)

	total := 0
	for _, results := range grouped {
		total += len(results)
	}
	fmt.Fprintf(&b, "共 %d 篇論文。\n\n", total)

	for _, topic := range paper.Topics {
		results, ok := grouped[topic]
		if !ok || len(results) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", topic)

		for _, r := range results {
			fmt.Fprintf(&b, "### %s\n\n", r.Candidate.Title)
			fmt.Fprintf(&b, "- arXiv: [%s](%s)\n", r.Candidate.ID, r.Candidate.EntryURL)
			fmt.Fprintf(&b, "- 作者: %s\n", strings.Join(r.Candidate.Authors, ", "))
			fmt.Fprintf(&b, "- 引用數: %d (influential: %d)\n", r.Candidate.CitationCount, r.Candidate.InfluentialCitationCount)
			fmt.Fprintf(&b, "- 分數: %.3f\n\n", r.Score)

			if r.Summary == nil {
				fmt.Fprintf(&b, "_摘要生成失敗。_\n\n")
				continue
			}
			fmt.Fprintf(&b, "**簡介**: %s\n\n", r.Summary.Intro)
			fmt.Fprintf(&b, "**背景**: %s\n\n", r.Summary.Background)
			fmt.Fprintf(&b, "**方法**: %s\n\n", r.Summary.Method)
			fmt.Fprintf(&b, "**結論**: %s\n\n", r.Summary.Conclusion)
			if len(r.Summary.BulletPoints) > 0 {
				fmt.Fprintf(&b, "**重點**:\n\n")
				for _, bp := range r.Summary.BulletPoints {
					fmt.Fprintf(&b, "- %s\n", bp)
				}
				fmt.Fprintf(&b, "\n")
			}
			fmt.Fprintf(&b, "**限制**: %s\n\n", r.Summary.Limitations)
		}
	}
	return b.String()
}

package summarize

import (
	"regexp"
	"strings"

	"github.com/joelkehle/paper-digest/internal/paper"
)

// Structural limits for one summary.
const (
	MaxCharsPerSection = 900
	MinSentences       = 2
	MaxSentences       = 4
	MinBulletPoints    = 3
	MaxBulletPoints    = 5
)

var (
	sectionKeys = []string{"intro", "background", "method", "conclusion"}

	sentenceSplit = regexp.MustCompile(`[。!?！？.]+`)
	cjkPattern    = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
)

func sectionText(s paper.Summary, key string) string {
	switch key {
	case "intro":
		return s.Intro
	case "background":
		return s.Background
	case "method":
		return s.Method
	case "conclusion":
		return s.Conclusion
	case "limitations":
		return s.Limitations
	}
	return ""
}

func setSectionText(s *paper.Summary, key, text string) {
	switch key {
	case "intro":
		s.Intro = text
	case "background":
		s.Background = text
	case "method":
		s.Method = text
	case "conclusion":
		s.Conclusion = text
	}
}

// CountSentences counts sentence fragments split on CJK and ASCII
// terminators. Blank fragments do not count.
func CountSentences(text string) int {
	n := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// Validate checks a summary against the structural contract and returns the
// violation tags. An absent field (empty section or nil bullet list)
// short-circuits: only missing:* tags are reported so the repair stage fixes
// presence before shape. Validate never mutates its input.
func Validate(s paper.Summary) (bool, []string) {
	var violations []string

	for _, key := range sectionKeys {
		if sectionText(s, key) == "" {
			violations = append(violations, "missing:"+key)
		}
	}
	if s.BulletPoints == nil {
		violations = append(violations, "missing:bullet_points")
	}
	if s.Limitations == "" {
		violations = append(violations, "missing:limitations")
	}
	if len(violations) > 0 {
		return false, violations
	}

	for _, key := range sectionKeys {
		text := sectionText(s, key)
		if len([]rune(text)) > MaxCharsPerSection {
			violations = append(violations, "too_long:"+key)
		}
		switch n := CountSentences(text); {
		case n < MinSentences:
			violations = append(violations, "too_few_sentences:"+key)
		case n > MaxSentences:
			violations = append(violations, "too_many_sentences:"+key)
		}
	}

	switch {
	case len(s.BulletPoints) < MinBulletPoints:
		violations = append(violations, "too_few:bullet_points")
	case len(s.BulletPoints) > MaxBulletPoints:
		violations = append(violations, "too_many:bullet_points")
	}

	for _, key := range append(append([]string{}, sectionKeys...), "limitations") {
		text := sectionText(s, key)
		if text != "" && !cjkPattern.MatchString(text) {
			violations = append(violations, "language:not_chinese:"+key)
		}
	}

	return len(violations) == 0, violations
}

// TruncateSections trims oversized sections to the character budget, backing
// off to the last sentence boundary, and caps the bullet list. Compliant
// input comes back unchanged, so the operation is idempotent.
func TruncateSections(s paper.Summary) paper.Summary {
	out := s
	out.BulletPoints = append([]string(nil), s.BulletPoints...)

	for _, key := range sectionKeys {
		runes := []rune(sectionText(out, key))
		if len(runes) <= MaxCharsPerSection {
			continue
		}
		truncated := runes[:MaxCharsPerSection]
		for _, delim := range []rune{'。', '！', '？', '.', '!', '?'} {
			if idx := lastIndexRune(truncated, delim); idx > 0 {
				truncated = truncated[:idx+1]
				break
			}
		}
		setSectionText(&out, key, string(truncated))
	}

	if len(out.BulletPoints) > MaxBulletPoints {
		out.BulletPoints = out.BulletPoints[:MaxBulletPoints]
	}
	return out
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

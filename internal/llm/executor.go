package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Executor runs one JSON-producing generation call with bounded retries.
// Transport failures that look transient (timeout, 429, 5xx) back off and
// retry; malformed or invalid content is retried with feedback appended to
// the prompt so the model can correct itself.
type Executor struct {
	gen   Generator
	sleep func(time.Duration)
}

func NewExecutor(gen Generator) *Executor {
	return &Executor{gen: gen, sleep: time.Sleep}
}

// Metrics reports how a stage run went. Usage accumulates across attempts.
type Metrics struct {
	Attempts       int
	ContentRetries int
	Usage          Usage
}

// RunJSON calls the generator, parses the response into out, and applies the
// caller's validate check. validate runs after a successful unmarshal and may
// inspect out; returning an error triggers a feedback retry.
func (e *Executor) RunJSON(ctx context.Context, stageName string, req Request, out any, validate func() error) (Metrics, error) {
	metrics := Metrics{}
	feedback := ""
	basePrompt := req.Prompt
	for attempt := 1; attempt <= 3; attempt++ {
		metrics.Attempts = attempt
		req.Prompt = basePrompt + "\n\nRespond with only valid JSON matching the schema."
		if feedback != "" {
			req.Prompt += "\n\n" + feedback
		}

		raw, usage, err := e.gen.Complete(ctx, req)
		metrics.Usage.InputTokens += usage.InputTokens
		metrics.Usage.OutputTokens += usage.OutputTokens
		if err != nil {
			class := classifyTransportError(err)
			if class == failureTimeout || class == failureRateLimit || class == failureServer {
				if attempt < 3 {
					e.sleep(backoffDelay(attempt))
					continue
				}
			}
			return metrics, fmt.Errorf("%s transport failure: %w", stageName, err)
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			if attempt < 3 {
				metrics.ContentRetries++
				feedback = "Your previous response was empty. Respond with valid JSON."
				continue
			}
			return metrics, fmt.Errorf("%s failed: empty response", stageName)
		}

		clean := StripCodeFences(raw)
		if err := json.Unmarshal([]byte(clean), out); err != nil {
			if attempt < 3 {
				metrics.ContentRetries++
				feedback = "Your previous response was not valid JSON. Respond with only valid JSON."
				continue
			}
			return metrics, fmt.Errorf("%s failed json parse: %w", stageName, err)
		}
		if err := validate(); err != nil {
			if attempt < 3 {
				metrics.ContentRetries++
				feedback = fmt.Sprintf("Your response failed validation: %s. Fix these issues.", err)
				continue
			}
			return metrics, fmt.Errorf("%s failed validation: %w", stageName, err)
		}
		return metrics, nil
	}
	return metrics, fmt.Errorf("%s failed after retries", stageName)
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a json language tag, leaving bare responses untouched.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

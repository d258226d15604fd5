package llm

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Default model assignments. The sanitize and validate stages run on the
// cheaper model; the main summary generation uses the full model.
const (
	DefaultModel         = string(anthropic.ModelClaudeSonnet4_20250514)
	DefaultSanitizeModel = string(anthropic.ModelClaude3_5HaikuLatest)
	DefaultValidateModel = string(anthropic.ModelClaude3_5HaikuLatest)
)

// Request is one generation call. Temperature 0 is the deterministic mode
// required by classification and validation.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int64
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Generator is the text-generation capability. Implementations must enforce
// their own timeouts; callers treat a timeout as an ordinary call failure.
type Generator interface {
	Complete(ctx context.Context, req Request) (string, Usage, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicGenerator implements Generator on the Anthropic Messages API.
type AnthropicGenerator struct {
	messages AnthropicMessager
}

func NewAnthropicGeneratorFromEnv() (*AnthropicGenerator, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicGenerator{messages: newAnthropicClient(apiKey)}, nil
}

func (g *AnthropicGenerator) Complete(ctx context.Context, req Request) (string, Usage, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	resp, err := g.messages.New(ctx, params)
	if err != nil {
		return "", Usage{}, err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	usage := Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	return sb.String(), usage, nil
}

type failureClass int

const (
	failureParse failureClass = iota
	failureEmpty
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

func classifyTransportError(err error) failureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, " 5") || strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, " 4") || strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

package categorize

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joelkehle/paper-digest/internal/llm"
	"github.com/joelkehle/paper-digest/internal/paper"
)

const systemPrompt = `你是一個專業的論文主題分類專家。根據論文的標題、摘要和類別，將論文分類到以下主題之一：

**主題定義**：
- **LLM架構**: 大型語言模型的架構創新、訓練方法、模型優化
- **LLM應用**: 使用LLM解決實際問題的應用研究
- **RAG改良**: 檢索增強生成(RAG)的技術改進、架構優化
- **RAG應用**: RAG技術的實際應用案例
- **OCR**: 光學字符識別相關技術
- **LLM Router**: 模型路由、多模型協作系統
- **其他**: 不屬於以上任何類別

請以JSON格式返回分類結果，包含主題和信心分數(0-1)。

範例輸出：
` + "```json" + `
{
  "topic": "LLM架構",
  "confidence": 0.95,
  "reasoning": "論文提出新的transformer架構變體"
}
` + "```"

// abstractLimit truncates long abstracts before prompting.
const abstractLimit = 500

// Decision is one classification outcome. Source records whether the label
// came from the model or the keyword fallback.
type Decision struct {
	Topic      paper.Topic
	Confidence float64
	Source     string // "generated" or "heuristic"
}

// Categorizer assigns each candidate exactly one Topic. Model failures fall
// back to deterministic keyword rules, so Categorize never returns an error.
type Categorizer struct {
	exec   *llm.Executor
	model  string
	logger *log.Logger
}

func New(gen llm.Generator) *Categorizer {
	return &Categorizer{
		exec:   llm.NewExecutor(gen),
		model:  llm.DefaultModel,
		logger: log.Default(),
	}
}

func (c *Categorizer) SetLogger(l *log.Logger) { c.logger = l }
func (c *Categorizer) SetModel(model string)   { c.model = model }

type classifyResponse struct {
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Categorize labels one candidate. Every input gets a topic; unknown labels
// from the model collapse to 其他.
func (c *Categorizer) Categorize(ctx context.Context, cand paper.Candidate) Decision {
	abstract := cand.Abstract
	if runes := []rune(abstract); len(runes) > abstractLimit {
		abstract = string(runes[:abstractLimit])
	}
	prompt := fmt.Sprintf("論文資訊：\n\n標題: %s\n類別: %s\n摘要: %s\n\n請分類此論文的主題。",
		cand.Title, cand.PrimaryCategory, abstract)

	var resp classifyResponse
	_, err := c.exec.RunJSON(ctx, "categorize", llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   1024,
	}, &resp, func() error {
		if strings.TrimSpace(resp.Topic) == "" {
			return fmt.Errorf("topic is required")
		}
		return nil
	})
	if err != nil {
		c.logger.Printf("categorize: model failed for %s, using heuristics: %v", cand.ID, err)
		return Decision{Topic: Heuristic(cand), Source: "heuristic"}
	}
	return Decision{Topic: paper.ParseTopic(resp.Topic), Confidence: resp.Confidence, Source: "generated"}
}

// Heuristic is the deterministic keyword fallback. Rules are checked in
// fixed priority order over the lowercased title plus abstract, so the first
// matching family wins.
func Heuristic(cand paper.Candidate) paper.Topic {
	text := strings.ToLower(cand.Title + " " + cand.Abstract)
	containsAny := func(kws ...string) bool {
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}

	if containsAny("rag", "retrieval-augmented", "retrieval augmented") {
		if containsAny("improve", "enhancement", "optimization", "architecture") {
			return paper.TopicRAGImprovement
		}
		return paper.TopicRAGApplication
	}
	if containsAny("ocr", "optical character", "text recognition") {
		return paper.TopicOCR
	}
	if containsAny("routing", "router", "model selection", "mixture of experts") {
		return paper.TopicLLMRouter
	}
	if containsAny("transformer", "attention", "architecture", "training", "pretraining") {
		return paper.TopicLLMArchitecture
	}
	if containsAny("llm", "language model", "gpt", "bert") {
		return paper.TopicLLMApplication
	}
	return paper.TopicOther
}

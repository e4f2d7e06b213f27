package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/omarwh/finsent/internal/domain"
	"github.com/omarwh/finsent/internal/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"

	defaultOpenAIModel = "gpt-4o-mini"
	defaultGroqModel   = "llama3-8b-8192"

	openAIBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"

	maxRetries = 3
)

// Config selects the LLM provider and credentials for an analyzer.
// Zero-valued fields fall back to provider defaults.
type Config struct {
	Provider     string
	ModelName    string
	OpenAIAPIKey string
	GroqAPIKey   string
}

// EntitySentiment is the dual sentiment verdict for a single entity
// mentioned in an article.
type EntitySentiment struct {
	EntityName         string                `json:"entity_name"`
	EntityType         domain.EntityType     `json:"entity_type"`
	FinancialSentiment domain.SentimentLabel `json:"financial_sentiment"`
	OverallSentiment   domain.SentimentLabel `json:"overall_sentiment"`
	Reasoning          string                `json:"reasoning"`
}

// Usage captures token counts and estimated cost for one LLM call.
type Usage struct {
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
	TotalCostUSD     float64
}

// Analyzer extracts entities and dual sentiment from article text using
// an OpenAI-compatible chat completions endpoint.
type Analyzer struct {
	client   *resty.Client
	provider string
	model    string
	endpoint string
	log      *logger.Logger
}

// New creates an Analyzer for the configured provider.
// Parameters:
//   - cfg: provider, model and API keys; empty fields use defaults.
//   - log: structured logger.
// Returns:
//   - *Analyzer: configured analyzer.
//   - error: non-nil when the provider is unknown or its key is missing.
func New(cfg Config, log *logger.Logger) (*Analyzer, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	var apiKey, baseURL, model string
	switch provider {
	case ProviderOpenAI:
		apiKey = cfg.OpenAIAPIKey
		baseURL = openAIBaseURL
		model = defaultOpenAIModel
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found; provide it in the request or configuration")
		}
	case ProviderGroq:
		apiKey = cfg.GroqAPIKey
		baseURL = groqBaseURL
		model = defaultGroqModel
		if apiKey == "" {
			return nil, fmt.Errorf("Groq API key not found; provide it in the request or configuration")
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s, choose %q or %q", provider, ProviderOpenAI, ProviderGroq)
	}
	if cfg.ModelName != "" {
		model = cfg.ModelName
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	return &Analyzer{
		client:   client,
		provider: provider,
		model:    model,
		endpoint: baseURL + "/chat/completions",
		log:      log,
	}, nil
}

// Provider returns the configured provider name.
func (a *Analyzer) Provider() string {
	return a.provider
}

// Model returns the configured model name.
func (a *Analyzer) Model() string {
	return a.model
}

const extractionPrompt = `You are a highly precise financial analyst. Your task is to extract **only legitimate companies and cryptocurrencies** from the provided text and analyze them from two different perspectives: **financial sentiment** and **overall sentiment**.

**CRITICAL RULES:**
1. **RESOLVE FULL ENTITY NAME:** You MUST return the full, official name of the entity (e.g., "IBM" becomes "International Business Machines").
2. **DO NOT EXTRACT LOCATIONS:** Ignore countries, cities, etc.
3. **EMPTY LIST IS VALID:** If you find no valid entities, return an empty list.

**RULES FOR DUAL SENTIMENT ANALYSIS:**
1. **Financial Sentiment:** Strictly about quantitative performance (stocks, earnings). One of "positive", "negative", "neutral".
2. **Overall Sentiment:** About qualitative, operational news (products, partnerships). One of "positive", "negative", "neutral".

**OUTPUT FORMAT:**
Respond with a single JSON object and nothing else:
{"entities": [{"entity_name": "...", "entity_type": "company|crypto", "financial_sentiment": "...", "overall_sentiment": "...", "reasoning": "..."}]}
It is critical that every entity object in your JSON output contains all required fields.`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type textAnalysis struct {
	Entities []EntitySentiment `json:"entities"`
}

// Analyze extracts entity sentiments from article text. Responses that
// fail validation are retried up to three times; if every attempt fails
// validation the result is empty rather than an error, so one stubborn
// article cannot stall a run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: cleaned article text.
// Returns:
//   - []EntitySentiment: extracted entities, possibly empty.
//   - *Usage: token usage for the successful call, nil when none succeeded.
//   - error: non-nil only for transport or API failures.
func (a *Analyzer) Analyze(ctx context.Context, text string) ([]EntitySentiment, *Usage, error) {
	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var resp chatResponse
		httpResp, err := a.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&resp).
			Post(a.endpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("LLM request failed: %w", err)
		}
		if httpResp.IsError() {
			msg := httpResp.String()
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return nil, nil, fmt.Errorf("LLM API returned status %d: %s", httpResp.StatusCode(), msg)
		}
		if len(resp.Choices) == 0 {
			return nil, nil, fmt.Errorf("LLM response contained no choices")
		}

		usage := &Usage{
			TotalTokens:      resp.Usage.TotalTokens,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalCostUSD:     a.estimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		}

		entities, err := parseEntities(resp.Choices[0].Message.Content)
		if err != nil {
			a.log.WithError(err).
				Warnf("Entity extraction validation failed (attempt %d/%d)", attempt, maxRetries)
			if attempt >= maxRetries {
				return []EntitySentiment{}, nil, nil
			}
			continue
		}
		return entities, usage, nil
	}
	return []EntitySentiment{}, nil, nil
}

// parseEntities extracts the JSON object from the model output and
// validates every entity against the allowed enums.
func parseEntities(content string) ([]EntitySentiment, error) {
	jsonStr, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var analysis textAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	for i, entity := range analysis.Entities {
		if strings.TrimSpace(entity.EntityName) == "" {
			return nil, fmt.Errorf("entity %d has an empty name", i)
		}
		if !domain.ValidEntityType(entity.EntityType) {
			return nil, fmt.Errorf("entity %q has invalid type %q", entity.EntityName, entity.EntityType)
		}
		if !domain.ValidSentimentLabel(entity.FinancialSentiment) {
			return nil, fmt.Errorf("entity %q has invalid financial sentiment %q", entity.EntityName, entity.FinancialSentiment)
		}
		if !domain.ValidSentimentLabel(entity.OverallSentiment) {
			return nil, fmt.Errorf("entity %q has invalid overall sentiment %q", entity.EntityName, entity.OverallSentiment)
		}
		if strings.TrimSpace(entity.Reasoning) == "" {
			return nil, fmt.Errorf("entity %q is missing reasoning", entity.EntityName)
		}
	}

	if analysis.Entities == nil {
		analysis.Entities = []EntitySentiment{}
	}
	return analysis.Entities, nil
}

// extractJSON finds the first balanced JSON object in the content.
// Models sometimes wrap the object in prose or markdown fences.
func extractJSON(content string) (string, error) {
	jsonStart := strings.Index(content, "{")
	if jsonStart == -1 {
		return "", fmt.Errorf("no JSON found in response")
	}

	braceCount := 0
	jsonEnd := -1
findJSON:
	for i := jsonStart; i < len(content); i++ {
		switch content[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				jsonEnd = i + 1
				break findJSON
			}
		}
	}
	if jsonEnd == -1 {
		return "", fmt.Errorf("incomplete JSON in response")
	}
	return content[jsonStart:jsonEnd], nil
}

// Per-million-token prices, USD. Groq usage is logged with zero cost.
var openAIPrices = map[string]struct{ prompt, completion float64 }{
	"gpt-4o-mini": {0.15, 0.60},
	"gpt-4o":      {2.50, 10.00},
	"gpt-4-turbo": {10.00, 30.00},
}

func (a *Analyzer) estimateCost(promptTokens, completionTokens int) float64 {
	if a.provider != ProviderOpenAI {
		return 0
	}
	price, ok := openAIPrices[a.model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1e6*price.prompt + float64(completionTokens)/1e6*price.completion
}

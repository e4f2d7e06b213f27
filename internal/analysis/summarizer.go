package analysis

import (
	"context"
	"encoding/json"
	"fmt"
)

// EntitySummary is a structured synthesis of all reasoning snippets
// recorded for one entity.
type EntitySummary struct {
	PositiveFinancial []string `json:"positive_financial"`
	NegativeFinancial []string `json:"negative_financial"`
	NeutralFinancial  []string `json:"neutral_financial"`
	PositiveOverall   []string `json:"positive_overall"`
	NegativeOverall   []string `json:"negative_overall"`
	NeutralOverall    []string `json:"neutral_overall"`
	FinalSummary      string   `json:"final_summary"`
}

const summaryPrompt = `You are an expert financial analyst. You will be given a list of reasoning snippets from multiple news articles about a specific company or cryptocurrency. Your task is to synthesize these snippets into a clear, structured summary.

Analyze all the provided reasons and categorize the key points into six lists:
1. **Positive Financial:** Reasons related to stock growth, good earnings, etc.
2. **Negative Financial:** Reasons related to stock decline, poor earnings, etc.
3. **Neutral Financial:** Factual financial statements without clear positive or negative sentiment.
4. **Positive Overall:** Reasons related to successful products, partnerships, good decisions, etc.
5. **Negative Overall:** Reasons related to failed projects, legal issues, poor decisions, etc.
6. **Neutral Overall:** Factual statements about operations, announcements, or collaborations without clear positive or negative sentiment.

Finally, provide a brief, one or two-sentence final_summary of the entity's overall position based on the balance of the points.

Do not invent new information. Base your summary *only* on the provided reasoning snippets.

Respond with a single JSON object and nothing else:
{"positive_financial": [], "negative_financial": [], "neutral_financial": [], "positive_overall": [], "negative_overall": [], "neutral_overall": [], "final_summary": "..."}
It is critical that your final JSON object includes all fields, especially final_summary.`

// Summarize synthesizes reasoning snippets into a structured summary.
// Invalid responses are retried up to three times; unlike Analyze, a
// summary that never validates is an error because the caller has
// nothing useful to return.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entityName: entity the snippets describe.
//   - reasoningList: formatted reasoning snippets, one per line.
// Returns:
//   - *EntitySummary: validated summary.
//   - error: non-nil for transport failures or persistent invalid output.
func (a *Analyzer) Summarize(ctx context.Context, entityName, reasoningList string) (*EntitySummary, error) {
	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: summaryPrompt},
			{Role: "user", Content: fmt.Sprintf("Please summarize the following reasoning points for %s:\n\n%s", entityName, reasoningList)},
		},
		Temperature: 0,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var resp chatResponse
		httpResp, err := a.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&resp).
			Post(a.endpoint)
		if err != nil {
			return nil, fmt.Errorf("LLM request failed: %w", err)
		}
		if httpResp.IsError() {
			msg := httpResp.String()
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return nil, fmt.Errorf("LLM API returned status %d: %s", httpResp.StatusCode(), msg)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("LLM response contained no choices")
		}

		summary, err := parseSummary(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			a.log.WithError(err).
				Warnf("Summary validation failed (attempt %d/%d)", attempt, maxRetries)
			continue
		}
		return summary, nil
	}
	return nil, fmt.Errorf("failed to generate a valid summary after %d attempts: %w", maxRetries, lastErr)
}

func parseSummary(content string) (*EntitySummary, error) {
	jsonStr, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var summary EntitySummary
	if err := json.Unmarshal([]byte(jsonStr), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if summary.FinalSummary == "" {
		return nil, fmt.Errorf("summary is missing final_summary")
	}

	// JSON nulls become empty slices so clients always see all six lists.
	for _, list := range []*[]string{
		&summary.PositiveFinancial, &summary.NegativeFinancial, &summary.NeutralFinancial,
		&summary.PositiveOverall, &summary.NegativeOverall, &summary.NeutralOverall,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
	return &summary, nil
}

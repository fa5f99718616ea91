// Package aiassist wraps a Gemini model to draft amendment suggestions
// for drift findings. It is opt-in: callers construct an Assistant only
// when an API key is configured, and every Explain/ExplainAll call takes a
// context so request cancellation propagates normally.
package aiassist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wch1125/proviso/internal/drift"
)

// Assistant drafts natural-language explanations and DSL amendment
// snippets for drift findings that the pattern-matching detector in
// internal/drift flagged but could not phrase cleanly on its own.
type Assistant struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates an Assistant backed by the given Gemini API key.
func New(ctx context.Context, apiKey string) (*Assistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("aiassist: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("aiassist: failed to create genai client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.0-flash-exp")
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}
	model.ResponseMIMEType = "application/json"

	return &Assistant{client: client, model: model}, nil
}

// Close releases the underlying client connection.
func (a *Assistant) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Suggestion is the structured response requested from the model for a
// single drift finding.
type Suggestion struct {
	Explanation string  `json:"explanation"`
	Amendment   string  `json:"amendment"`
	Confidence  float64 `json:"confidence"`
}

const systemPrompt = `You are an expert credit agreement drafter reviewing drift between
a rendered covenant document and an externally edited version of that document.

Given a single drift finding (section title, category, expected text, and actual text),
respond with a JSON object of the shape:
{
  "explanation": "one or two sentences describing what changed and why it matters",
  "amendment": "a single ProViso AMENDMENT statement that would bring the source in line with the actual text, or empty if none applies",
  "confidence": 0.0 to 1.0
}

Respond with the JSON object only, no markdown fencing and no surrounding commentary.`

// Explain asks the model to describe a single drift finding and draft
// the amendment statement that would reconcile it.
func (a *Assistant) Explain(ctx context.Context, f drift.Finding) (*Suggestion, error) {
	if a == nil || a.model == nil {
		return nil, fmt.Errorf("aiassist: assistant is not initialized")
	}

	a.model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	userPrompt := fmt.Sprintf(`Section: %s
Element type: %s
Category: %s
Severity: %s
Expected: %s
Actual: %s`, f.SectionTitle, f.ElementType, f.Category, f.Severity, f.Expected, f.Actual)

	resp, err := a.model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return nil, fmt.Errorf("aiassist: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("aiassist: empty response")
	}

	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return nil, fmt.Errorf("aiassist: unexpected response part type %T", part)
	}

	var out Suggestion
	if err := json.Unmarshal([]byte(cleanJSON(string(text))), &out); err != nil {
		return nil, fmt.Errorf("aiassist: parse model response: %w", err)
	}
	return &out, nil
}

// ExplainAll calls Explain for each finding in order, skipping (not
// failing) any finding the model can't produce a suggestion for.
func (a *Assistant) ExplainAll(ctx context.Context, findings []drift.Finding) []Suggestion {
	var out []Suggestion
	for _, f := range findings {
		s, err := a.Explain(ctx, f)
		if err != nil {
			continue
		}
		out = append(out, *s)
	}
	return out
}

func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

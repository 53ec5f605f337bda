package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ward/internal/event"
	"ward/internal/llm"
)

// Completer is the text-generation capability the filter depends on.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Candidate is one raw item from a single source, discarded after merge.
type Candidate struct {
	Text   string
	Source string
	URL    string
}

// Target is a sub-entity a candidate could belong to.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Constraints bound the rewrite the model produces.
type Constraints struct {
	MaxSummaryChars int
	Style           string
}

// Judgment is the structured decision for one candidate.
type Judgment struct {
	Relevant   bool    `json:"is_relevant"`
	TargetID   string  `json:"target_id"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// Filter scores candidates against a confidence threshold.
type Filter struct {
	completer Completer
	threshold float64
}

// NewFilter builds a Filter. Threshold outside (0,1] falls back to 0.65.
func NewFilter(completer Completer, threshold float64) *Filter {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.65
	}
	return &Filter{completer: completer, threshold: threshold}
}

// Threshold returns the configured acceptance threshold.
func (f *Filter) Threshold() float64 {
	return f.threshold
}

// Judge scores one candidate. An error means the judgment was unusable;
// callers drop and count it without escalating.
func (f *Filter) Judge(ctx context.Context, candidate Candidate, targets []Target, constraints Constraints) (*Judgment, error) {
	text := strings.TrimSpace(candidate.Text)
	if text == "" {
		return nil, fmt.Errorf("judge: empty candidate text")
	}

	userPrompt, err := buildJudgmentInput(candidate, targets, constraints)
	if err != nil {
		return nil, err
	}
	content, err := f.completer.CompleteJSON(ctx, judgmentPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}

	var judgment Judgment
	if err := llm.DecodeJSON(content, &judgment); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	judgment.TargetID = strings.TrimSpace(judgment.TargetID)
	judgment.Title = strings.TrimSpace(judgment.Title)
	judgment.Summary = strings.TrimSpace(judgment.Summary)
	if judgment.Confidence < 0 {
		judgment.Confidence = 0
	}
	if judgment.Confidence > 1 {
		judgment.Confidence = 1
	}

	if judgment.Relevant && !validTarget(judgment.TargetID, targets) {
		return nil, fmt.Errorf("judge: unknown target %q", judgment.TargetID)
	}
	return &judgment, nil
}

// Accepted applies the acceptance rule: relevant and at or above the
// threshold.
func (f *Filter) Accepted(j *Judgment) bool {
	return j != nil && j.Relevant && j.Confidence >= f.threshold
}

// ExtractEvents performs bulk event extraction from raw source text for
// one neighborhood. Invalid entries are discarded before return.
func (f *Filter) ExtractEvents(ctx context.Context, rawText, neighborhoodName, localDate string) ([]event.Event, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, nil
	}

	userPrompt := fmt.Sprintf("Neighborhood: %s\nToday (local): %s\n\nSource text:\n%s",
		neighborhoodName, localDate, rawText)
	content, err := f.completer.CompleteJSON(ctx, extractionPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("extract events: %w", err)
	}

	var payload struct {
		Events []event.Event `json:"events"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("extract events: %w", err)
	}
	return event.Validate(payload.Events), nil
}

func buildJudgmentInput(candidate Candidate, targets []Target, constraints Constraints) (string, error) {
	input := struct {
		Text    string  `json:"text"`
		Source  string  `json:"source,omitempty"`
		URL     string  `json:"url,omitempty"`
		Targets []Target `json:"targets"`
		MaxLen  int     `json:"max_summary_chars,omitempty"`
		Style   string  `json:"style,omitempty"`
	}{
		Text:    candidate.Text,
		Source:  candidate.Source,
		URL:     candidate.URL,
		Targets: targets,
		MaxLen:  constraints.MaxSummaryChars,
		Style:   constraints.Style,
	}
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("judge: marshal input: %w", err)
	}
	return string(data), nil
}

func validTarget(id string, targets []Target) bool {
	for _, t := range targets {
		if t.ID == id {
			return true
		}
	}
	return false
}

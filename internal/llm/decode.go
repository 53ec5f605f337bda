package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeJSON parses model output into v, tolerating markdown code fences
// and leading prose some providers wrap around the payload.
func DecodeJSON(content string, v any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("decode llm json: empty content")
	}

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}

	// Fall back to the first balanced JSON object or array in the text.
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return fmt.Errorf("decode llm json: no JSON payload in %q", summarize([]byte(content)))
	}
	end := strings.LastIndexAny(content, "}]")
	if end <= start {
		return fmt.Errorf("decode llm json: unbalanced payload in %q", summarize([]byte(content)))
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), v); err != nil {
		return fmt.Errorf("decode llm json: %w", err)
	}
	return nil
}

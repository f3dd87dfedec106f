package recognize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseCardJSON parses the JSON response from the vision model
func parseCardJSON(text string) (*Card, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var attrs map[string]any
	if err := json.Unmarshal([]byte(text), &attrs); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// Models key their answers inconsistently, so each identity field
	// is read through a list of known aliases.
	card := &Card{
		Name:       stringField(attrs, "name", "card_name", "cardname", "pokemon_name"),
		SetName:    stringField(attrs, "set", "set_name", "expansion"),
		Number:     stringField(attrs, "number", "card_number", "card_id"),
		Rarity:     stringField(attrs, "rarity"),
		Attributes: attrs,
	}

	if card.Name == "" {
		return nil, ErrUnidentified
	}

	return card, nil
}

// stringField returns the first non-empty string value found under any of
// the given keys.
func stringField(attrs map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := attrs[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

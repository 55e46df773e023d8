package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*([\\[{][\\s\\S]*?[\\]}])\\s*```")

// rawItem mirrors the JSON shape the extraction prompt requests. Fields stay
// loose here; normalization happens in the service.
type rawItem struct {
	ProductName string   `json:"product_name"`
	Unit        string   `json:"unit"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Confidence  *float64 `json:"confidence"`
}

// parseItems recovers a JSON array of items from model output that may wrap
// the payload in markdown fences or prose. Strategies, in order: a fenced
// json block, the first balanced array, the first balanced object, and a
// last-resort first-brace-to-last-brace slice. A lone object is treated as a
// one-element array.
func parseItems(text string) ([]rawItem, error) {
	if match := fencedBlock.FindStringSubmatch(text); match != nil {
		if items, err := decodeItems(match[1]); err == nil {
			return items, nil
		}
	}

	if candidate := findBalanced(text, '[', ']'); candidate != "" {
		if items, err := decodeItems(candidate); err == nil {
			return items, nil
		}
	}

	if candidate := findBalanced(text, '{', '}'); candidate != "" {
		if items, err := decodeItems(candidate); err == nil {
			return items, nil
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if items, err := decodeItems(text[start : end+1]); err == nil {
			return items, nil
		}
	}

	return nil, fmt.Errorf("no JSON object or array found in model response")
}

func decodeItems(candidate string) ([]rawItem, error) {
	trimmed := strings.TrimSpace(candidate)
	if strings.HasPrefix(trimmed, "[") {
		var items []rawItem
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item rawItem
	if err := json.Unmarshal([]byte(trimmed), &item); err != nil {
		return nil, err
	}
	return []rawItem{item}, nil
}

// findBalanced returns the first substring spanning a balanced pair of the
// given delimiters, or "" when none closes.
func findBalanced(text string, open, close byte) string {
	start := -1
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case open:
			if start == -1 {
				start = i
			}
			depth++
		case close:
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stocklens/internal/models"
)

// Service runs product extraction against a configurable provider.
type Service struct {
	provider Provider
	model    string
}

// NewService selects a provider by name. An empty name falls back to the
// EXTRACTION_PROVIDER environment variable, then to ollama.
func NewService(provider, model string) (*Service, error) {
	if provider == "" {
		provider = os.Getenv("EXTRACTION_PROVIDER")
		if provider == "" {
			provider = "ollama"
		}
	}

	var p Provider
	switch provider {
	case "gemini":
		p = NewGemini()
	case "openai":
		p = NewOpenAI()
	case "ollama":
		p = NewOllama()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	if model == "" {
		model = defaultModel(provider)
	}
	return &Service{provider: p, model: model}, nil
}

// NewServiceWithProvider wires an explicit provider, used by tests.
func NewServiceWithProvider(p Provider, model string) *Service {
	return &Service{provider: p, model: model}
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o-mini"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// ExtractProducts analyzes the image and returns normalized candidate items
// in model output order, truncated to maxItems. Items without a product
// name are dropped; confidence is clamped to [0,1]; unknown categories
// default to Food, matching the store's historical behavior.
func (s *Service) ExtractProducts(ctx context.Context, image []byte, mimeType string, maxItems int) ([]models.ExtractionResult, error) {
	if maxItems <= 0 {
		maxItems = models.DefaultMaxItems
	}

	raw, err := s.provider.ExtractText(ctx, Request{
		Model:       s.model,
		Temperature: 0.1,
		Prompt:      buildPrompt(),
		Image:       image,
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, err
	}

	items, err := parseItems(raw)
	if err != nil {
		snippet := raw
		if len(snippet) > 2000 {
			snippet = snippet[:2000] + "..."
		}
		return nil, fmt.Errorf("failed to extract JSON from model response: %w; response snippet: %s", err, snippet)
	}

	if len(items) > maxItems {
		items = items[:maxItems]
	}

	results := make([]models.ExtractionResult, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ProductName) == "" {
			continue
		}
		result := models.ExtractionResult{
			ProductName: strings.TrimSpace(item.ProductName),
			Unit:        strings.TrimSpace(item.Unit),
			Description: strings.TrimSpace(item.Description),
			Category:    models.Category(strings.TrimSpace(item.Category)),
		}
		if !result.Category.Valid() {
			result.Category = models.CategoryFood
		}
		if item.Confidence != nil {
			result.Confidence = *item.Confidence
		}
		if result.Confidence < 0 {
			result.Confidence = 0
		}
		if result.Confidence > 1 {
			result.Confidence = 1
		}
		results = append(results, result)
	}

	slog.Info("extraction complete", "model", s.model, "detected", len(results))
	return results, nil
}

func buildPrompt() string {
	categories := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		categories[i] = string(c)
	}

	return fmt.Sprintf(`You are an assistant with strong visual reasoning helping a shopkeeper record inventory.
Analyze the product photo and return a JSON array of detected items (even if only one). For each item include:

- product_name
- unit (e.g., "500g", "1L", "12pcs")
- description (short text)
- category (one of: %s)
- confidence (0 to 1, estimate based on clarity and completeness)

If uncertain, lower the confidence score.
Return JSON only (an array of objects), no prose, no markdown.`, strings.Join(categories, ", "))
}

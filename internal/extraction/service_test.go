package extraction

import (
	"context"
	"errors"
	"testing"

	"stocklens/internal/models"
)

type staticProvider struct {
	response string
	err      error
	lastReq  Request
}

func (p *staticProvider) ExtractText(ctx context.Context, req Request) (string, error) {
	p.lastReq = req
	return p.response, p.err
}

func TestExtractProductsNormalizesItems(t *testing.T) {
	provider := &staticProvider{response: `[
		{"product_name":" Soap ","unit":"1pc","category":"Hygiene","confidence":0.9},
		{"product_name":"","unit":"1pc","category":"Food","confidence":0.5},
		{"product_name":"Mystery","category":"Gadgets","confidence":1.7},
		{"product_name":"Faint","category":"Drinks","confidence":-0.2}
	]`}
	service := NewServiceWithProvider(provider, "test-model")

	results, err := service.ExtractProducts(context.Background(), []byte("img"), "image/jpeg", 10)
	if err != nil {
		t.Fatalf("ExtractProducts failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected nameless item dropped, got %d results", len(results))
	}
	if results[0].ProductName != "Soap" {
		t.Errorf("expected trimmed name, got %q", results[0].ProductName)
	}
	if results[1].Category != models.CategoryFood {
		t.Errorf("unknown category must default to Food, got %s", results[1].Category)
	}
	if results[1].Confidence != 1 {
		t.Errorf("confidence must clamp to 1, got %f", results[1].Confidence)
	}
	if results[2].Confidence != 0 {
		t.Errorf("confidence must clamp to 0, got %f", results[2].Confidence)
	}
}

func TestExtractProductsTruncatesToMaxItems(t *testing.T) {
	provider := &staticProvider{response: `[
		{"product_name":"A","category":"Food","confidence":0.5},
		{"product_name":"B","category":"Food","confidence":0.5},
		{"product_name":"C","category":"Food","confidence":0.5}
	]`}
	service := NewServiceWithProvider(provider, "test-model")

	results, err := service.ExtractProducts(context.Background(), []byte("img"), "", 2)
	if err != nil {
		t.Fatalf("ExtractProducts failed: %v", err)
	}
	if len(results) != 2 || results[0].ProductName != "A" || results[1].ProductName != "B" {
		t.Errorf("expected first 2 items kept in order, got %+v", results)
	}
}

func TestExtractProductsPropagatesProviderError(t *testing.T) {
	provider := &staticProvider{err: errors.New("model unavailable")}
	service := NewServiceWithProvider(provider, "test-model")
	if _, err := service.ExtractProducts(context.Background(), []byte("img"), "", 10); err == nil {
		t.Error("expected provider error to propagate")
	}
}

func TestExtractProductsForwardsImage(t *testing.T) {
	provider := &staticProvider{response: `[]`}
	service := NewServiceWithProvider(provider, "test-model")
	if _, err := service.ExtractProducts(context.Background(), []byte("jpegdata"), "image/jpeg", 10); err != nil {
		t.Fatalf("ExtractProducts failed: %v", err)
	}
	if string(provider.lastReq.Image) != "jpegdata" {
		t.Errorf("image not forwarded to provider")
	}
	if provider.lastReq.Model != "test-model" {
		t.Errorf("model not forwarded, got %q", provider.lastReq.Model)
	}
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	if _, err := NewService("watson", ""); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

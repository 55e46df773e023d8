// Package extraction turns a product photo into candidate inventory items
// using a vision-capable LLM. Providers are interchangeable; the service
// normalizes whatever JSON the model produces.
package extraction

import "context"

// Request is what a provider needs for one extraction call.
type Request struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MIMEType    string
}

// Provider defines the interface for a vision LLM provider.
type Provider interface {
	ExtractText(ctx context.Context, req Request) (string, error)
}

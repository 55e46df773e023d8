package models

import (
	"fmt"
	"time"
)

// ConfidenceThreshold separates auto-accepted extractions from those that
// need manual review. Fixed by product decision, not configurable.
const ConfidenceThreshold = 0.85

// DefaultMaxItems caps how many items a single extraction call may return.
const DefaultMaxItems = 10

// Category classifies a captured product.
type Category string

const (
	CategoryFood        Category = "Food"
	CategoryMedicine    Category = "Medicine"
	CategoryDrinks      Category = "Drinks"
	CategoryHygiene     Category = "Hygiene"
	CategoryInsecticide Category = "Insecticide"
	CategoryCleanings   Category = "Cleanings"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryMedicine,
	CategoryDrinks,
	CategoryHygiene,
	CategoryInsecticide,
	CategoryCleanings,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ExtractionResult is a candidate product returned by the vision extraction
// service. It is ephemeral: an empty ID means it was never persisted.
type ExtractionResult struct {
	ID          string   `json:"id,omitempty"`
	ProductName string   `json:"product_name"`
	Unit        string   `json:"unit"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Confidence  float64  `json:"confidence"`
	ImageRef    string   `json:"image_url,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
}

// AutoAccept reports whether the result clears the confidence threshold.
func (r ExtractionResult) AutoAccept() bool {
	return r.Confidence >= ConfidenceThreshold
}

// ProductRecord is a persisted product capture with a stable identity.
type ProductRecord struct {
	ID          string    `json:"id"`
	ProductName string    `json:"product_name"`
	Unit        string    `json:"unit"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Confidence  float64   `json:"confidence"`
	ImageRef    string    `json:"image_url,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Result converts the record back into an extraction result, e.g. when a
// persisted product is re-opened for editing.
func (p ProductRecord) Result() ExtractionResult {
	return ExtractionResult{
		ID:          p.ID,
		ProductName: p.ProductName,
		Unit:        p.Unit,
		Description: p.Description,
		Category:    p.Category,
		Confidence:  p.Confidence,
		ImageRef:    p.ImageRef,
		SessionID:   p.SessionID,
	}
}

// SessionSummary describes one capture session in the server's directory.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Count     int       `json:"count"`
	LastSeen  time.Time `json:"last_seen"`
}

// ValidationError reports a required field missing or out of range in a
// manual edit. Raised client-side before any remote call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the fields an operator is allowed to edit.
func (r ExtractionResult) Validate() error {
	if r.ProductName == "" {
		return &ValidationError{Field: "product_name", Reason: "must not be empty"}
	}
	if r.Unit == "" {
		return &ValidationError{Field: "unit", Reason: "must not be empty"}
	}
	if !r.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", r.Category)}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: "must be between 0 and 1"}
	}
	return nil
}

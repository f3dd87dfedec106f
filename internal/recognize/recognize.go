// Package recognize identifies trading cards from rectified card images
// using a vision language model.
package recognize

import (
	"context"
	"errors"
)

// ErrUnidentified is returned when the model answered but no card name
// could be extracted from the response.
var ErrUnidentified = errors.New("could not identify card name from analysis")

// Card contains the identification extracted from a card image.
type Card struct {
	Name    string `json:"name"`
	SetName string `json:"set"`
	Number  string `json:"number"`
	Rarity  string `json:"rarity"`

	// Attributes holds the full response object from the model,
	// including fields this package does not interpret (HP, attacks,
	// special features).
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Recognizer defines the interface for card identification operations
type Recognizer interface {
	// IdentifyCard analyzes a rectified card image (PNG bytes) and
	// extracts its identity. hint, when non-empty, names a likely card
	// from perceptual hash matching and is folded into the prompt.
	IdentifyCard(ctx context.Context, imageData []byte, hint string) (*Card, error)
	// Close closes the recognizer and releases resources
	Close() error
}

package scanner

import (
	"time"

	"github.com/jonfio22/pokemon-card-scanner/internal/pricing"
)

// IdentifiedCard is the identity extracted by the recognition step.
type IdentifiedCard struct {
	Name   string `json:"name"`
	Set    string `json:"set,omitempty"`
	Number string `json:"number,omitempty"`
	Rarity string `json:"rarity,omitempty"`
}

// ScanResult is the full outcome of one scan. Collaborator failures after
// the decode boundary are reported in Error with Success false; the result
// itself is always produced.
type ScanResult struct {
	ScanID    string    `json:"scan_id"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`

	// MatchHint names the closest known card from the perceptual hash
	// index, when one was found.
	MatchHint string `json:"match_hint,omitempty"`

	// CardDetails is the raw attribute map returned by the vision model.
	CardDetails map[string]any `json:"card_details,omitempty"`

	IdentifiedCard *IdentifiedCard    `json:"identified_card,omitempty"`
	Pricing        *pricing.Valuation `json:"pricing,omitempty"`
}

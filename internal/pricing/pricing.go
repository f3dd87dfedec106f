// Package pricing estimates the market value of an identified card by
// querying several marketplace sources and merging their listings into one
// summary. Sources are unreliable by nature: any of them may fail, return
// nothing useful, or return garbage, and none of that aborts a valuation.
package pricing

import (
	"context"
	"time"
)

// Quote is a single price observation reported by one source.
type Quote struct {
	Title     string  `json:"title,omitempty"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition,omitempty"`
	SoldDate  string  `json:"sold_date,omitempty"`
	URL       string  `json:"link,omitempty"`
}

// Listings is a successful fetch from one source: zero or more quotes plus
// an optional informational note (for example when a marketplace cannot be
// scraped without API access).
type Listings struct {
	Quotes []Quote
	Note   string
}

// Source fetches raw price listings for a card from one marketplace.
// A fetch either succeeds (possibly with zero quotes) or fails; never both.
type Source interface {
	Name() string
	Fetch(ctx context.Context, cardName, setName string) (Listings, error)
}

// SourceReport is the per-source slice of a valuation: what was asked, what
// came back, and what went wrong. Error and Note are mutually exclusive.
type SourceReport struct {
	Source string   `json:"source"`
	Query  string   `json:"search_query,omitempty"`
	Quotes []Quote  `json:"results,omitempty"`
	Stats  *Summary `json:"stats,omitempty"`
	Note   string   `json:"note,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Summary aggregates every usable quote across all sources. Average is the
// plain arithmetic mean; Min <= Average <= Max always holds.
type Summary struct {
	Average    float64 `json:"average_price"`
	Min        float64 `json:"min_price"`
	Max        float64 `json:"max_price"`
	PriceRange float64 `json:"price_range"`
	Count      int     `json:"sample_size"`
}

// Estimate is the labeled heuristic fallback used when no source produced a
// usable quote. It is never presented as an observed price.
type Estimate struct {
	Price float64 `json:"price"`
	Note  string  `json:"note"`
}

// Valuation is the complete result of one get-value request.
type Valuation struct {
	CardName   string         `json:"card_name"`
	SetName    string         `json:"set_name,omitempty"`
	CardNumber string         `json:"card_number,omitempty"`
	FetchedAt  time.Time      `json:"timestamp"`
	Sources    []SourceReport `json:"sources"`
	Summary    *Summary       `json:"summary,omitempty"`
	Estimated  bool           `json:"estimated"`
	Estimate   *Estimate      `json:"estimate,omitempty"`
	FromCache  bool           `json:"from_cache"`
}

// summarize computes the aggregate statistics over a set of quotes.
// It returns nil for an empty set.
func summarize(quotes []Quote) *Summary {
	if len(quotes) == 0 {
		return nil
	}
	s := &Summary{Min: quotes[0].Price, Max: quotes[0].Price, Count: len(quotes)}
	var sum float64
	for _, q := range quotes {
		sum += q.Price
		if q.Price < s.Min {
			s.Min = q.Price
		}
		if q.Price > s.Max {
			s.Max = q.Price
		}
	}
	s.Average = sum / float64(len(quotes))
	s.PriceRange = s.Max - s.Min
	return s
}

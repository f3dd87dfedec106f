package pricing

import "context"

// CardmarketSource covers the European market. Cardmarket enforces strict
// anti-scraping measures, so without API credentials the source reports an
// informational note instead of listings.
type CardmarketSource struct{}

// NewCardmarketSource returns the Cardmarket placeholder source.
func NewCardmarketSource() *CardmarketSource { return &CardmarketSource{} }

func (s *CardmarketSource) Name() string { return "Cardmarket" }

// Fetch succeeds with zero quotes and a note; the site cannot be scraped
// without API access.
func (s *CardmarketSource) Fetch(ctx context.Context, cardName, setName string) (Listings, error) {
	return Listings{Note: "Cardmarket scraping requires API access"}, nil
}

package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const maxTCGPlayerResults = 5

// TCGPlayerSource scrapes the TCGPlayer product search for current listing
// prices. The search markup changes periodically; parsing is best effort.
type TCGPlayerSource struct {
	// BaseURL allows tests to point the source at a stub server.
	BaseURL string
	client  *http.Client
}

// NewTCGPlayerSource returns a source hitting the live TCGPlayer site.
func NewTCGPlayerSource() *TCGPlayerSource {
	return &TCGPlayerSource{
		BaseURL: "https://www.tcgplayer.com",
		client:  newScrapeClient(),
	}
}

func (s *TCGPlayerSource) Name() string { return "TCGPlayer" }

// Fetch searches TCGPlayer and parses up to five product listings.
func (s *TCGPlayerSource) Fetch(ctx context.Context, cardName, setName string) (Listings, error) {
	query := searchQuery(cardName, setName)
	searchURL := fmt.Sprintf("%s/search/pokemon/product?productLineName=pokemon&q=%s",
		s.BaseURL, url.QueryEscape(query))

	html, err := fetchHTML(ctx, s.client, searchURL)
	if err != nil {
		return Listings{}, fmt.Errorf("tcgplayer search: %w", err)
	}

	names := classTexts(html, "product-name")
	prices := classTexts(html, "product-price")
	conditions := classTexts(html, "condition")

	var quotes []Quote
	for i := 0; i < len(prices) && len(quotes) < maxTCGPlayerResults; i++ {
		price := ParsePrice(prices[i])
		if price <= 0 {
			continue
		}
		condition := textAt(conditions, i)
		if condition == "" {
			condition = "Unknown"
		}
		quotes = append(quotes, Quote{
			Title:     textAt(names, i),
			Price:     price,
			Condition: condition,
			URL:       searchURL,
		})
	}

	return Listings{Quotes: quotes}, nil
}

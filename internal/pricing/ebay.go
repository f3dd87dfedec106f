package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const maxEbayListings = 10

// EbaySource scrapes eBay completed-sale listings. Sold prices are the best
// available proxy for what a card actually trades at.
type EbaySource struct {
	// BaseURL allows tests to point the source at a stub server.
	BaseURL string
	client  *http.Client
}

// NewEbaySource returns a source hitting the live eBay site.
func NewEbaySource() *EbaySource {
	return &EbaySource{
		BaseURL: "https://www.ebay.com",
		client:  newScrapeClient(),
	}
}

func (s *EbaySource) Name() string { return "eBay" }

// Fetch queries eBay's sold-and-completed listing search and parses up to
// ten sold listings.
func (s *EbaySource) Fetch(ctx context.Context, cardName, setName string) (Listings, error) {
	query := searchQuery(cardName, setName) + " pokemon card"
	searchURL := fmt.Sprintf("%s/sch/i.html?_nkw=%s&_sacat=0&LH_Sold=1&LH_Complete=1",
		s.BaseURL, url.QueryEscape(query))

	html, err := fetchHTML(ctx, s.client, searchURL)
	if err != nil {
		return Listings{}, fmt.Errorf("ebay search: %w", err)
	}

	titles := classTexts(html, "s-item__title")
	prices := classTexts(html, "s-item__price")
	dates := classTexts(html, "s-item__endedDate")

	var quotes []Quote
	for i := 0; i < len(prices) && len(quotes) < maxEbayListings; i++ {
		price := ParsePrice(prices[i])
		if price <= 0 {
			continue
		}
		soldDate := textAt(dates, i)
		if soldDate == "" {
			soldDate = "Unknown"
		}
		quotes = append(quotes, Quote{
			Title:    textAt(titles, i),
			Price:    price,
			SoldDate: soldDate,
			URL:      searchURL,
		})
	}

	return Listings{Quotes: quotes}, nil
}

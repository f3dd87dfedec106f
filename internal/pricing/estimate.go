package pricing

import "strings"

// Heuristic multipliers for the last-resort estimate. These encode rough
// market knowledge only: which character names command a premium, and which
// set markers move a card between first-print and reprint pricing.
var (
	topTierNames = []string{"charizard", "lugia", "mewtwo", "rayquaza"}
	midTierNames = []string{"blastoise", "venusaur", "pikachu", "gyarados", "gengar"}

	premiumVariantTokens = []string{"ex", "gx", "vmax", "vstar"}

	firstPrintMarkers = []string{"1st edition", "first edition", "shadowless", "base set"}
	reprintMarkers    = []string{"unlimited"}
)

// EstimatePrice produces a heuristic price for a card when every source
// came back empty. The result is a rough ballpark and must always be
// surfaced as an estimate, never as an observed quote.
func EstimatePrice(cardName, setName string) Estimate {
	price := 5.0

	name := strings.ToLower(cardName)
	switch {
	case containsAny(name, topTierNames):
		price *= 10
	case containsAny(name, midTierNames):
		price *= 5
	}

	if hasToken(name, premiumVariantTokens) {
		price *= 6
	}
	if strings.Contains(name, "rare") {
		price *= 3
	}

	set := strings.ToLower(setName)
	if containsAny(set, firstPrintMarkers) {
		price *= 2.0
	}
	if containsAny(set, reprintMarkers) {
		price *= 0.8
	}

	if price < 1.0 {
		price = 1.0
	}

	return Estimate{
		Price: price,
		Note:  "heuristic estimate, no market listings found",
	}
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// hasToken reports whether any whitespace-separated token of s equals one
// of the markers. Substring matching would misfire on names like
// "Exeggutor" for the "ex" marker.
func hasToken(s string, markers []string) bool {
	for _, token := range strings.Fields(s) {
		token = strings.Trim(token, ".,()[]")
		for _, m := range markers {
			if token == m {
				return true
			}
		}
	}
	return false
}

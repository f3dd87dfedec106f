package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

// pricePattern matches the first price-looking run of digits in a noisy
// text fragment: an optional currency symbol, digits with optional
// thousands separators, and an optional two-digit decimal part.
var pricePattern = regexp.MustCompile(`[$€£]?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`)

// ParsePrice extracts a numeric price from an arbitrary text fragment such
// as an eBay listing title or a scraped price cell. It tolerates markup
// leftovers and surrounding text, and returns 0.0 when no price pattern is
// present.
func ParsePrice(text string) float64 {
	if text == "" {
		return 0
	}

	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return value
}

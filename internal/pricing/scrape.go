package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	scrapeUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// maxScrapeBody caps how much marketplace HTML is read per request.
	maxScrapeBody = 4 << 20
)

// newScrapeClient returns the HTTP client shared by scraping sources.
// Request deadlines come from context; the client timeout is a backstop.
func newScrapeClient() *http.Client {
	return &http.Client{Timeout: 12 * time.Second}
}

// fetchHTML performs a GET with browser-like headers and returns the body.
func fetchHTML(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

var (
	markupPattern = regexp.MustCompile(`<[^>]*>`)
	spacePattern  = regexp.MustCompile(`\s+`)

	classPatternMu sync.Mutex
	classPatterns  = map[string]*regexp.Regexp{}
)

// classPattern returns (and memoizes) a pattern matching the inner content
// of elements carrying the given CSS class.
func classPattern(class string) *regexp.Regexp {
	classPatternMu.Lock()
	defer classPatternMu.Unlock()
	p, ok := classPatterns[class]
	if !ok {
		p = regexp.MustCompile(`(?s)<[^>]+class="[^"]*\b` + regexp.QuoteMeta(class) + `\b[^"]*"[^>]*>(.*?)</`)
		classPatterns[class] = p
	}
	return p
}

// classTexts extracts the inner text of every element carrying the given
// CSS class. Marketplace pages are messy, so this works on raw bytes with a
// class-anchored pattern rather than a full DOM parse; nested markup inside
// the element is stripped.
func classTexts(html []byte, class string) []string {
	matches := classPattern(class).FindAllSubmatch(html, -1)

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		text := markupPattern.ReplaceAllString(string(m[1]), " ")
		text = spacePattern.ReplaceAllString(text, " ")
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts
}

// textAt returns texts[i] or the empty string when the index is out of
// range. Scraped field lists rarely line up perfectly.
func textAt(texts []string, i int) string {
	if i < 0 || i >= len(texts) {
		return ""
	}
	return texts[i]
}

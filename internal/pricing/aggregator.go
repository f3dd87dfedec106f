package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultSourceTimeout bounds each individual source fetch. Sources are
// independent; one slow marketplace must not hold the others hostage for
// longer than this.
const DefaultSourceTimeout = 10 * time.Second

// Aggregator queries every configured price source for a card and merges
// the results into a single Valuation. Sources are queried concurrently
// with per-source isolation: an error from one is recorded in its report
// and excluded from aggregation without cancelling its siblings.
type Aggregator struct {
	sources []Source
	cache   *Cache
	timeout time.Duration

	// limiters throttles calls per source as a courtesy to the
	// marketplaces, replacing a fixed inter-request sleep.
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	rateLimit rate.Limit
	rateBurst int

	group singleflight.Group
}

// NewAggregator wires the given sources to a shared valuation cache.
func NewAggregator(sources []Source, cache *Cache) *Aggregator {
	return &Aggregator{
		sources:   sources,
		cache:     cache,
		timeout:   DefaultSourceTimeout,
		limiters:  make(map[string]*rate.Limiter),
		rateLimit: rate.Every(time.Second),
		rateBurst: 1,
	}
}

// SetSourceTimeout overrides the per-source fetch timeout. Mainly for tests.
func (a *Aggregator) SetSourceTimeout(d time.Duration) {
	a.timeout = d
}

// SetCourtesyRate overrides the per-source rate limit. Mainly for tests.
func (a *Aggregator) SetCourtesyRate(limit rate.Limit, burst int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rateLimit = limit
	a.rateBurst = burst
	a.limiters = make(map[string]*rate.Limiter)
}

// GetValue returns the market valuation for a card, serving a live cached
// result when one exists. Concurrent callers asking for the same key while
// a fetch is outstanding share that single fetch instead of issuing
// duplicates. The returned error is non-nil only when ctx is done before a
// result exists; collaborator failures are recorded inside the Valuation.
func (a *Aggregator) GetValue(ctx context.Context, cardName, setName, cardNumber string) (*Valuation, error) {
	key := CacheKey(cardName, setName)

	if cached, ok := a.cache.Get(key); ok {
		hit := *cached
		hit.FromCache = true
		return &hit, nil
	}

	result, err, _ := a.group.Do(key, func() (any, error) {
		v := a.fetchAll(ctx, cardName, setName, cardNumber)
		a.cache.Put(key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := *result.(*Valuation)
	return &v, nil
}

// fetchAll fans out to every source, waits for all of them, and merges the
// usable quotes. Non-positive and unparseable prices were already dropped
// by the sources' parsers; a defensive filter here keeps the summary
// invariant independent of source behavior.
func (a *Aggregator) fetchAll(ctx context.Context, cardName, setName, cardNumber string) *Valuation {
	reports := make([]SourceReport, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			reports[i] = a.fetchOne(ctx, src, cardName, setName)
		}(i, src)
	}
	wg.Wait()

	var usable []Quote
	for _, r := range reports {
		if r.Error != "" {
			continue
		}
		for _, q := range r.Quotes {
			if q.Price > 0 {
				usable = append(usable, q)
			}
		}
	}

	v := &Valuation{
		CardName:   cardName,
		SetName:    setName,
		CardNumber: cardNumber,
		FetchedAt:  time.Now(),
		Sources:    reports,
		Summary:    summarize(usable),
	}

	if v.Summary == nil {
		est := EstimatePrice(cardName, setName)
		v.Estimated = true
		v.Estimate = &est
		slog.Info("No usable quotes, falling back to heuristic estimate",
			"card", cardName, "set", setName, "estimate", est.Price)
	}

	return v
}

// fetchOne queries a single source with its own timeout and rate limit.
// Failures never propagate; they become the source's report.
func (a *Aggregator) fetchOne(ctx context.Context, src Source, cardName, setName string) SourceReport {
	report := SourceReport{Source: src.Name(), Query: searchQuery(cardName, setName)}

	if err := a.limiter(src.Name()).Wait(ctx); err != nil {
		report.Error = err.Error()
		return report
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	listings, err := src.Fetch(fetchCtx, cardName, setName)
	if err != nil {
		slog.Warn("Price source failed", "source", src.Name(), "card", cardName, "error", err)
		report.Error = err.Error()
		return report
	}

	report.Quotes = listings.Quotes
	report.Note = listings.Note
	if len(report.Quotes) == 0 && report.Note == "" {
		report.Note = "no parseable listings found"
	}
	report.Stats = summarize(report.Quotes)
	return report
}

func (a *Aggregator) limiter(source string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[source]
	if !ok {
		l = rate.NewLimiter(a.rateLimit, a.rateBurst)
		a.limiters[source] = l
	}
	return l
}

func searchQuery(cardName, setName string) string {
	if setName == "" {
		return cardName
	}
	return cardName + " " + setName
}

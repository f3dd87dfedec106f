package pricing

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/time/rate"
)

// stubSource is a canned price source with a fetch counter and an optional
// response delay.
type stubSource struct {
	name     string
	listings Listings
	err      error
	delay    time.Duration

	mu    sync.Mutex
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, cardName, setName string) (Listings, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Listings{}, ctx.Err()
		}
	}
	if s.err != nil {
		return Listings{}, s.err
	}
	return s.listings, nil
}

func (s *stubSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func quotesAt(prices ...float64) []Quote {
	quotes := make([]Quote, len(prices))
	for i, p := range prices {
		quotes[i] = Quote{Title: "listing", Price: p}
	}
	return quotes
}

var _ = Describe("Aggregator", func() {
	var (
		aggregator *Aggregator
		valuation  *Valuation
		err        error
	)

	newAggregator := func(ttl time.Duration, srcs ...Source) *Aggregator {
		a := NewAggregator(srcs, NewCache(16, ttl))
		a.SetCourtesyRate(rate.Inf, 1)
		return a
	}

	JustBeforeEach(func() {
		valuation, err = aggregator.GetValue(context.Background(), "Charizard", "Base Set", "4/102")
	})

	When("sources return quotes and one source errors", func() {
		BeforeEach(func() {
			aggregator = newAggregator(time.Hour,
				&stubSource{name: "alpha", listings: Listings{Quotes: quotesAt(10, 20, 30)}},
				&stubSource{name: "beta", listings: Listings{Quotes: quotesAt(40)}},
				&stubSource{name: "gamma", err: errors.New("connection refused")},
			)
		})

		It("does not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("aggregates the union of usable quotes", func() {
			Expect(valuation.Summary).NotTo(BeNil())
			Expect(valuation.Summary.Average).To(Equal(25.0))
			Expect(valuation.Summary.Min).To(Equal(10.0))
			Expect(valuation.Summary.Max).To(Equal(40.0))
			Expect(valuation.Summary.Count).To(Equal(4))
		})

		It("records the failing source without failing the valuation", func() {
			var report SourceReport
			for _, r := range valuation.Sources {
				if r.Source == "gamma" {
					report = r
				}
			}
			Expect(report.Error).To(ContainSubstring("connection refused"))
			Expect(report.Quotes).To(BeEmpty())
		})

		It("is not flagged as estimated or cached", func() {
			Expect(valuation.Estimated).To(BeFalse())
			Expect(valuation.FromCache).To(BeFalse())
		})
	})

	When("a non-positive quote sneaks through a source", func() {
		BeforeEach(func() {
			aggregator = newAggregator(time.Hour,
				&stubSource{name: "alpha", listings: Listings{Quotes: quotesAt(0, -3, 12)}},
			)
		})

		It("excludes it from the summary", func() {
			Expect(valuation.Summary.Count).To(Equal(1))
			Expect(valuation.Summary.Average).To(Equal(12.0))
		})
	})

	When("every source comes back empty", func() {
		BeforeEach(func() {
			aggregator = newAggregator(time.Hour,
				&stubSource{name: "alpha"},
				&stubSource{name: "beta"},
			)
		})

		It("omits the summary", func() {
			Expect(valuation.Summary).To(BeNil())
		})

		It("substitutes a labeled heuristic estimate", func() {
			Expect(valuation.Estimated).To(BeTrue())
			Expect(valuation.Estimate).NotTo(BeNil())
			Expect(valuation.Estimate.Price).To(BeNumerically(">=", 1.0))
		})

		It("notes the empty sources instead of flagging errors", func() {
			for _, r := range valuation.Sources {
				Expect(r.Error).To(BeEmpty())
				Expect(r.Note).NotTo(BeEmpty())
			}
		})
	})

	When("the same card is requested twice within the TTL", func() {
		var source *stubSource

		BeforeEach(func() {
			source = &stubSource{name: "alpha", listings: Listings{Quotes: quotesAt(15)}}
			aggregator = newAggregator(time.Hour, source)
		})

		It("serves the second request from cache after a single fetch", func() {
			second, err := aggregator.GetValue(context.Background(), "Charizard", "Base Set", "4/102")
			Expect(err).NotTo(HaveOccurred())

			Expect(source.fetchCount()).To(Equal(1))
			Expect(valuation.FromCache).To(BeFalse())
			Expect(second.FromCache).To(BeTrue())
			Expect(second.Summary.Average).To(Equal(15.0))
		})
	})

	When("the cached entry has expired", func() {
		var source *stubSource

		BeforeEach(func() {
			source = &stubSource{name: "alpha", listings: Listings{Quotes: quotesAt(15)}}
			aggregator = newAggregator(50*time.Millisecond, source)
		})

		It("fetches fresh data", func() {
			time.Sleep(80 * time.Millisecond)

			second, err := aggregator.GetValue(context.Background(), "Charizard", "Base Set", "4/102")
			Expect(err).NotTo(HaveOccurred())

			Expect(source.fetchCount()).To(Equal(2))
			Expect(second.FromCache).To(BeFalse())
		})
	})

	When("different sets are requested for the same card name", func() {
		var source *stubSource

		BeforeEach(func() {
			source = &stubSource{name: "alpha", listings: Listings{Quotes: quotesAt(15)}}
			aggregator = newAggregator(time.Hour, source)
		})

		It("treats them as distinct cache keys", func() {
			_, err := aggregator.GetValue(context.Background(), "Charizard", "Jungle", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(source.fetchCount()).To(Equal(2))
		})
	})
})

var _ = Describe("in-flight deduplication", func() {
	It("collapses concurrent lookups for one card into a single fetch", func() {
		source := &stubSource{
			name:     "alpha",
			listings: Listings{Quotes: quotesAt(25, 35)},
			delay:    60 * time.Millisecond,
		}
		aggregator := NewAggregator([]Source{source}, NewCache(16, time.Hour))
		aggregator.SetCourtesyRate(rate.Inf, 1)

		const callers = 8
		results := make([]*Valuation, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		wg.Add(callers)
		for i := 0; i < callers; i++ {
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = aggregator.GetValue(context.Background(), "Charizard", "Base Set", "4/102")
			}(i)
		}
		wg.Wait()

		Expect(source.fetchCount()).To(Equal(1))
		for i := 0; i < callers; i++ {
			Expect(errs[i]).NotTo(HaveOccurred())
			Expect(results[i]).NotTo(BeNil())
			Expect(results[i].Summary.Average).To(Equal(30.0))
		}
	})
})

var _ = Describe("CacheKey", func() {
	It("joins name and set", func() {
		Expect(CacheKey("Charizard", "Base Set")).To(Equal("Charizard_Base Set"))
	})

	It("uses the unknown placeholder when the set is missing", func() {
		Expect(CacheKey("Charizard", "")).To(Equal("Charizard_unknown"))
	})
})

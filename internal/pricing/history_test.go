package pricing

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltHistory", func() {
	var (
		dbPath  string
		history *BoltHistory
	)

	valuationAt := func(fetchedAt time.Time, avg float64) *Valuation {
		return &Valuation{
			CardName:  "Charizard",
			SetName:   "Base Set",
			FetchedAt: fetchedAt,
			Summary:   &Summary{Average: avg, Min: avg, Max: avg, Count: 1},
		}
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "history.db")
		var err error
		history, err = NewBoltHistory(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if history != nil {
			history.Close()
		}
	})

	Describe("SaveValuation", func() {
		var err error

		JustBeforeEach(func() {
			err = history.SaveValuation("charizard_base set", valuationAt(time.Now(), 42.0))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should persist the valuation", func() {
			valuations, listErr := history.ListValuations("charizard_base set")
			Expect(listErr).NotTo(HaveOccurred())
			Expect(valuations).To(HaveLen(1))
			Expect(valuations[0].CardName).To(Equal("Charizard"))
			Expect(valuations[0].Summary.Average).To(Equal(42.0))
		})
	})

	Describe("ListValuations", func() {
		var (
			key        string
			valuations []*Valuation
			err        error
		)

		BeforeEach(func() {
			key = "charizard_base set"
		})

		JustBeforeEach(func() {
			valuations, err = history.ListValuations(key)
		})

		When("multiple valuations were recorded", func() {
			BeforeEach(func() {
				base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
				Expect(history.SaveValuation(key, valuationAt(base.Add(time.Hour), 50.0))).NotTo(HaveOccurred())
				Expect(history.SaveValuation(key, valuationAt(base, 40.0))).NotTo(HaveOccurred())
				Expect(history.SaveValuation(key, valuationAt(base.Add(2*time.Hour), 60.0))).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return them oldest first regardless of insert order", func() {
				Expect(valuations).To(HaveLen(3))
				Expect(valuations[0].Summary.Average).To(Equal(40.0))
				Expect(valuations[1].Summary.Average).To(Equal(50.0))
				Expect(valuations[2].Summary.Average).To(Equal(60.0))
			})
		})

		When("other cards were recorded under different keys", func() {
			BeforeEach(func() {
				Expect(history.SaveValuation("pikachu_jungle", valuationAt(time.Now(), 5.0))).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an empty list", func() {
				Expect(valuations).To(BeEmpty())
			})
		})
	})

	Describe("Close", func() {
		It("should not return an error", func() {
			err := history.Close()
			Expect(err).NotTo(HaveOccurred())
			history = nil
		})
	})
})

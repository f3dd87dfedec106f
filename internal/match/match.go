// Package match keeps a perceptual-hash index of known card artwork and
// offers best-guess hints for freshly rectified frames. Hints feed the
// recognition prompt; they never replace model identification.
package match

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/rivo/duplo"
)

// DefaultScoreThreshold rejects matches whose similarity score is worse
// (higher) than this value. Duplo scores are negative for close matches.
const DefaultScoreThreshold = -50.0

// Matcher indexes reference card images by visual hash.
type Matcher struct {
	mu        sync.RWMutex
	store     *duplo.Store
	threshold float64
}

// NewMatcher returns an empty index using DefaultScoreThreshold.
func NewMatcher() *Matcher {
	return &Matcher{
		store:     duplo.New(),
		threshold: DefaultScoreThreshold,
	}
}

// SetScoreThreshold overrides the score cutoff for BestMatch.
func (m *Matcher) SetScoreThreshold(threshold float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Add indexes a reference card image under its display name, typically
// "Name (Set)".
func (m *Matcher) Add(name string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("nil reference image for %q", name)
	}
	hash, _ := duplo.CreateHash(img)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Add(name, hash)
	return nil
}

// Size returns the number of indexed reference images.
func (m *Matcher) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Size()
}

// BestMatch returns the display name of the closest indexed card along
// with its score. ok is false when the index is empty or every candidate
// scores above the threshold.
func (m *Matcher) BestMatch(img image.Image) (name string, score float64, ok bool) {
	if img == nil {
		return "", 0, false
	}
	hash, _ := duplo.CreateHash(img)

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.store.Query(hash)
	if len(matches) == 0 {
		return "", 0, false
	}
	sort.Sort(matches)

	best := matches[0]
	if best.Score > m.threshold {
		return "", 0, false
	}
	name, _ = best.ID.(string)
	return name, best.Score, true
}

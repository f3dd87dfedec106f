package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"

	"github.com/jonfio22/pokemon-card-scanner/internal/pricing"
	"github.com/jonfio22/pokemon-card-scanner/internal/recognize"
	"github.com/jonfio22/pokemon-card-scanner/internal/vision"
)

// maxFallbackDim bounds the image sent to the recognizer when boundary
// detection found no card and the raw frame is used instead.
const maxFallbackDim = 1024

// Normalizer rectifies the card found in a camera frame.
type Normalizer interface {
	Normalize(frame image.Image) (*image.NRGBA, error)
}

// Hinter answers best-guess identities from previously indexed card
// images.
type Hinter interface {
	BestMatch(img image.Image) (name string, score float64, ok bool)
	Add(name string, img image.Image) error
}

// Valuer aggregates market prices for an identified card.
type Valuer interface {
	GetValue(ctx context.Context, cardName, setName, cardNumber string) (*pricing.Valuation, error)
}

// IDGenerator generates unique IDs for scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the scan pipeline: decode, rectify, hint, recognize,
// valuate. The hint index, history store and image storage are optional.
type Service struct {
	normalizer  Normalizer
	hinter      Hinter
	recognizer  recognize.Recognizer
	valuer      Valuer
	history     pricing.History
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(normalizer Normalizer, recognizer recognize.Recognizer, valuer Valuer) *Service {
	return &Service{
		normalizer:  normalizer,
		recognizer:  recognizer,
		valuer:      valuer,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// WithHinter attaches a perceptual hash index used for recognition hints.
func (s *Service) WithHinter(hinter Hinter) *Service {
	s.hinter = hinter
	return s
}

// WithHistory attaches a store recording every fresh valuation.
func (s *Service) WithHistory(history pricing.History) *Service {
	s.history = history
	return s
}

// WithStorage attaches a store keeping rectified card images.
func (s *Service) WithStorage(storage Storage) *Service {
	s.storage = storage
	return s
}

// WithDeps overrides the ID generator and time source for testing.
func (s *Service) WithDeps(idGen IDGenerator, timeSrc TimeSource) *Service {
	s.idGenerator = idGen
	s.timeSource = timeSrc
	return s
}

// ProcessScan runs the full pipeline on an uploaded frame. Malformed image
// data returns an error; failures past the decode boundary are reported
// inside the result.
func (s *Service) ProcessScan(ctx context.Context, frameData []byte, contentType string) (*ScanResult, error) {
	result := &ScanResult{
		ScanID:    s.idGenerator.Generate(),
		Timestamp: s.timeSource.Now(),
	}

	frame, err := decodeFrame(frameData, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}

	cardImage := s.rectify(frame)

	hint := ""
	if s.hinter != nil {
		if name, score, ok := s.hinter.BestMatch(cardImage); ok {
			hint = name
			result.MatchHint = name
			slog.Debug("hash index match", "name", name, "score", score)
		}
	}

	pngData, err := encodePNG(cardImage)
	if err != nil {
		result.Error = fmt.Sprintf("encoding card image: %v", err)
		return result, nil
	}

	if s.storage != nil {
		if err := s.storage.SaveScan(result.ScanID, pngData); err != nil {
			slog.Warn("Failed to store card image", "scan_id", result.ScanID, "error", err)
		}
	}

	card, err := s.recognizer.IdentifyCard(ctx, pngData, hint)
	if err != nil {
		slog.Error("Failed to identify card",
			"scan_id", result.ScanID,
			"image_size", len(pngData),
			"error", err,
		)
		result.Error = fmt.Sprintf("AI analysis failed: %v", err)
		return result, nil
	}

	result.CardDetails = card.Attributes
	result.IdentifiedCard = &IdentifiedCard{
		Name:   card.Name,
		Set:    card.SetName,
		Number: card.Number,
		Rarity: card.Rarity,
	}

	valuation, err := s.valuer.GetValue(ctx, card.Name, card.SetName, card.Number)
	if err != nil {
		slog.Error("Failed to value card", "scan_id", result.ScanID, "card", card.Name, "error", err)
		result.Error = fmt.Sprintf("price lookup failed: %v", err)
		return result, nil
	}
	result.Pricing = valuation
	result.Success = true

	if s.history != nil && !valuation.FromCache {
		key := pricing.CacheKey(card.Name, card.SetName)
		if err := s.history.SaveValuation(key, valuation); err != nil {
			slog.Warn("Failed to record valuation history", "key", key, "error", err)
		}
	}

	if s.hinter != nil && hint == "" {
		name := card.Name
		if card.SetName != "" {
			name = fmt.Sprintf("%s (%s)", card.Name, card.SetName)
		}
		if err := s.hinter.Add(name, cardImage); err != nil {
			slog.Warn("Failed to index card image", "name", name, "error", err)
		}
	}

	return result, nil
}

// rectify extracts and warps the card from the frame. When no card
// boundary is found the recognizer still gets a bounded copy of the raw
// frame; vision models often read flat photos fine.
func (s *Service) rectify(frame image.Image) *image.NRGBA {
	cardImage, err := s.normalizer.Normalize(frame)
	if err == nil {
		return cardImage
	}
	if !errors.Is(err, vision.ErrCardNotFound) {
		slog.Warn("Card rectification failed", "error", err)
	}
	return imaging.Fit(frame, maxFallbackDim, maxFallbackDim, imaging.Lanczos)
}

// ScanImage returns the stored rectified card image for a scan.
func (s *Service) ScanImage(scanID string) ([]byte, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return s.storage.GetScan(scanID)
}

// ValuationHistory lists every recorded valuation for a cache key.
func (s *Service) ValuationHistory(key string) ([]*pricing.Valuation, error) {
	if s.history == nil {
		return nil, fmt.Errorf("history is not configured")
	}
	valuations, err := s.history.ListValuations(key)
	if err != nil {
		return nil, fmt.Errorf("listing valuations: %w", err)
	}
	return valuations, nil
}

// Close releases the recognizer and history resources.
func (s *Service) Close() error {
	var errs []error
	if s.recognizer != nil {
		if err := s.recognizer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing recognizer: %w", err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing history: %w", err))
		}
	}
	return errors.Join(errs...)
}

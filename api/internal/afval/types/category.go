package types

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrConfidenceRange = errors.New("confidence must be within [0,1]")
	ErrUnknownCategory = errors.New("category is not part of the universe")
	ErrEmptyUniverse   = errors.New("category universe is empty")
)

// Category is a waste label, e.g. "Glas" or "Geen afval".
type Category string

func (c Category) String() string { return string(c) }

// Unclassifiable is emitted by validator fallbacks. It is not part of any universe,
// so the combiner drops it.
const Unclassifiable Category = "niet_classificeerbaar"

// ScoredCategory is one (category, confidence) pair.
type ScoredCategory struct {
	Category   Category `json:"type"`
	Confidence float64  `json:"confidence"`
}

// NewScoredCategory rejects confidences outside the closed unit interval.
func NewScoredCategory(c Category, confidence float64) (ScoredCategory, error) {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return ScoredCategory{}, fmt.Errorf("%w: %s=%v", ErrConfidenceRange, c, confidence)
	}
	return ScoredCategory{Category: c, Confidence: confidence}, nil
}

// MustScore is NewScoredCategory for literals known to be valid.
func MustScore(c Category, confidence float64) ScoredCategory {
	sc, err := NewScoredCategory(c, confidence)
	if err != nil {
		panic(err)
	}
	return sc
}

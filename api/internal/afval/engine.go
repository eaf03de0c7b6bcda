package afval

import (
	"context"

	"afval-classifier/api/internal/afval/types"
)

// Scorer is the in-process image classifier.
type Scorer interface {
	Name() string
	Ready() bool
	// Classify never fails; unusable input yields a failed LocalResult.
	Classify(ctx context.Context, image []byte) types.LocalResult
	// Describe summarises the top prediction as prompt input for a Validator.
	Describe(r types.LocalResult) string
}

// Validator is the external cross-check. Implementations absorb their own failures
// and answer with fallback data instead.
type Validator interface {
	Name() string
	Ready() bool
	Validate(ctx context.Context, description string, top []types.ScoredCategory) types.ExternalResult
	Analyze(ctx context.Context, image []byte, mime string) types.ExternalResult
}

// MaxValidatorPredictions bounds how many local predictions are sent for validation.
const MaxValidatorPredictions = 3

package afval

import (
	"context"
	"log/slog"
	"time"

	"afval-classifier/api/internal/afval/types"
)

// Outcome carries the combined list together with the inputs it was built from.
type Outcome struct {
	Combined types.CombinedResult
	Local    types.LocalResult
	External *types.ExternalResult
}

// Acknowledgement returns the validator's thank-you message, if any.
func (o Outcome) Acknowledgement() string {
	if o.External == nil {
		return ""
	}
	return o.External.Acknowledgement
}

type Service struct {
	universe  *types.Universe
	scorer    Scorer
	validator Validator
	log       *slog.Logger
}

// NewService wires the pipeline. validator may be nil, in which case only local scores are used.
func NewService(u *types.Universe, scorer Scorer, validator Validator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		universe:  u,
		scorer:    scorer,
		validator: validator,
		log:       log.With("module", "afval"),
	}
}

func (s *Service) Universe() *types.Universe { return s.universe }

// Classify runs local scoring, then (on success) validation of the top predictions,
// and merges both.
func (s *Service) Classify(ctx context.Context, image []byte) Outcome {
	start := time.Now()
	local := s.scorer.Classify(ctx, image)

	var external *types.ExternalResult
	switch {
	case !local.Success:
		s.log.WarnContext(ctx, "local classification failed; skipping validation", "bytes", len(image))
	case s.validator == nil:
	default:
		desc := s.scorer.Describe(local)
		ext := s.validator.Validate(ctx, desc, local.Top(MaxValidatorPredictions))
		external = &ext
	}

	out := Outcome{
		Combined: Combine(s.universe, local, external),
		Local:    local,
		External: external,
	}
	s.log.InfoContext(ctx, "classified",
		"scorer", s.scorer.Name(),
		"validated", external != nil,
		"top", out.Combined[0].Category,
		"confidence", out.Combined[0].Confidence,
		"took", time.Since(start),
	)
	return out
}

// ClassifyWithGemini sends the image straight to the validator; the local side is empty.
func (s *Service) ClassifyWithGemini(ctx context.Context, image []byte, mime string) Outcome {
	local := types.FailedLocalResult()
	if s.validator == nil {
		return Outcome{Combined: Fallback(s.universe), Local: local}
	}
	ext := s.validator.Analyze(ctx, image, mime)
	out := Outcome{
		Combined: Combine(s.universe, local, &ext),
		Local:    local,
		External: &ext,
	}
	s.log.InfoContext(ctx, "classified by validator",
		"validator", s.validator.Name(),
		"top", out.Combined[0].Category,
		"confidence", out.Combined[0].Confidence,
	)
	return out
}

// Status reports backend readiness keyed by role.
func (s *Service) Status() map[string]bool {
	st := map[string]bool{
		"lokaal_model": s.scorer != nil && s.scorer.Ready(),
		"gemini_ai":    s.validator != nil && s.validator.Ready(),
	}
	return st
}

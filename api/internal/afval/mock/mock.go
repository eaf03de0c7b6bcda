// Package mock provides a Validator that answers without calling any model.
// It is selected when no Gemini API key is configured.
package mock

import (
	"context"

	"afval-classifier/api/internal/afval/types"
)

const boost = 0.1

type Validator struct {
	universe *types.Universe
}

func New(u *types.Universe) *Validator { return &Validator{universe: u} }

func (v *Validator) Name() string { return "gemini-mock" }
func (v *Validator) Ready() bool  { return true }

// Validate confirms the best local prediction with a small confidence boost.
func (v *Validator) Validate(_ context.Context, _ string, top []types.ScoredCategory) types.ExternalResult {
	pred := types.ScoredCategory{Category: types.Unclassifiable, Confidence: 0.6}
	if len(top) > 0 {
		pred = types.ScoredCategory{
			Category:   top[0].Category,
			Confidence: min(top[0].Confidence+boost, 1.0),
		}
	}
	return types.ExternalResult{
		IsWaste:         true,
		Predictions:     []types.ScoredCategory{pred},
		Features:        []string{"mock validatie", "gebaseerd op lokaal model"},
		Acknowledgement: "Bedankt! Onze AI validatie is succesvol. (Mock)",
	}
}

// Analyze returns a fixed answer built from the first two non-sentinel categories.
func (v *Validator) Analyze(context.Context, []byte, string) types.ExternalResult {
	preds := make([]types.ScoredCategory, 0, 2)
	confs := []float64{0.8, 0.15}
	for _, c := range v.universe.Categories() {
		if c == v.universe.NoWaste() || len(preds) == len(confs) {
			continue
		}
		preds = append(preds, types.ScoredCategory{Category: c, Confidence: confs[len(preds)]})
	}
	return types.ExternalResult{
		IsWaste:         len(preds) > 0,
		Predictions:     preds,
		Features:        []string{"mock analyse", "test data"},
		Acknowledgement: "Bedankt voor je melding! (Mock response)",
	}
}

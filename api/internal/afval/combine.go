package afval

import (
	"cmp"
	"slices"

	"afval-classifier/api/internal/afval/types"
)

// Combine merges local and external predictions over the whole universe.
//
// Every universe category starts at 0. Local predictions are folded in first, then
// external ones, each with max(current, new): the validator may raise a local score
// but never lower it. Unknown categories are ignored. Categories left at 0 are
// omitted and the rest is sorted descending; equal confidences keep universe order.
// A failed local result contributes nothing and external may be nil. When nothing
// survives, the result is the single entry (no-waste, 1.0).
func Combine(u *types.Universe, local types.LocalResult, external *types.ExternalResult) types.CombinedResult {
	scores := make([]float64, u.Len())

	fold := func(preds []types.ScoredCategory) {
		for _, p := range preds {
			i := u.Index(p.Category)
			if i < 0 {
				continue
			}
			scores[i] = max(scores[i], p.Confidence)
		}
	}

	if local.Success {
		fold(local.Predictions)
	}
	if external != nil {
		fold(external.Predictions)
	}

	cats := u.Categories()
	out := make(types.CombinedResult, 0, len(cats))
	for i, c := range cats {
		if scores[i] > 0 {
			out = append(out, types.ScoredCategory{Category: c, Confidence: scores[i]})
		}
	}
	if len(out) == 0 {
		return Fallback(u)
	}

	slices.SortStableFunc(out, func(a, b types.ScoredCategory) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return out
}

// Fallback is the answer when no classification signal is available.
func Fallback(u *types.Universe) types.CombinedResult {
	return types.CombinedResult{{Category: u.NoWaste(), Confidence: 1.0}}
}

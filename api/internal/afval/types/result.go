package types

import "time"

// LocalResult is the output of the local scorer.
type LocalResult struct {
	Success        bool             `json:"success"`
	Predictions    []ScoredCategory `json:"predictions"`
	MaxConfidence  float64          `json:"max_confidence"`
	ProcessingTime time.Duration    `json:"processing_time"`
}

// NewLocalResult recomputes MaxConfidence when it disagrees with the predictions.
func NewLocalResult(success bool, predictions []ScoredCategory, maxConfidence float64) LocalResult {
	r := LocalResult{Success: success, Predictions: predictions, MaxConfidence: maxConfidence}
	r.heal()
	return r
}

func FailedLocalResult() LocalResult {
	return LocalResult{Success: false, Predictions: []ScoredCategory{}}
}

func (r *LocalResult) heal() {
	if !r.Success || len(r.Predictions) == 0 {
		return
	}
	best := r.Predictions[0].Confidence
	for _, p := range r.Predictions[1:] {
		if p.Confidence > best {
			best = p.Confidence
		}
	}
	if diff := r.MaxConfidence - best; diff > 0.001 || diff < -0.001 {
		r.MaxConfidence = best
	}
}

// Top returns at most n leading predictions; nil for a failed result.
func (r LocalResult) Top(n int) []ScoredCategory {
	if !r.Success || n <= 0 {
		return nil
	}
	if n > len(r.Predictions) {
		n = len(r.Predictions)
	}
	out := make([]ScoredCategory, n)
	copy(out, r.Predictions[:n])
	return out
}

// ExternalResult is the output of the external validator. Predictions are unordered and
// may repeat a category.
type ExternalResult struct {
	IsWaste         bool             `json:"is_afval"`
	Predictions     []ScoredCategory `json:"afval_types"`
	Features        []string         `json:"kenmerken"`
	Acknowledgement string           `json:"bedank_boodschap"`
}

// CombinedResult is sorted by confidence, descending.
type CombinedResult []ScoredCategory

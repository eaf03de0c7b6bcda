package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"afval-classifier/api/internal/afval/types"
	"afval-classifier/api/internal/prompt"
	"afval-classifier/api/internal/util"
)

// wire shape of a model answer; pointers tell absent keys apart from zero values
type wireResult struct {
	IsWaste         *bool        `json:"is_afval"`
	Types           *[]wireEntry `json:"afval_types"`
	Features        *[]string    `json:"kenmerken"`
	Acknowledgement *string      `json:"bedank_boodschap"`
}

type wireEntry struct {
	Type       *string  `json:"afval_type"`
	Confidence *float64 `json:"zekerheid"`
}

// parse decodes a model answer. Keys the model left out are taken from the
// validation fallback. Entries with an out-of-range confidence are dropped.
func (e *Engine) parse(txt string) (types.ExternalResult, error) {
	var w wireResult
	if err := json.Unmarshal([]byte(util.StripCodeFences(txt)), &w); err != nil {
		return types.ExternalResult{}, fmt.Errorf("bad JSON: %w", err)
	}
	def := e.prompts.Fallback(prompt.FallbackValidation)

	res := types.ExternalResult{
		IsWaste:         def.IsWaste,
		Features:        def.Features,
		Acknowledgement: def.Acknowledgement,
	}
	if w.IsWaste != nil {
		res.IsWaste = *w.IsWaste
	}
	if w.Features != nil {
		res.Features = *w.Features
	}
	if w.Acknowledgement != nil {
		res.Acknowledgement = *w.Acknowledgement
	}
	if res.Features == nil {
		res.Features = []string{}
	}

	if w.Types == nil {
		res.Predictions = e.fromEntries(def.Types)
		return res, nil
	}
	res.Predictions = make([]types.ScoredCategory, 0, len(*w.Types))
	for _, we := range *w.Types {
		name := string(types.Unclassifiable)
		if we.Type != nil {
			name = *we.Type
		}
		conf := 0.0
		if we.Confidence != nil {
			conf = *we.Confidence
		}
		sc, err := types.NewScoredCategory(e.canonical(name), conf)
		if err != nil {
			e.log.Debug("dropping prediction", "type", name, "err", err)
			continue
		}
		res.Predictions = append(res.Predictions, sc)
	}
	return res, nil
}

// canonical maps a case-insensitive match onto the universe label; anything else
// is returned trimmed and left for the combiner to discard.
func (e *Engine) canonical(name string) types.Category {
	name = strings.TrimSpace(name)
	c := types.Category(name)
	if e.universe.Contains(c) {
		return c
	}
	for _, u := range e.universe.Categories() {
		if strings.EqualFold(string(u), name) {
			return u
		}
	}
	return c
}

func (e *Engine) fromEntries(entries []prompt.Entry) []types.ScoredCategory {
	out := make([]types.ScoredCategory, 0, len(entries))
	for _, en := range entries {
		c := min(max(en.Confidence, 0), 1)
		if math.IsNaN(c) {
			continue
		}
		out = append(out, types.ScoredCategory{Category: e.canonical(en.Type), Confidence: c})
	}
	return out
}

func (e *Engine) fallback(kind string) types.ExternalResult {
	f := e.prompts.Fallback(kind)
	res := types.ExternalResult{
		IsWaste:         f.IsWaste,
		Predictions:     e.fromEntries(f.Types),
		Features:        f.Features,
		Acknowledgement: f.Acknowledgement,
	}
	if res.Features == nil {
		res.Features = []string{}
	}
	return res
}

// validationFallback echoes the best local prediction when there is one.
func (e *Engine) validationFallback(top []types.ScoredCategory) types.ExternalResult {
	res := e.fallback(prompt.FallbackValidation)
	if len(top) > 0 {
		res.Predictions = []types.ScoredCategory{top[0]}
	}
	return res
}

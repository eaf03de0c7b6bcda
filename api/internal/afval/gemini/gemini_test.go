package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"afval-classifier/api/internal/afval/types"
)

type fakeGen struct {
	answers []string
	errs    []error
	calls   int
	system  string
	parts   []genai.Part
}

func (f *fakeGen) generate(_ context.Context, system string, parts ...genai.Part) (string, error) {
	i := f.calls
	f.calls++
	f.system, f.parts = system, parts
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.answers) {
		return f.answers[i], nil
	}
	return f.answers[len(f.answers)-1], nil
}

func newEngine(g *fakeGen) *Engine {
	return New("", "gemini-test", types.DefaultUniverse(), nil,
		WithGenerator(g.generate), WithRetry(2, time.Millisecond))
}

var localTop = []types.ScoredCategory{
	types.MustScore("Glas", 0.85),
	types.MustScore("Textiel", 0.10),
	types.MustScore("Overig", 0.03),
	types.MustScore("Restafval", 0.02),
}

func TestValidate_ParsesFencedJSON(t *testing.T) {
	g := &fakeGen{answers: []string{"```json\n" + `{"is_afval": true, "afval_types": [
		{"afval_type": "Glas", "zekerheid": 0.9},
		{"afval_type": "elektronisch afval", "zekerheid": 0.75}
	], "kenmerken": ["fles"], "bedank_boodschap": "Dank je!"}` + "\n```"}}
	e := newEngine(g)

	res := e.Validate(context.Background(), "Gedetecteerd: Glas (85.0%)", localTop)
	require.True(t, res.IsWaste)
	require.Equal(t, []types.ScoredCategory{
		types.MustScore("Glas", 0.9),
		types.MustScore("Elektronisch afval", 0.75),
	}, res.Predictions)
	require.Equal(t, []string{"fles"}, res.Features)
	require.Equal(t, "Dank je!", res.Acknowledgement)

	require.Len(t, g.parts, 1)
	body := string(g.parts[0].(genai.Text))
	require.Contains(t, body, "Gedetecteerd: Glas (85.0%)")
	require.Contains(t, body, "Glas (0.85), Textiel (0.10), Overig (0.03)")
	require.NotContains(t, body, "Restafval (0.02)")
	require.NotContains(t, body, "{local_predictions}")
	require.NotEmpty(t, g.system)
}

func TestValidate_MissingKeysFromFallback(t *testing.T) {
	e := newEngine(&fakeGen{answers: []string{`{"is_afval": false}`}})

	res := e.Validate(context.Background(), "x", localTop)
	require.False(t, res.IsWaste)
	require.Equal(t, []types.ScoredCategory{types.MustScore(types.Unclassifiable, 0.5)}, res.Predictions)
	require.Equal(t, []string{"fallback"}, res.Features)
}

func TestValidate_DropsInvalidEntries(t *testing.T) {
	e := newEngine(&fakeGen{answers: []string{`{"afval_types": [
		{"afval_type": "Glas", "zekerheid": 1.7},
		{"afval_type": "Textiel", "zekerheid": -0.1},
		{"zekerheid": 0.4},
		{"afval_type": "Organisch", "zekerheid": 0.3}
	]}`}})

	res := e.Validate(context.Background(), "x", localTop)
	require.Equal(t, []types.ScoredCategory{
		types.MustScore(types.Unclassifiable, 0.4),
		types.MustScore("Organisch", 0.3),
	}, res.Predictions)
}

func TestValidate_FallbackFromLocal(t *testing.T) {
	cases := []struct {
		name string
		gen  *fakeGen
	}{
		{"malformed json", &fakeGen{answers: []string{"Het is glas."}}},
		{"empty answer", &fakeGen{answers: []string{"   "}}},
		{"transport error", &fakeGen{answers: []string{""}, errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newEngine(tc.gen).Validate(context.Background(), "x", localTop)
			require.True(t, res.IsWaste)
			require.Equal(t, []types.ScoredCategory{localTop[0]}, res.Predictions)
			require.Equal(t, []string{"fallback"}, res.Features)
		})
	}

	res := newEngine(&fakeGen{answers: []string{"nope"}}).Validate(context.Background(), "x", nil)
	require.Equal(t, []types.ScoredCategory{types.MustScore(types.Unclassifiable, 0.5)}, res.Predictions)
}

func TestCall_RetriesTransientErrors(t *testing.T) {
	g := &fakeGen{
		answers: []string{"", `{"afval_types": [{"afval_type": "Glas", "zekerheid": 0.6}]}`},
		errs:    []error{errors.New("503")},
	}
	res := newEngine(g).Validate(context.Background(), "x", localTop)
	require.Equal(t, 2, g.calls)
	require.Equal(t, []types.ScoredCategory{types.MustScore("Glas", 0.6)}, res.Predictions)
}

func TestAnalyze(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

	g := &fakeGen{answers: []string{`{"is_afval": true, "afval_types": [{"afval_type": "Grofvuil", "zekerheid": 0.8}], "kenmerken": [], "bedank_boodschap": "Top"}`}}
	res := newEngine(g).Analyze(context.Background(), img, "")
	require.Equal(t, []types.ScoredCategory{types.MustScore("Grofvuil", 0.8)}, res.Predictions)
	require.Len(t, g.parts, 2)
	blob, ok := g.parts[1].(*genai.Blob)
	require.True(t, ok)
	require.Equal(t, "image/png", blob.MIMEType)
	require.True(t, strings.Contains(string(g.parts[0].(genai.Text)), "Grofvuil"))

	res = newEngine(&fakeGen{answers: []string{""}}).Analyze(context.Background(), img, "image/png")
	require.False(t, res.IsWaste)
	require.Empty(t, res.Predictions)
	require.Contains(t, res.Acknowledgement, "niet analyseren")

	boom := errors.New("down")
	res = newEngine(&fakeGen{answers: []string{""}, errs: []error{boom, boom, boom}}).Analyze(context.Background(), img, "image/png")
	require.False(t, res.IsWaste)
	require.Empty(t, res.Predictions)
	require.Contains(t, res.Acknowledgement, "niet beschikbaar")

	res = newEngine(&fakeGen{answers: []string{"<html>"}}).Analyze(context.Background(), img, "image/png")
	require.True(t, res.IsWaste)
	require.Equal(t, []types.ScoredCategory{types.MustScore(types.Unclassifiable, 0.5)}, res.Predictions)
}

func TestNoAPIKey(t *testing.T) {
	e := New("", "gemini-1.5-flash", types.DefaultUniverse(), nil)
	require.False(t, e.Ready())

	res := e.Validate(context.Background(), "x", localTop)
	require.Equal(t, []types.ScoredCategory{localTop[0]}, res.Predictions)

	res = e.Analyze(context.Background(), []byte("img"), "image/jpeg")
	require.False(t, res.IsWaste)
	require.Empty(t, res.Predictions)

	require.True(t, New(" key ", "m", types.DefaultUniverse(), nil).Ready())
}

func TestFormatPredictions(t *testing.T) {
	require.Equal(t, "Glas (0.85), Textiel (0.10), Overig (0.03)", FormatPredictions(localTop))
	require.Empty(t, FormatPredictions(nil))
}

package afval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"afval-classifier/api/internal/afval/types"
)

type fakeScorer struct {
	result types.LocalResult
}

func (f *fakeScorer) Name() string { return "fake" }
func (f *fakeScorer) Ready() bool  { return true }
func (f *fakeScorer) Classify(context.Context, []byte) types.LocalResult {
	return f.result
}
func (f *fakeScorer) Describe(r types.LocalResult) string {
	if !r.Success {
		return "niets"
	}
	return "Gedetecteerd: " + r.Predictions[0].Category.String()
}

type fakeValidator struct {
	gotDesc string
	gotTop  []types.ScoredCategory
	calls   int
	answer  types.ExternalResult
}

func (f *fakeValidator) Name() string { return "fake-validator" }
func (f *fakeValidator) Ready() bool  { return false }
func (f *fakeValidator) Validate(_ context.Context, desc string, top []types.ScoredCategory) types.ExternalResult {
	f.calls++
	f.gotDesc, f.gotTop = desc, top
	return f.answer
}
func (f *fakeValidator) Analyze(context.Context, []byte, string) types.ExternalResult {
	f.calls++
	return f.answer
}

func TestService_Classify_ValidatesTopThree(t *testing.T) {
	local := localOf(sc("Glas", 0.8), sc("Textiel", 0.1), sc("Overig", 0.05), sc("Restafval", 0.05))
	v := &fakeValidator{answer: types.ExternalResult{
		IsWaste:         true,
		Predictions:     []types.ScoredCategory{sc("Glas", 0.9)},
		Acknowledgement: "Bedankt!",
	}}
	svc := NewService(types.DefaultUniverse(), &fakeScorer{result: local}, v, nil)

	out := svc.Classify(context.Background(), []byte("img"))
	require.Equal(t, 1, v.calls)
	require.Equal(t, "Gedetecteerd: Glas", v.gotDesc)
	require.Len(t, v.gotTop, MaxValidatorPredictions)
	require.Equal(t, sc("Glas", 0.9), out.Combined[0])
	require.Len(t, out.Combined, 4)
	require.Equal(t, "Bedankt!", out.Acknowledgement())
}

func TestService_Classify_FailedLocalSkipsValidator(t *testing.T) {
	v := &fakeValidator{answer: types.ExternalResult{Predictions: []types.ScoredCategory{sc("Glas", 0.9)}}}
	svc := NewService(types.DefaultUniverse(), &fakeScorer{result: types.FailedLocalResult()}, v, nil)

	out := svc.Classify(context.Background(), nil)
	require.Zero(t, v.calls)
	require.Nil(t, out.External)
	require.Equal(t, types.CombinedResult{sc("Geen afval", 1)}, out.Combined)
	require.Empty(t, out.Acknowledgement())
}

func TestService_Classify_NoValidator(t *testing.T) {
	local := localOf(sc("Organisch", 0.7))
	svc := NewService(types.DefaultUniverse(), &fakeScorer{result: local}, nil, nil)
	out := svc.Classify(context.Background(), []byte("img"))
	require.Equal(t, types.CombinedResult{sc("Organisch", 0.7)}, out.Combined)
}

func TestService_ClassifyWithGemini(t *testing.T) {
	v := &fakeValidator{answer: types.ExternalResult{Predictions: []types.ScoredCategory{
		sc("Textiel", 0.6), sc("plastic_zakken", 0.3),
	}}}
	svc := NewService(types.DefaultUniverse(), &fakeScorer{}, v, nil)

	out := svc.ClassifyWithGemini(context.Background(), []byte("img"), "image/png")
	require.Equal(t, types.CombinedResult{sc("Textiel", 0.6)}, out.Combined)

	v.answer = types.ExternalResult{}
	out = svc.ClassifyWithGemini(context.Background(), []byte("img"), "image/png")
	require.Equal(t, types.CombinedResult{sc("Geen afval", 1)}, out.Combined)
}

func TestService_Status(t *testing.T) {
	svc := NewService(types.DefaultUniverse(), &fakeScorer{}, &fakeValidator{}, nil)
	require.Equal(t, map[string]bool{"lokaal_model": true, "gemini_ai": false}, svc.Status())

	svc = NewService(types.DefaultUniverse(), &fakeScorer{}, nil, nil)
	require.False(t, svc.Status()["gemini_ai"])
}

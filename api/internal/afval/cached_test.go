package afval

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"afval-classifier/api/internal/afval/types"
)

type memAnalysisStore struct {
	rows   map[string]types.ExternalResult
	writes int
}

func (m *memAnalysisStore) Find(_ context.Context, hash, engine, model string, _ time.Duration) (types.ExternalResult, error) {
	r, ok := m.rows[hash+engine+model]
	if !ok {
		return types.ExternalResult{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memAnalysisStore) Upsert(_ context.Context, hash, engine, model string, res types.ExternalResult) error {
	m.writes++
	m.rows[hash+engine+model] = res
	return nil
}

func TestCachedValidator(t *testing.T) {
	inner := &fakeValidator{answer: types.ExternalResult{Predictions: []types.ScoredCategory{sc("Glas", 0.7)}}}
	st := &memAnalysisStore{rows: map[string]types.ExternalResult{}}
	cv := NewCachedValidator(inner, types.DefaultUniverse(), st, "m", time.Hour, nil)
	ctx := context.Background()

	a := cv.Analyze(ctx, []byte("foto"), "image/jpeg")
	b := cv.Analyze(ctx, []byte("foto"), "image/jpeg")
	require.Equal(t, a, b)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, 1, st.writes)

	cv.Analyze(ctx, []byte("andere foto"), "image/jpeg")
	require.Equal(t, 2, inner.calls)

	// Validate is not cached
	cv.Validate(ctx, "d", nil)
	cv.Validate(ctx, "d", nil)
	require.Equal(t, 4, inner.calls)
}

func TestCachedValidator_SkipsEmptyAnswers(t *testing.T) {
	inner := &fakeValidator{}
	st := &memAnalysisStore{rows: map[string]types.ExternalResult{}}
	cv := NewCachedValidator(inner, types.DefaultUniverse(), st, "m", 0, nil)

	cv.Analyze(context.Background(), []byte("x"), "")
	require.Zero(t, st.writes)

	inner.answer = types.ExternalResult{Predictions: []types.ScoredCategory{sc(types.Unclassifiable, 0.5)}}
	cv.Analyze(context.Background(), []byte("x"), "")
	require.Zero(t, st.writes)

	inner.answer = types.ExternalResult{Predictions: []types.ScoredCategory{sc("plastic_flessen", 0.9)}}
	cv.Analyze(context.Background(), []byte("x"), "")
	require.Zero(t, st.writes)

	inner.answer = types.ExternalResult{Predictions: []types.ScoredCategory{sc("Glas", 0)}}
	cv.Analyze(context.Background(), []byte("x"), "")
	require.Zero(t, st.writes)
	require.Equal(t, 4, inner.calls)

	inner.answer = types.ExternalResult{Predictions: []types.ScoredCategory{sc("plastic_flessen", 0.9), sc("Glas", 0.4)}}
	cv.Analyze(context.Background(), []byte("x"), "")
	require.Equal(t, 1, st.writes)
}

func TestImageHash(t *testing.T) {
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ImageHash(nil))
}

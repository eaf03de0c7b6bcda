package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"afval-classifier/api/internal/afval/types"
)

// AnalysisRepo caches external image analyses by image hash.
type AnalysisRepo struct{ DB *sql.DB }

func NewAnalysisRepo(db *sql.DB) *AnalysisRepo { return &AnalysisRepo{DB: db} }

// Find returns the cached analysis for (imageHash, engine, model).
// If maxAge > 0 and the row is older, it returns sql.ErrNoRows so the caller asks again.
func (r *AnalysisRepo) Find(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (types.ExternalResult, error) {
	const q = `select result_json, created_at
	           from analysis_cache
	           where image_hash=$1 and engine=$2 and model=$3`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, imageHash, engine, model).Scan(&js, &ts); err != nil {
		return types.ExternalResult{}, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return types.ExternalResult{}, sql.ErrNoRows
	}
	var res types.ExternalResult
	if err := json.Unmarshal(js, &res); err != nil {
		// a broken row counts as a miss
		return types.ExternalResult{}, sql.ErrNoRows
	}
	return res, nil
}

// Upsert stores or refreshes an analysis. PK: (image_hash, engine, model).
func (r *AnalysisRepo) Upsert(ctx context.Context, imageHash, engine, model string, res types.ExternalResult) error {
	js, _ := json.Marshal(res)
	const q = `
insert into analysis_cache(image_hash, engine, model, result_json)
values ($1,$2,$3,$4)
on conflict (image_hash, engine, model)
do update set result_json=excluded.result_json, created_at=now()`
	_, err := r.DB.ExecContext(ctx, q, imageHash, engine, model, js)
	return err
}

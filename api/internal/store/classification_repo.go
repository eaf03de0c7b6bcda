package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"afval-classifier/api/internal/afval/types"
)

type ClassificationRepo struct{ DB *sql.DB }

func NewClassificationRepo(db *sql.DB) *ClassificationRepo { return &ClassificationRepo{DB: db} }

// ClassificationRow is one answered classification request.
type ClassificationRow struct {
	ID            int64                `json:"id"`
	CreatedAt     time.Time            `json:"created_at"`
	ChatID        int64                `json:"chat_id,omitempty"`
	Source        string               `json:"bron"`
	ImageHash     string               `json:"image_hash"`
	TopType       types.Category       `json:"top_type"`
	TopConfidence float64              `json:"top_confidence"`
	Validated     bool                 `json:"gevalideerd"`
	Result        types.CombinedResult `json:"resultaat"`
}

// Insert records a classification and returns its id. Result must not be empty.
func (r *ClassificationRepo) Insert(ctx context.Context, chatID int64, source, imageHash string, validated bool, res types.CombinedResult) (int64, error) {
	if len(res) == 0 {
		return 0, errors.New("empty result")
	}
	js, _ := json.Marshal(res)
	const q = `
insert into classifications (
  chat_id, source, image_hash, top_type, top_confidence, validated, result_json
) values ($1,$2,$3,$4,$5,$6,$7)
returning id`
	var chat any
	if chatID != 0 {
		chat = chatID
	}
	var id int64
	err := r.DB.QueryRowContext(ctx, q,
		chat, source, imageHash, string(res[0].Category), res[0].Confidence, validated, js,
	).Scan(&id)
	return id, err
}

// Recent returns the newest rows first, at most limit.
func (r *ClassificationRepo) Recent(ctx context.Context, limit int) ([]ClassificationRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
select id, created_at,
       coalesce(chat_id,0) as chat_id,
       source, image_hash, top_type, top_confidence, validated,
       result_json
from classifications
order by created_at desc, id desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClassificationRow
	for rows.Next() {
		var (
			row ClassificationRow
			top string
			js  []byte
		)
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.ChatID, &row.Source, &row.ImageHash,
			&top, &row.TopConfidence, &row.Validated, &js); err != nil {
			return nil, err
		}
		row.TopType = types.Category(top)
		if err := json.Unmarshal(js, &row.Result); err != nil {
			// keep the summary columns even when the stored list is unreadable
			row.Result = nil
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes old rows so the table does not grow without bound.
func (r *ClassificationRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from classifications where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

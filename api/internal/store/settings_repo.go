package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"afval-classifier/api/internal/settings"
)

// SettingsRepo is a settings.Repository over the settings_documents table.
type SettingsRepo struct{ DB *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{DB: db} }

var _ settings.Repository = (*SettingsRepo)(nil)

func (r *SettingsRepo) Load(ctx context.Context, key string) (settings.Document, error) {
	const q = `select doc from settings_documents where key = $1`
	var js []byte
	err := r.DB.QueryRowContext(ctx, q, key).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", settings.ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	doc := settings.Document{}
	if err := json.Unmarshal(js, &doc); err != nil {
		return nil, fmt.Errorf("settings %s: bad json: %w", key, err)
	}
	return doc, nil
}

// Save upserts the document.
func (r *SettingsRepo) Save(ctx context.Context, key string, doc settings.Document) error {
	if !settings.ValidKey(key) {
		return fmt.Errorf("invalid settings key %q", key)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	const q = `
insert into settings_documents(key, doc)
values ($1, $2)
on conflict (key)
do update set doc = excluded.doc, updated_at = now()`
	_, err = r.DB.ExecContext(ctx, q, key, js)
	return err
}

func (r *SettingsRepo) Exists(ctx context.Context, key string) (bool, error) {
	const q = `select exists(select 1 from settings_documents where key = $1)`
	var ok bool
	if err := r.DB.QueryRowContext(ctx, q, key).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *SettingsRepo) Keys(ctx context.Context) ([]string, error) {
	const q = `select key from settings_documents order by key`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete removes key; a missing key is ErrNotFound.
func (r *SettingsRepo) Delete(ctx context.Context, key string) error {
	res, err := r.DB.ExecContext(ctx, `delete from settings_documents where key = $1`, key)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return fmt.Errorf("%w: %s", settings.ErrNotFound, key)
	}
	return nil
}

// Seed copies every document of src that is not yet stored.
func (r *SettingsRepo) Seed(ctx context.Context, src settings.Repository) (int, error) {
	keys, err := src.Keys(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		ok, err := r.Exists(ctx, k)
		if err != nil {
			return n, err
		}
		if ok {
			continue
		}
		doc, err := src.Load(ctx, k)
		if err != nil {
			return n, err
		}
		if err := r.Save(ctx, k, doc); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

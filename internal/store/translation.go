package store

import (
	"context"
	"database/sql"
	"errors"
)

// TranslationRepository caches translator output keyed by the English sentence.
type TranslationRepository struct {
	db *sql.DB
}

// Translations returns the translation cache repository for this store.
func (s *Store) Translations() *TranslationRepository {
	return &TranslationRepository{db: s.db}
}

// Get returns the cached Vietnamese for english, or ErrNotFound.
func (r *TranslationRepository) Get(ctx context.Context, english string) (string, error) {
	var vi string
	err := r.db.QueryRowContext(ctx,
		`SELECT vietnamese FROM translations WHERE english = ?`, english,
	).Scan(&vi)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return vi, nil
}

// Put stores a translation, replacing any previous one.
func (r *TranslationRepository) Put(ctx context.Context, english, vietnamese string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO translations (english, vietnamese) VALUES (?, ?)
		 ON CONFLICT(english) DO UPDATE SET vietnamese = excluded.vietnamese, created_at = CURRENT_TIMESTAMP`,
		english, vietnamese,
	)
	return err
}

// Count returns the number of cached translations.
func (r *TranslationRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n)
	return n, err
}

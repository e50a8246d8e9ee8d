package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Phrase is one fixed English to Vietnamese pair.
type Phrase struct {
	English    string `json:"english"`
	Vietnamese string `json:"vietnamese"`
}

// PhrasebookRepository looks up fixed translations. Matching is
// case-insensitive and ignores surrounding whitespace.
type PhrasebookRepository struct {
	db *sql.DB
}

// Phrasebook returns the phrasebook repository for this store.
func (s *Store) Phrasebook() *PhrasebookRepository {
	return &PhrasebookRepository{db: s.db}
}

// Lookup returns the Vietnamese for english, or ErrNotFound.
func (r *PhrasebookRepository) Lookup(ctx context.Context, english string) (string, error) {
	var vi string
	err := r.db.QueryRowContext(ctx,
		`SELECT vietnamese FROM phrasebook WHERE english = ?`,
		strings.TrimSpace(english),
	).Scan(&vi)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return vi, nil
}

// Put inserts or replaces an entry.
func (r *PhrasebookRepository) Put(ctx context.Context, p Phrase) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO phrasebook (english, vietnamese) VALUES (?, ?)
		 ON CONFLICT(english) DO UPDATE SET vietnamese = excluded.vietnamese`,
		strings.TrimSpace(p.English), p.Vietnamese,
	)
	return err
}

// List returns every entry ordered by English text.
func (r *PhrasebookRepository) List(ctx context.Context) ([]Phrase, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT english, vietnamese FROM phrasebook ORDER BY english`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Phrase
	for rows.Next() {
		var p Phrase
		if err := rows.Scan(&p.English, &p.Vietnamese); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
